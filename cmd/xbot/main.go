// Command xbot runs the posting and engagement bot: the job scheduler,
// the reply discovery engine, and the admin API in one process.
//
// Composition happens here and only here: every component receives its
// collaborators explicitly, no package-level singletons.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-xbot/internal/config"
	"github.com/tbourn/go-xbot/internal/content"
	"github.com/tbourn/go-xbot/internal/engage"
	"github.com/tbourn/go-xbot/internal/events"
	xhttp "github.com/tbourn/go-xbot/internal/http"
	"github.com/tbourn/go-xbot/internal/observability"
	"github.com/tbourn/go-xbot/internal/platform"
	"github.com/tbourn/go-xbot/internal/posting"
	"github.com/tbourn/go-xbot/internal/quota"
	"github.com/tbourn/go-xbot/internal/repo"
	"github.com/tbourn/go-xbot/internal/scheduler"
	"github.com/tbourn/go-xbot/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()
	logger.Info().Str("version", version).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate failed")
	}

	bus := events.NewBus(256)
	bus.Subscribe(events.NewLogObserver(logger))
	bus.Subscribe(events.NewMetricsObserver())
	bus.Start()
	defer bus.Close()

	tracker := quota.New(quota.Limits{
		Posts: cfg.Quota.PostsPerDay,
		Reads: cfg.Quota.ReadsPerDay,
		Likes: cfg.Quota.LikesPerDay,
	})

	gateway := buildPlatform(cfg, logger)
	generator := buildContent(cfg, logger)

	window, err := scheduler.NewWindow(cfg.Posting.WindowStart, cfg.Posting.WindowEnd, cfg.Posting.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid posting window")
	}

	engine := engage.New(db, engageStoreShim{}, gateway, generator, tracker, bus, engage.Options{
		AutoLike:               cfg.Engagement.AutoLike,
		AutoReply:              cfg.Engagement.AutoReply,
		RepliesPerConversation: cfg.Engagement.RepliesPerConversation,
		MaxRepliesPerDay:       cfg.Engagement.MaxRepliesPerDay,
		MaxReplyRunes:          cfg.Content.MaxPostRunes,
	}, logger)

	poster := posting.New(db, postingStoreShim{}, gateway, generator, tracker, bus, window, posting.Options{
		Topics:          cfg.Posting.Topics,
		MaxPostRunes:    cfg.Content.MaxPostRunes,
		KeepHistoryDays: cfg.Storage.KeepHistoryDays,
	}, logger)

	sched := scheduler.New(window, bus, logger)
	if err := sched.Register(buildJobs(cfg, window, poster, engine)...); err != nil {
		logger.Fatal().Err(err).Msg("job registration failed")
	}
	sched.Start()

	// Hot reload: re-read the environment, swap quota limits, engagement
	// policy, and the posting window, then rebuild the schedule.
	reload := func() error {
		next, err := config.Load()
		if err != nil {
			return fmt.Errorf("reload config: %w", err)
		}
		nextWindow, err := scheduler.NewWindow(next.Posting.WindowStart, next.Posting.WindowEnd, next.Posting.Timezone)
		if err != nil {
			return fmt.Errorf("reload window: %w", err)
		}
		tracker.SetLimits(quota.Limits{
			Posts: next.Quota.PostsPerDay,
			Reads: next.Quota.ReadsPerDay,
			Likes: next.Quota.LikesPerDay,
		})
		engine.SetOptions(engage.Options{
			AutoLike:               next.Engagement.AutoLike,
			AutoReply:              next.Engagement.AutoReply,
			RepliesPerConversation: next.Engagement.RepliesPerConversation,
			MaxRepliesPerDay:       next.Engagement.MaxRepliesPerDay,
			MaxReplyRunes:          next.Content.MaxPostRunes,
		})
		poster.SetWindow(nextWindow)
		return sched.Reload(nextWindow, buildJobs(next, nextWindow, poster, engine))
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	xhttp.RegisterRoutes(r, xhttp.Deps{
		DB:     db,
		Sched:  sched,
		Engine: engine,
		Quota:  tracker,
		Reload: reload,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("admin api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server shutdown")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("scheduler shutdown")
	}
	closeDB(db, logger)
	logger.Info().Msg("bye")
}

// buildPlatform selects the platform adapter. Without an account ID the
// dry-run gateway is used so the pipeline can run end to end offline.
func buildPlatform(cfg config.Config, logger zerolog.Logger) platform.Gateway {
	if cfg.Platform.AccountID == "" {
		logger.Warn().Msg("no platform account configured, using dry-run gateway")
	}
	return platform.NewDryRun(cfg.Platform.AccountID, logger)
}

// buildContent chains the hosted provider with the optional local
// OpenAI-compatible fallback.
func buildContent(cfg config.Config, logger zerolog.Logger) content.Gateway {
	var providers []content.Gateway
	if cfg.Content.APIKey != "" {
		providers = append(providers, content.NewOpenAIProvider(content.Options{
			APIKey:      cfg.Content.APIKey,
			Model:       cfg.Content.Model,
			MaxTokens:   cfg.Content.MaxTokens,
			Temperature: cfg.Content.Temperature,
		}, logger))
	}
	if cfg.Content.FallbackBaseURL != "" {
		providers = append(providers, content.NewOpenAIProvider(content.Options{
			APIKey:      "local",
			Model:       cfg.Content.FallbackModel,
			BaseURL:     cfg.Content.FallbackBaseURL,
			MaxTokens:   cfg.Content.MaxTokens,
			Temperature: cfg.Content.Temperature,
		}, logger))
	}
	return content.NewChain(logger, providers...)
}

// buildJobs assembles the job set from configuration. Bodies wrap expected
// skips (outside window, quota exhausted) in scheduler.ErrSkip so the
// wrapper tallies them apart from failures.
func buildJobs(cfg config.Config, window scheduler.Window, poster *posting.Service, engine *engage.Engine) []scheduler.Job {
	var jobs []scheduler.Job

	if cfg.Posting.Enabled {
		jobs = append(jobs, scheduler.Job{
			ID:      "post",
			Trigger: scheduler.Trigger{Kind: scheduler.TriggerSpread, PerDay: cfg.Posting.FrequencyPerDay},
			Run:     poster.PostOnce,
		})
	}

	jobs = append(jobs, scheduler.Job{
		ID:      "reply-poll",
		Trigger: scheduler.Trigger{Kind: scheduler.TriggerInterval, Every: cfg.Engagement.PollInterval},
		Run: func(ctx context.Context) error {
			if !cfg.Engagement.PollAroundTheClock && !window.Contains(time.Now()) {
				return fmt.Errorf("%w: outside reply window", scheduler.ErrSkip)
			}
			_, err := engine.CheckReplies(ctx)
			return err
		},
	})

	if cfg.Monitoring.CollectStats {
		jobs = append(jobs, scheduler.Job{
			ID:      "stats",
			Trigger: scheduler.Trigger{Kind: scheduler.TriggerInterval, Every: cfg.Monitoring.StatsInterval},
			Run:     poster.CollectMetrics,
		})
	}
	if cfg.Monitoring.DailyReport {
		jobs = append(jobs, scheduler.Job{
			ID:      "report",
			Trigger: scheduler.Trigger{Kind: scheduler.TriggerDailyAt, At: cfg.Monitoring.ReportTime},
			Run:     poster.DailyReport,
		})
	}
	jobs = append(jobs, scheduler.Job{
		ID:      "cleanup",
		Trigger: scheduler.Trigger{Kind: scheduler.TriggerEveryNDaysAt, At: "02:00", Days: cfg.Storage.CleanupEvery},
		Run:     poster.Cleanup,
	})

	return jobs
}

// closeDB releases the underlying sql pool.
func closeDB(db *gorm.DB, logger zerolog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn().Err(err).Msg("database close")
	}
}
