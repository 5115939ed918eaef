// Package http wires the Gin engine for the bot's admin API: middleware
// chain, observability endpoints, and the versioned admin routes.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-xbot/internal/config"
	"github.com/tbourn/go-xbot/internal/domain"
	"github.com/tbourn/go-xbot/internal/http/handlers"
	"github.com/tbourn/go-xbot/internal/http/middleware"
	"github.com/tbourn/go-xbot/internal/repo"
)

// listerShim adapts the repository free functions to the handlers.Lister
// interface so transport code stays decoupled from the concrete repo
// package.
type listerShim struct {
	db *gorm.DB
}

// ListPosts proxies repo.CountPosts + repo.ListPostsPage.
func (l listerShim) ListPosts(ctx context.Context, page, pageSize int) ([]domain.Post, int64, error) {
	total, err := repo.CountPosts(ctx, l.db)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}
	items, err := repo.ListPostsPage(ctx, l.db, (page-1)*pageSize, pageSize)
	return items, total, err
}

// ListReplies proxies repo.CountReplies + repo.ListRepliesPage.
func (l listerShim) ListReplies(ctx context.Context, page, pageSize int) ([]domain.Reply, int64, error) {
	total, err := repo.CountReplies(ctx, l.db)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Reply{}, 0, nil
	}
	items, err := repo.ListRepliesPage(ctx, l.db, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Deps carries the components the admin API exposes. Reload may be nil
// when hot configuration reload is not wired.
type Deps struct {
	DB     *gorm.DB
	Sched  handlers.SchedulerAdmin
	Engine handlers.EngineAdmin
	Quota  handlers.QuotaReader
	Reload func() error
}

// RegisterRoutes attaches middleware and endpoints to the given Gin engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics and /metrics endpoint
//  7. Rate limiter (per IP)
//  8. CORS and security headers
//  9. Gzip for the JSON listings
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit; admin payloads are tiny
	r.Use(limitBody(64 << 10))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// 9) Compress the listing payloads
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(deps.Sched, deps.Engine, deps.Quota, listerShim{db: deps.DB}, deps.Reload)

	api := r.Group("/api/v1")
	{
		// Runtime state
		api.GET("/status", h.Status)
		api.GET("/scheduler", h.SchedulerStatus)
		api.GET("/quota", h.QuotaStatus)
		api.GET("/engagement", h.EngagementStats)

		// Listings
		api.GET("/posts", h.ListPosts)
		api.GET("/replies", h.ListReplies)

		// Administrative actions
		api.POST("/jobs/:id/run", h.RunJob)
		api.POST("/jobs/:id/pause", h.PauseJob)
		api.POST("/jobs/:id/resume", h.ResumeJob)
		api.POST("/engagement/deep-scan", h.DeepScan)
		api.POST("/engagement/startup-check", h.ForceStartupCheck)
		api.POST("/engagement/cache/reset", h.ResetCache)
		api.POST("/config/reload", h.ReloadConfig)
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Requests exceeding the cap cause downstream body
// reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
