// Package posting implements the scheduled content jobs: publishing a new
// post inside the active window, collecting engagement metrics for recent
// posts, emitting the daily report, and retention cleanup.
package posting

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-xbot/internal/content"
	"github.com/tbourn/go-xbot/internal/domain"
	"github.com/tbourn/go-xbot/internal/events"
	"github.com/tbourn/go-xbot/internal/platform"
	"github.com/tbourn/go-xbot/internal/quota"
	"github.com/tbourn/go-xbot/internal/repo"
	"github.com/tbourn/go-xbot/internal/scheduler"
)

// ErrSkipped marks an expected non-failure outcome (outside window, quota
// exhausted). It wraps scheduler.ErrSkip so job wrappers tally it as a
// skip, not a failure.
var ErrSkipped = fmt.Errorf("posting: %w", scheduler.ErrSkip)

// Store is the persistence contract required by the posting jobs.
type Store interface {
	// SavePost records a successfully published post.
	SavePost(ctx context.Context, db *gorm.DB, platformID, text, mediaRef string, postedAt time.Time) (*domain.Post, error)

	// RecentPosts returns owned posts within the lookback, newest first.
	RecentPosts(ctx context.Context, db *gorm.DB, lookback time.Duration) ([]domain.Post, error)

	// UpdatePostEngagement refreshes a post's engagement snapshot.
	UpdatePostEngagement(ctx context.Context, db *gorm.DB, platformID string, likes, reposts, replies, impressions int) error

	// SaveMetrics appends a point-in-time metrics row for trend history.
	SaveMetrics(ctx context.Context, db *gorm.DB, postID string, likes, reposts, replies, impressions int, collectedAt time.Time) error

	// ReportBetween aggregates activity between two instants.
	ReportBetween(ctx context.Context, db *gorm.DB, from, to time.Time) (repo.DailyReport, error)

	// DeletePostsOlderThan and friends enforce the retention policy.
	DeletePostsOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
	DeleteRepliesOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
	DeleteMetricsOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

// Options tunes the posting jobs.
type Options struct {
	// Topics is the pool one topic is drawn from per post; empty lets the
	// generator pick its own angle.
	Topics []string
	// MaxPostRunes caps generated post length.
	MaxPostRunes int
	// StatsLookback bounds which posts the metrics job refreshes.
	StatsLookback time.Duration
	// KeepHistoryDays is the retention horizon for cleanup.
	KeepHistoryDays int
}

// Service composes the quota tracker, content gateway, platform gateway,
// and store into the scheduled job bodies.
type Service struct {
	DB       *gorm.DB
	Store    Store
	Platform platform.Gateway
	Content  content.Gateway
	Quota    *quota.Tracker
	Bus      *events.Bus

	winMu  sync.Mutex
	window scheduler.Window

	log  zerolog.Logger
	opts Options
}

// New constructs the posting service.
func New(db *gorm.DB, store Store, pg platform.Gateway, cg content.Gateway, q *quota.Tracker, bus *events.Bus, window scheduler.Window, opts Options, log zerolog.Logger) *Service {
	if opts.MaxPostRunes <= 0 {
		opts.MaxPostRunes = 280
	}
	if opts.StatsLookback <= 0 {
		opts.StatsLookback = 72 * time.Hour
	}
	if opts.KeepHistoryDays <= 0 {
		opts.KeepHistoryDays = 90
	}
	return &Service{
		DB:       db,
		Store:    store,
		Platform: pg,
		Content:  cg,
		Quota:    q,
		Bus:      bus,
		window:   window,
		log:      log.With().Str("component", "posting").Logger(),
		opts:     opts,
	}
}

// SetWindow swaps the active-hours window, typically after a config reload.
func (s *Service) SetWindow(w scheduler.Window) {
	s.winMu.Lock()
	s.window = w
	s.winMu.Unlock()
}

// Window returns the current active-hours window.
func (s *Service) Window() scheduler.Window {
	s.winMu.Lock()
	defer s.winMu.Unlock()
	return s.window
}

// PostOnce publishes one new post. It skips (ErrSkipped) outside the
// active window or when the daily post quota is exhausted; content and
// platform failures are real errors. Quota is consumed only after the
// platform accepted the post.
func (s *Service) PostOnce(ctx context.Context) error {
	now := time.Now()
	if !s.Window().Contains(now) {
		s.log.Info().Msg("outside posting window")
		return fmt.Errorf("%w: outside posting window", ErrSkipped)
	}
	if !s.Quota.Check(quota.KindPost, 1) {
		s.log.Info().Msg("post quota exhausted")
		return fmt.Errorf("%w: post quota exhausted", ErrSkipped)
	}

	text, err := s.generatePost(ctx)
	if err != nil {
		return err
	}

	platformID, err := platform.RetryResult(ctx, func() (string, error) {
		return s.Platform.Post(ctx, text, "", "")
	})
	if err != nil {
		return fmt.Errorf("publish post: %w", err)
	}
	s.Quota.Consume(quota.KindPost, 1)

	if _, err := s.Store.SavePost(ctx, s.DB, platformID, text, "", time.Now().UTC()); err != nil {
		// The post is live; a persistence failure must not undo quota
		// accounting or report the publish as failed.
		s.log.Error().Err(err).Str("platform_id", platformID).Msg("post published but not persisted")
	}

	s.Bus.Publish(events.Event{Type: events.PostPublished, Job: "post", Fields: map[string]string{"platform_id": platformID}})
	s.log.Info().Str("platform_id", platformID).Int("runes", len([]rune(text))).Msg("post published")
	return nil
}

// generatePost draws a topic and asks the content gateway for post text,
// validating the platform length limit.
func (s *Service) generatePost(ctx context.Context) (string, error) {
	var topic string
	if len(s.opts.Topics) > 0 {
		topic = s.opts.Topics[rand.Intn(len(s.opts.Topics))]
	}
	text, err := s.Content.Generate(ctx, topic)
	if err != nil {
		return "", fmt.Errorf("generate post: %w", err)
	}
	if n := len([]rune(text)); n == 0 || n > s.opts.MaxPostRunes {
		return "", fmt.Errorf("generate post: %w: length %d outside (0, %d]", content.ErrNoContent, n, s.opts.MaxPostRunes)
	}
	return text, nil
}
