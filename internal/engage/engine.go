// Package engage implements reply discovery, deduplication, and the
// engagement policy (auto-like, auto-reply) for replies to owned posts.
//
// Discovery polls the platform for replies to recently-owned posts,
// dropping replies authored by the bot itself and replies already known.
// "Already known" is resolved in two tiers: a bounded in-process cache
// first (no I/O), then one batch existence query against the store for
// the cache misses. Every surviving reply is persisted with
// insert-or-ignore semantics and handed to the policy step.
//
// The first cycle after process start widens the lookback window to
// recover replies missed while the process was down; subsequent cycles
// use the short window. ForceStartupCheck re-arms the wide lookback.
package engage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-xbot/internal/content"
	"github.com/tbourn/go-xbot/internal/domain"
	"github.com/tbourn/go-xbot/internal/events"
	"github.com/tbourn/go-xbot/internal/platform"
	"github.com/tbourn/go-xbot/internal/quota"
)

// Defaults mirror the platform tier's practical limits.
const (
	DefaultStartupLookback = 168 * time.Hour
	DefaultRegularLookback = 24 * time.Hour
	DefaultPageSize        = 10
	DefaultInterPostDelay  = time.Second
	DefaultMaxReplyRunes   = 280
	DefaultCacheCap        = 1000
	DefaultConversationCap = 100
)

// Store is the persistence contract required by the engine.
type Store interface {
	// RecentPosts returns owned posts created within the lookback window,
	// most recent first.
	RecentPosts(ctx context.Context, db *gorm.DB, lookback time.Duration) ([]domain.Post, error)

	// SaveReply inserts a discovered reply; on an identifier conflict it
	// returns the existing row's ID and no error.
	SaveReply(ctx context.Context, db *gorm.DB, platformID, postID, authorID, text string, repliedAt time.Time) (string, error)

	// ExistingReplyIDs returns the subset of ids already stored.
	ExistingReplyIDs(ctx context.Context, db *gorm.DB, ids []string) ([]string, error)

	// MarkReplyLiked flips the liked flag. Idempotent.
	MarkReplyLiked(ctx context.Context, db *gorm.DB, platformID string) error

	// IsReplyLiked reports the stored liked flag.
	IsReplyLiked(ctx context.Context, db *gorm.DB, platformID string) (bool, error)

	// MarkReplyResponded flips the responded flag. Idempotent.
	MarkReplyResponded(ctx context.Context, db *gorm.DB, platformID string) error

	// CountRespondedInConversation counts auto-replies already sent under
	// one root post.
	CountRespondedInConversation(ctx context.Context, db *gorm.DB, postID string) (int64, error)

	// CountRespondedSince counts auto-replies sent since the cutoff.
	CountRespondedSince(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

// Options tunes the engine. Zero values fall back to the package defaults.
type Options struct {
	AutoLike               bool
	AutoReply              bool
	RepliesPerConversation int
	MaxRepliesPerDay       int
	PageSize               int
	StartupLookback        time.Duration
	RegularLookback        time.Duration
	InterPostDelay         time.Duration
	MaxReplyRunes          int
	CacheCap               int
	ConversationCap        int
}

func (o *Options) fill() {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.StartupLookback <= 0 {
		o.StartupLookback = DefaultStartupLookback
	}
	if o.RegularLookback <= 0 {
		o.RegularLookback = DefaultRegularLookback
	}
	if o.InterPostDelay <= 0 {
		o.InterPostDelay = DefaultInterPostDelay
	}
	if o.MaxReplyRunes <= 0 {
		o.MaxReplyRunes = DefaultMaxReplyRunes
	}
	if o.CacheCap <= 0 {
		o.CacheCap = DefaultCacheCap
	}
	if o.ConversationCap <= 0 {
		o.ConversationCap = DefaultConversationCap
	}
}

// CycleStats summarizes one discovery cycle.
type CycleStats struct {
	PostsScanned   int `json:"posts_scanned"`
	RepliesFetched int `json:"replies_fetched"`
	SelfSkipped    int `json:"self_skipped"`
	Duplicates     int `json:"duplicates"`
	Emitted        int `json:"emitted"`
	Liked          int `json:"liked"`
	Responded      int `json:"responded"`
	Failures       int `json:"failures"`
}

// Stats is the engine-level snapshot returned by Stats().
type Stats struct {
	CacheSize      int        `json:"cache_size"`
	Conversations  int        `json:"conversations"`
	StartupPending bool       `json:"startup_pending"`
	LastCycleAt    *time.Time `json:"last_cycle_at,omitempty"`
	LastCycle      CycleStats `json:"last_cycle"`
	TotalEmitted   uint64     `json:"total_emitted"`
	TotalLiked     uint64     `json:"total_liked"`
	TotalResponded uint64     `json:"total_responded"`
}

// Engine coordinates discovery and the per-reply policy. Safe for use by
// one polling job plus administrative calls; shared state is locked
// internally.
type Engine struct {
	DB       *gorm.DB
	Store    Store
	Platform platform.Gateway
	Content  content.Gateway
	Quota    *quota.Tracker
	Bus      *events.Bus

	log  zerolog.Logger
	opts Options

	cache         *ProcessedCache
	conversations *ConversationState

	// cycleMu serializes discovery cycles; stateMu guards the snapshot
	// fields so Stats never blocks behind a running cycle.
	cycleMu sync.Mutex

	stateMu        sync.Mutex
	startupPending bool
	lastCycleAt    time.Time
	lastCycle      CycleStats
	totalEmitted   uint64
	totalLiked     uint64
	totalResponded uint64
}

// New constructs an Engine armed for a startup catch-up cycle.
func New(db *gorm.DB, store Store, pg platform.Gateway, cg content.Gateway, q *quota.Tracker, bus *events.Bus, opts Options, log zerolog.Logger) *Engine {
	opts.fill()
	e := &Engine{
		DB:             db,
		Store:          store,
		Platform:       pg,
		Content:        cg,
		Quota:          q,
		Bus:            bus,
		log:            log.With().Str("component", "engage").Logger(),
		opts:           opts,
		cache:          NewProcessedCache(opts.CacheCap),
		conversations:  NewConversationState(opts.ConversationCap),
		startupPending: true,
	}
	return e
}

// SetOptions swaps the engine's policy tunables, taking effect on the next
// cycle. Cache capacities are fixed at construction; the CacheCap and
// ConversationCap fields are ignored here.
func (e *Engine) SetOptions(opts Options) {
	opts.fill()
	e.stateMu.Lock()
	opts.CacheCap = e.opts.CacheCap
	opts.ConversationCap = e.opts.ConversationCap
	e.opts = opts
	e.stateMu.Unlock()
	e.log.Info().Bool("auto_like", opts.AutoLike).Bool("auto_reply", opts.AutoReply).Msg("engine options updated")
}

// options returns a copy of the current option set.
func (e *Engine) options() Options {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.opts
}

// CheckReplies runs one discovery cycle over the current lookback window.
// The first call after construction (or after ForceStartupCheck) uses the
// widened catch-up window.
func (e *Engine) CheckReplies(ctx context.Context) (CycleStats, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	e.stateMu.Lock()
	lookback := e.opts.RegularLookback
	if e.startupPending {
		lookback = e.opts.StartupLookback
	}
	e.stateMu.Unlock()

	stats, err := e.cycle(ctx, lookback, false)
	e.finishCycle(stats, err == nil)
	return stats, err
}

// DeepScan re-runs discovery over an arbitrary lookback of whole days,
// bypassing the in-process cache but not the store's duplicate check, so
// already-persisted replies are never re-actioned.
func (e *Engine) DeepScan(ctx context.Context, days int) (CycleStats, error) {
	if days < 1 {
		days = 1
	}
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	stats, err := e.cycle(ctx, time.Duration(days)*24*time.Hour, true)
	e.finishCycle(stats, false)
	return stats, err
}

// finishCycle folds one cycle into the running totals.
func (e *Engine) finishCycle(stats CycleStats, clearStartup bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if clearStartup {
		e.startupPending = false
	}
	e.lastCycleAt = time.Now().UTC()
	e.lastCycle = stats
	e.totalEmitted += uint64(stats.Emitted)
	e.totalLiked += uint64(stats.Liked)
	e.totalResponded += uint64(stats.Responded)
}

// cycle is the discovery state machine: fetch owned posts, then per post
// fetch replies, filter, dedup, persist, and hand survivors to the policy
// step. Options are snapshotted once per cycle, so a concurrent SetOptions
// applies from the next cycle on. Caller holds cycleMu.
func (e *Engine) cycle(ctx context.Context, lookback time.Duration, bypassCache bool) (CycleStats, error) {
	var stats CycleStats
	opts := e.options()

	posts, err := e.Store.RecentPosts(ctx, e.DB, lookback)
	if err != nil {
		stats.Failures++
		return stats, err
	}
	e.log.Info().Int("posts", len(posts)).Dur("lookback", lookback).Bool("bypass_cache", bypassCache).Msg("discovery cycle started")

	for i, post := range posts {
		if i > 0 {
			// Smooth the call rate against the platform between posts.
			select {
			case <-time.After(opts.InterPostDelay):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}
		stats.PostsScanned++
		if err := e.scanPost(ctx, post, bypassCache, opts, &stats); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failures++
			e.log.Warn().Err(err).Str("post_id", post.PlatformID).Msg("post scan failed")
		}
	}
	return stats, nil
}

// scanPost processes one owned post's reply page. The quota check covers a
// full page up front: a fetch consumes one read per reply returned, so
// anything less could overshoot the daily limit mid-page.
func (e *Engine) scanPost(ctx context.Context, post domain.Post, bypassCache bool, opts Options, stats *CycleStats) error {
	if !e.Quota.Check(quota.KindRead, opts.PageSize) {
		e.log.Debug().Str("post_id", post.PlatformID).Msg("read quota exhausted, skipping post")
		return nil
	}

	replies, err := platform.RetryResult(ctx, func() ([]platform.Reply, error) {
		return e.Platform.Replies(ctx, post.PlatformID, opts.PageSize)
	})
	if err != nil {
		return err
	}
	e.Quota.Consume(quota.KindRead, len(replies))
	stats.RepliesFetched += len(replies)

	survivors := e.dedup(ctx, replies, bypassCache, stats)
	for _, r := range survivors {
		id, err := e.Store.SaveReply(ctx, e.DB, r.ID, r.PostID, r.AuthorID, r.Content, r.CreatedAt)
		if err != nil {
			stats.Failures++
			e.log.Warn().Err(err).Str("reply_id", r.ID).Msg("reply persist failed")
			continue
		}
		e.cache.Add(r.ID)
		stats.Emitted++
		e.Bus.Publish(events.Event{Type: events.ReplyDiscovered, Job: "reply-poll", Fields: map[string]string{
			"reply_id": r.ID,
			"post_id":  r.PostID,
		}})
		e.log.Debug().Str("reply_id", r.ID).Str("row_id", id).Msg("reply discovered")

		e.applyPolicy(ctx, r, post.Content, opts, stats)
	}
	return nil
}

// dedup drops self-authored replies and anything already known, in two
// tiers: cache first, then one batch store lookup for the misses. Known
// identifiers found in the store are fed back into the cache.
func (e *Engine) dedup(ctx context.Context, replies []platform.Reply, bypassCache bool, stats *CycleStats) []platform.Reply {
	self := e.Platform.Self()

	candidates := make([]platform.Reply, 0, len(replies))
	for _, r := range replies {
		if r.AuthorID == self {
			stats.SelfSkipped++
			continue
		}
		if !bypassCache && e.cache.Contains(r.ID) {
			stats.Duplicates++
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return nil
	}

	ids := make([]string, len(candidates))
	for i, r := range candidates {
		ids[i] = r.ID
	}
	existing, err := e.Store.ExistingReplyIDs(ctx, e.DB, ids)
	if err != nil {
		// The store is the authority; without it we cannot safely emit.
		stats.Failures++
		e.log.Warn().Err(err).Msg("batch dedup lookup failed")
		return nil
	}
	known := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
		e.cache.Add(id)
	}

	out := candidates[:0]
	for _, r := range candidates {
		if _, ok := known[r.ID]; ok {
			stats.Duplicates++
			continue
		}
		out = append(out, r)
	}
	return out
}

// ForceStartupCheck re-arms the widened catch-up lookback for the next
// cycle.
func (e *Engine) ForceStartupCheck() {
	e.stateMu.Lock()
	e.startupPending = true
	e.stateMu.Unlock()
	e.log.Info().Msg("startup catch-up re-armed")
}

// ResetProcessedCache empties the in-process dedup cache. The store's
// duplicate check still prevents re-processing persisted replies.
func (e *Engine) ResetProcessedCache() {
	e.cache.Reset()
	e.log.Info().Msg("processed cache reset")
}

// Stats returns a point-in-time snapshot of engine state and totals.
func (e *Engine) Stats() Stats {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	s := Stats{
		CacheSize:      e.cache.Len(),
		Conversations:  e.conversations.Len(),
		StartupPending: e.startupPending,
		LastCycle:      e.lastCycle,
		TotalEmitted:   e.totalEmitted,
		TotalLiked:     e.totalLiked,
		TotalResponded: e.totalResponded,
	}
	if !e.lastCycleAt.IsZero() {
		t := e.lastCycleAt
		s.LastCycleAt = &t
	}
	return s
}
