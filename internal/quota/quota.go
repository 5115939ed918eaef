// Package quota tracks rolling daily usage counters for platform operations
// (posts, reads, likes) against configured limits. The tracker is an
// early-exit optimization in front of the platform's own enforcement, not a
// source of truth: counters are process-local and reset at the UTC day
// boundary, which matches the behavior after a restart.
//
// Concurrency: every method takes the tracker's mutex, so the day rollover,
// the limit check, and the counter mutation are atomic with respect to each
// other. The check-then-consume sequence across a gateway call is documented
// best-effort (spec'd as check-then-act, not a hard reservation).
package quota

import (
	"sync"
	"time"
)

// Kind identifies a quota-consuming operation class.
type Kind string

const (
	// KindPost covers publishing posts and auto-replies.
	KindPost Kind = "posts"
	// KindRead covers reply fetches and metric lookups.
	KindRead Kind = "reads"
	// KindLike covers like operations.
	KindLike Kind = "likes"
)

// Limits holds the configured daily caps per kind. A value <= 0 means
// unlimited for that kind.
type Limits struct {
	Posts int
	Reads int
	Likes int
}

// Status is a point-in-time usage snapshot, suitable for the admin API.
type Status struct {
	Usage     map[Kind]int `json:"usage"`
	Limits    map[Kind]int `json:"limits"` // 0 encodes unlimited
	LastReset time.Time    `json:"last_reset"`
}

// Tracker counts daily usage per operation kind. Use New to construct.
type Tracker struct {
	mu        sync.Mutex
	limits    Limits
	usage     map[Kind]int
	lastReset time.Time

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// New returns a Tracker with the given limits and an empty usage map.
func New(limits Limits) *Tracker {
	return &Tracker{
		limits:    limits,
		usage:     map[Kind]int{},
		lastReset: time.Now().UTC(),
		now:       time.Now,
	}
}

// Check reports whether n more operations of the given kind fit in today's
// limit. Unlimited kinds (limit <= 0) always pass. The day rollover happens
// here, under the same lock, so a check immediately after midnight never
// sees yesterday's counters.
func (t *Tracker) Check(kind Kind, n int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	limit := t.limitFor(kind)
	if limit <= 0 {
		return true
	}
	return t.usage[kind]+n <= limit
}

// Consume records n successful operations of the given kind. Call it only
// after the corresponding gateway call succeeded; failed calls must not
// consume quota.
func (t *Tracker) Consume(kind Kind, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	t.usage[kind] += n
}

// Status returns a copy of the current usage and limits.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	usage := make(map[Kind]int, len(t.usage))
	for k, v := range t.usage {
		usage[k] = v
	}
	return Status{
		Usage: usage,
		Limits: map[Kind]int{
			KindPost: max(t.limits.Posts, 0),
			KindRead: max(t.limits.Reads, 0),
			KindLike: max(t.limits.Likes, 0),
		},
		LastReset: t.lastReset,
	}
}

// Reset zeroes all counters immediately. Exposed for the admin API.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = map[Kind]int{}
	t.lastReset = t.now().UTC()
}

// SetLimits swaps the configured limits, used on configuration reload.
// Current usage is preserved: a reload is not a quota amnesty.
func (t *Tracker) SetLimits(limits Limits) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limits = limits
}

// rollover zeroes counters when the UTC day has advanced past the last
// reset. Callers must hold t.mu.
func (t *Tracker) rollover() {
	now := t.now().UTC()
	if now.YearDay() != t.lastReset.YearDay() || now.Year() != t.lastReset.Year() {
		t.usage = map[Kind]int{}
		t.lastReset = now
	}
}

func (t *Tracker) limitFor(kind Kind) int {
	switch kind {
	case KindPost:
		return t.limits.Posts
	case KindRead:
		return t.limits.Reads
	case KindLike:
		return t.limits.Likes
	default:
		return 0
	}
}
