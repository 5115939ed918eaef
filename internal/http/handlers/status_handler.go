// Status endpoints.
//
// These are read-only views over the bot's runtime state:
//   - GET /status      (composite: scheduler, quota, engagement)
//   - GET /scheduler   (running flag, per-job next run and tallies)
//   - GET /quota       (daily usage vs. limits, last reset)
//   - GET /engagement  (cache sizes, catch-up flag, cycle totals)
//
// Handlers are transport-thin: they snapshot component state and translate
// it into JSON, no business decisions.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-xbot/internal/engage"
	"github.com/tbourn/go-xbot/internal/quota"
	"github.com/tbourn/go-xbot/internal/scheduler"
)

// SchedulerAdmin is the scheduler surface consumed by HTTP handlers.
type SchedulerAdmin interface {
	// Status snapshots the running flag and per-job schedule/tallies.
	Status() scheduler.Status
	// RunNow executes a named job synchronously outside its schedule.
	RunNow(ctx context.Context, id string) error
	// PauseJob stops scheduled firings for a named job.
	PauseJob(id string) error
	// ResumeJob restores scheduled firings for a paused job.
	ResumeJob(id string) error
}

// EngineAdmin is the engagement-engine surface consumed by HTTP handlers.
type EngineAdmin interface {
	// Stats snapshots cache sizes, the catch-up flag, and cycle totals.
	Stats() engage.Stats
	// DeepScan re-runs discovery over the last days, bypassing the
	// in-process cache but not the store's duplicate check.
	DeepScan(ctx context.Context, days int) (engage.CycleStats, error)
	// ForceStartupCheck re-arms the widened catch-up lookback.
	ForceStartupCheck()
	// ResetProcessedCache empties the in-process dedup cache.
	ResetProcessedCache()
}

// QuotaReader exposes the quota tracker's snapshot.
type QuotaReader interface {
	Status() quota.Status
}

// StatusResponse is the composite returned by GET /status.
type StatusResponse struct {
	Scheduler  scheduler.Status `json:"scheduler"`
	Quota      quota.Status     `json:"quota"`
	Engagement engage.Stats     `json:"engagement"`
}

// Status handles GET /status.
func (h *Handlers) Status(c *gin.Context) {
	ok(c, http.StatusOK, StatusResponse{
		Scheduler:  h.sched.Status(),
		Quota:      h.quota.Status(),
		Engagement: h.engine.Stats(),
	})
}

// SchedulerStatus handles GET /scheduler.
func (h *Handlers) SchedulerStatus(c *gin.Context) {
	ok(c, http.StatusOK, h.sched.Status())
}

// QuotaStatus handles GET /quota.
func (h *Handlers) QuotaStatus(c *gin.Context) {
	ok(c, http.StatusOK, h.quota.Status())
}

// EngagementStats handles GET /engagement.
func (h *Handlers) EngagementStats(c *gin.Context) {
	ok(c, http.StatusOK, h.engine.Stats())
}
