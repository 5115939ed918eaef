// Administrative operations.
//
//   - POST /jobs/{id}/run             (run a named job outside its schedule)
//   - POST /jobs/{id}/pause           (stop a job's scheduled firings)
//   - POST /jobs/{id}/resume          (restore a paused job's schedule)
//   - POST /engagement/startup-check  (re-arm the widened catch-up lookback)
//   - POST /engagement/deep-scan      (synchronous backfill over N days)
//   - POST /engagement/cache/reset    (clear the in-process dedup cache)
//   - POST /config/reload             (re-read config and rebuild schedules)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-xbot/internal/scheduler"
)

// Handlers groups the admin API endpoints. It depends on narrow component
// interfaces plus a reload hook supplied by the composition root.
type Handlers struct {
	sched  SchedulerAdmin
	engine EngineAdmin
	quota  QuotaReader
	lister Lister
	reload func() error
}

// New constructs a Handlers instance. reload may be nil, in which case
// POST /config/reload responds 404.
func New(sched SchedulerAdmin, engine EngineAdmin, q QuotaReader, lister Lister, reload func() error) *Handlers {
	return &Handlers{sched: sched, engine: engine, quota: q, lister: lister, reload: reload}
}

// RunJob handles POST /jobs/{id}/run. The job body runs synchronously; an
// in-body skip (outside window, quota exhausted) is reported as a success
// with skipped=true, matching how the scheduler tallies it.
func (h *Handlers) RunJob(c *gin.Context) {
	id := c.Param("id")
	err := h.sched.RunNow(c.Request.Context(), id)
	switch {
	case err == nil:
		ok(c, http.StatusOK, gin.H{"job": id, "skipped": false})
	case errors.Is(err, scheduler.ErrSkip):
		ok(c, http.StatusOK, gin.H{"job": id, "skipped": true, "reason": err.Error()})
	case errors.Is(err, scheduler.ErrUnknownJob):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown job")
	case errors.Is(err, scheduler.ErrJobRunning):
		fail(c, http.StatusConflict, ErrCodeJobRunning, "job already running")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// PauseJob handles POST /jobs/{id}/pause. Pausing an already-paused job is
// a no-op success; manual runs keep working while paused.
func (h *Handlers) PauseJob(c *gin.Context) {
	id := c.Param("id")
	if err := h.sched.PauseJob(id); err != nil {
		jobAdminError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"job": id, "paused": true})
}

// ResumeJob handles POST /jobs/{id}/resume.
func (h *Handlers) ResumeJob(c *gin.Context) {
	id := c.Param("id")
	if err := h.sched.ResumeJob(id); err != nil {
		jobAdminError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"job": id, "paused": false})
}

func jobAdminError(c *gin.Context, err error) {
	if errors.Is(err, scheduler.ErrUnknownJob) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown job")
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
}

// deepScanRequest is the JSON body of POST /engagement/deep-scan.
type deepScanRequest struct {
	Days int `json:"days" binding:"required,min=1,max=90"`
}

// DeepScan handles POST /engagement/deep-scan. It blocks for the duration
// of the scan and returns the cycle statistics.
func (h *Handlers) DeepScan(c *gin.Context) {
	var req deepScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "days must be an integer between 1 and 90")
		return
	}
	stats, err := h.engine.DeepScan(c.Request.Context(), req.Days)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeScanFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// ForceStartupCheck handles POST /engagement/startup-check. The widened
// lookback takes effect on the next poll cycle.
func (h *Handlers) ForceStartupCheck(c *gin.Context) {
	h.engine.ForceStartupCheck()
	ok(c, http.StatusAccepted, gin.H{"startup_check": "armed"})
}

// ResetCache handles POST /engagement/cache/reset.
func (h *Handlers) ResetCache(c *gin.Context) {
	h.engine.ResetProcessedCache()
	c.Status(http.StatusNoContent)
}

// ReloadConfig handles POST /config/reload.
func (h *Handlers) ReloadConfig(c *gin.Context) {
	if h.reload == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "reload not configured")
		return
	}
	if err := h.reload(); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReloadFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"reloaded": true})
}
