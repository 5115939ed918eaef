// Package scheduler runs the bot's named background jobs on independent
// timers with single-flight execution per job.
//
// Behavior:
//   - Trigger kinds: fixed interval, interval spread from an N-per-day
//     frequency across an active-hours window (see Window), daily at a
//     clock time, and every N days at a clock time for maintenance.
//   - A firing that would overlap an in-progress run of the same job is
//     skipped and tallied, never queued.
//   - A panic or error inside a job body is contained at the wrapper
//     boundary, logged, published on the event bus, and tallied. The
//     scheduler keeps running after any single job failure.
//   - Stop blocks until in-flight jobs finish or the caller's context
//     expires, whichever comes first.
//   - Reload tears down every cron entry and rebuilds the schedule from a
//     fresh job set, preserving accumulated tallies per job ID.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-xbot/internal/events"
)

// Sentinel errors returned by administrative operations.
var (
	// ErrUnknownJob is returned by RunNow for an ID not in the current job set.
	ErrUnknownJob = errors.New("scheduler: unknown job")
	// ErrJobRunning is returned by RunNow when the job is already in flight.
	ErrJobRunning = errors.New("scheduler: job already running")

	// ErrSkip marks an expected non-failure outcome inside a job body
	// (outside the active window, quota exhausted). Bodies return an error
	// wrapping ErrSkip and the wrapper tallies a skip instead of a failure.
	ErrSkip = errors.New("skip")
)

// TriggerKind selects how a job's firings are computed.
type TriggerKind int

const (
	// TriggerInterval fires every Trigger.Every.
	TriggerInterval TriggerKind = iota
	// TriggerSpread fires Trigger.PerDay times spread evenly across the
	// scheduler's active window.
	TriggerSpread
	// TriggerDailyAt fires once per day at Trigger.At ("HH:MM").
	TriggerDailyAt
	// TriggerEveryNDaysAt fires at Trigger.At only on days where the day
	// number since the Unix epoch is divisible by Trigger.Days.
	TriggerEveryNDaysAt
)

// Trigger is a job's schedule specification. Only the fields relevant to
// its Kind are read.
type Trigger struct {
	Kind   TriggerKind
	Every  time.Duration
	PerDay int
	At     string
	Days   int
}

// Job is one named unit of scheduled work. Run receives a context that is
// cancelled on scheduler shutdown.
type Job struct {
	ID      string
	Trigger Trigger
	Run     func(ctx context.Context) error
}

// JobStatus is a point-in-time snapshot of one job's schedule and tallies.
type JobStatus struct {
	ID      string    `json:"id"`
	Paused  bool      `json:"paused"`
	NextRun time.Time `json:"next_run"`
	PrevRun time.Time `json:"prev_run,omitempty"`
	Success uint64    `json:"success"`
	Failure uint64    `json:"failure"`
	Skipped uint64    `json:"skipped"`
}

// Status is the scheduler-level snapshot returned by Status().
type Status struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// tally accumulates per-job outcome counts. Guarded by Scheduler.mu; kept
// across Reload so operators see lifetime numbers.
type tally struct {
	success uint64
	failure uint64
	skipped uint64
}

// Scheduler drives the job set. Construct with New, register jobs via
// Reload or the initial job list, then Start.
type Scheduler struct {
	log    zerolog.Logger
	bus    *events.Bus
	window Window

	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]*Job
	entries map[string]cron.EntryID
	running map[string]*sync.Mutex
	tallies map[string]*tally
	paused  map[string]bool
	started bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Scheduler over the given active window. The window's
// timezone also anchors daily triggers.
func New(window Window, bus *events.Bus, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		log:     log.With().Str("component", "scheduler").Logger(),
		bus:     bus,
		window:  window,
		cron:    cron.New(cron.WithLocation(window.Loc)),
		jobs:    make(map[string]*Job),
		entries: make(map[string]cron.EntryID),
		running: make(map[string]*sync.Mutex),
		tallies: make(map[string]*tally),
		paused:  make(map[string]bool),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Register adds jobs to the schedule. Must be called before Start; use
// Reload to change the job set afterwards.
func (s *Scheduler) Register(jobs ...Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range jobs {
		if err := s.addLocked(&jobs[i]); err != nil {
			return err
		}
	}
	return nil
}

// addLocked translates the trigger into a cron spec and installs the
// wrapped job. Caller holds s.mu.
func (s *Scheduler) addLocked(j *Job) error {
	spec, err := s.cronSpec(j.Trigger)
	if err != nil {
		return fmt.Errorf("job %s: %w", j.ID, err)
	}
	if _, ok := s.running[j.ID]; !ok {
		s.running[j.ID] = &sync.Mutex{}
	}
	if _, ok := s.tallies[j.ID]; !ok {
		s.tallies[j.ID] = &tally{}
	}
	id, err := s.cron.AddFunc(spec, func() { s.fire(j) })
	if err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", j.ID, spec, err)
	}
	s.jobs[j.ID] = j
	s.entries[j.ID] = id
	s.log.Info().Str("job", j.ID).Str("schedule", spec).Msg("job registered")
	return nil
}

// cronSpec renders a Trigger as a robfig/cron spec string.
func (s *Scheduler) cronSpec(t Trigger) (string, error) {
	switch t.Kind {
	case TriggerInterval:
		if t.Every <= 0 {
			return "", fmt.Errorf("interval trigger requires a positive duration")
		}
		return "@every " + t.Every.String(), nil
	case TriggerSpread:
		return "@every " + s.window.SpreadInterval(t.PerDay).String(), nil
	case TriggerDailyAt, TriggerEveryNDaysAt:
		clock, err := time.Parse("15:04", t.At)
		if err != nil {
			return "", fmt.Errorf("invalid clock time %q: %w", t.At, err)
		}
		return fmt.Sprintf("%d %d * * *", clock.Minute(), clock.Hour()), nil
	default:
		return "", fmt.Errorf("unknown trigger kind %d", t.Kind)
	}
}

// fire is the wrapper boundary around a job body. All outcome accounting
// and containment happens here.
func (s *Scheduler) fire(j *Job) {
	if j.Trigger.Kind == TriggerEveryNDaysAt && !dueToday(time.Now().In(s.window.Loc), j.Trigger.Days) {
		return
	}

	lock := s.runLock(j.ID)
	if !lock.TryLock() {
		s.recordSkip(j.ID, "still_running")
		return
	}
	defer lock.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	s.runContained(s.baseCtx, j)
}

// runContained executes the body, converting panics and errors into log
// lines, events, and tallies.
func (s *Scheduler) runContained(ctx context.Context, j *Job) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.ID, r)
		}
		switch {
		case errors.Is(err, ErrSkip):
			s.recordSkip(j.ID, err.Error())
		case err != nil:
			s.recordFailure(j.ID, err)
		default:
			s.recordSuccess(j.ID, time.Since(start))
		}
	}()
	return j.Run(ctx)
}

func (s *Scheduler) runLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.running[id]
	if !ok {
		lock = &sync.Mutex{}
		s.running[id] = lock
	}
	return lock
}

// dueToday gates every-N-days triggers on the day number since the Unix
// epoch, evaluated on the calendar date in the given instant's location.
func dueToday(now time.Time, n int) bool {
	if n <= 1 {
		return true
	}
	y, m, d := now.Date()
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / int64(24*time.Hour/time.Second)
	return days%int64(n) == 0
}

func (s *Scheduler) recordSuccess(id string, took time.Duration) {
	s.mu.Lock()
	s.tallies[id].success++
	s.mu.Unlock()
	s.log.Info().Str("job", id).Dur("took", took).Msg("job completed")
	s.bus.Publish(events.Event{Type: events.JobSucceeded, Job: id})
}

func (s *Scheduler) recordFailure(id string, err error) {
	s.mu.Lock()
	s.tallies[id].failure++
	s.mu.Unlock()
	s.log.Error().Err(err).Str("job", id).Msg("job failed")
	s.bus.Publish(events.Event{Type: events.JobFailed, Job: id, Fields: map[string]string{"error": err.Error()}})
}

func (s *Scheduler) recordSkip(id, reason string) {
	s.mu.Lock()
	s.tallies[id].skipped++
	s.mu.Unlock()
	s.log.Debug().Str("job", id).Str("reason", reason).Msg("job skipped")
	s.bus.Publish(events.Event{Type: events.JobSkipped, Job: id, Fields: map[string]string{"reason": reason}})
}

// Start begins firing jobs. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop halts firing, cancels the job context, and waits for in-flight jobs
// until ctx expires. Returns ctx.Err() when the wait was cut short.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	stopped := s.cron.Stop()
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out with jobs in flight")
		return ctx.Err()
	}
}

// RunNow executes a named job synchronously outside its schedule. The
// single-flight guarantee still holds: ErrJobRunning is returned if the
// job is already in flight.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}

	lock := s.runLock(id)
	if !lock.TryLock() {
		s.recordSkip(id, "still_running")
		return fmt.Errorf("%w: %s", ErrJobRunning, id)
	}
	defer lock.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	s.log.Info().Str("job", id).Msg("manual run")
	return s.runContained(ctx, j)
}

// Reload replaces the schedule with a new window and job set. Running jobs
// finish under the old context; tallies carry over by job ID, paused jobs
// come back scheduled.
func (s *Scheduler) Reload(window Window, jobs []Job) error {
	s.mu.Lock()
	wasStarted := s.started
	old := s.cron
	s.mu.Unlock()

	if wasStarted {
		// Wait for in-flight jobs without holding s.mu: their completion
		// path takes the lock to record tallies.
		<-old.Stop().Done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.window = window
	s.cron = cron.New(cron.WithLocation(window.Loc))
	s.jobs = make(map[string]*Job)
	s.entries = make(map[string]cron.EntryID)
	s.paused = make(map[string]bool)

	for i := range jobs {
		if err := s.addLocked(&jobs[i]); err != nil {
			return err
		}
	}
	if wasStarted {
		s.cron.Start()
	}
	s.log.Info().Int("jobs", len(jobs)).Msg("scheduler reloaded")
	s.bus.Publish(events.Event{Type: events.ConfigReloaded, Job: "scheduler"})
	return nil
}

// PauseJob removes the job's cron entry so scheduled firings stop. The job
// stays registered: RunNow still works and tallies are kept. Idempotent.
func (s *Scheduler) PauseJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	if s.paused[id] {
		return nil
	}
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.paused[id] = true
	s.log.Info().Str("job", id).Msg("job paused")
	s.bus.Publish(events.Event{Type: events.JobPaused, Job: id})
	return nil
}

// ResumeJob re-installs a paused job's cron entry. Idempotent.
func (s *Scheduler) ResumeJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	if !s.paused[id] {
		return nil
	}
	spec, err := s.cronSpec(j.Trigger)
	if err != nil {
		return fmt.Errorf("job %s: %w", j.ID, err)
	}
	entryID, err := s.cron.AddFunc(spec, func() { s.fire(j) })
	if err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", j.ID, spec, err)
	}
	s.entries[id] = entryID
	delete(s.paused, id)
	s.log.Info().Str("job", id).Msg("job resumed")
	s.bus.Publish(events.Event{Type: events.JobResumed, Job: id})
	return nil
}

// Window returns the current active-hours window.
func (s *Scheduler) Window() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// Status reports the running flag plus per-job next/prev run and tallies,
// sorted by job ID for stable output.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.started, Jobs: make([]JobStatus, 0, len(s.jobs))}
	entries := s.cron.Entries()
	byID := make(map[cron.EntryID]cron.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	for id := range s.jobs {
		js := JobStatus{ID: id, Paused: s.paused[id]}
		if entryID, ok := s.entries[id]; ok {
			if e, ok := byID[entryID]; ok {
				js.NextRun = e.Next
				js.PrevRun = e.Prev
			}
		}
		if t, ok := s.tallies[id]; ok {
			js.Success = t.success
			js.Failure = t.failure
			js.Skipped = t.skipped
		}
		st.Jobs = append(st.Jobs, js)
	}
	sort.Slice(st.Jobs, func(i, j int) bool { return st.Jobs[i].ID < st.Jobs[j].ID })
	return st
}
