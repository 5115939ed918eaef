package scheduler

import (
	"fmt"
	"time"
)

// Window is a daily active-hours range in a fixed timezone. Start and End
// are minutes since local midnight. A window whose Start is greater than
// its End wraps across midnight (22:00-06:00 covers late evening through
// early morning).
type Window struct {
	Start int
	End   int
	Loc   *time.Location
}

// NewWindow parses "HH:MM" clock strings and a timezone name into a Window.
func NewWindow(start, end, tz string) (Window, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Window{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	s, err := clockMinutes(start)
	if err != nil {
		return Window{}, err
	}
	e, err := clockMinutes(end)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: s, End: e, Loc: loc}, nil
}

func clockMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether the instant falls inside the window, evaluated
// in the window's timezone. Start is inclusive, End is exclusive, so
// adjacent windows do not overlap.
func (w Window) Contains(t time.Time) bool {
	local := t.In(w.Loc)
	m := local.Hour()*60 + local.Minute()
	if w.Start <= w.End {
		return m >= w.Start && m < w.End
	}
	// Wraps midnight: inside when at or after Start, or before End.
	return m >= w.Start || m < w.End
}

// ActiveMinutes returns the window's length in minutes, accounting for
// midnight wrap. A zero-length window (Start == End) spans the full day.
func (w Window) ActiveMinutes() int {
	if w.Start == w.End {
		return 24 * 60
	}
	if w.Start < w.End {
		return w.End - w.Start
	}
	return 24*60 - w.Start + w.End
}

// SpreadInterval returns the interval that spreads perDay firings evenly
// across the active window. perDay values below 1 are clamped to 1.
func (w Window) SpreadInterval(perDay int) time.Duration {
	if perDay < 1 {
		perDay = 1
	}
	return time.Duration(w.ActiveMinutes()/perDay) * time.Minute
}
