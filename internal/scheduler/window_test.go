package scheduler

import (
	"testing"
	"time"
)

func mustWindow(t *testing.T, start, end string) Window {
	t.Helper()
	w, err := NewWindow(start, end, "UTC")
	if err != nil {
		t.Fatalf("NewWindow(%s, %s): %v", start, end, err)
	}
	return w
}

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 10, hour, min, 0, 0, time.UTC)
}

func TestNewWindow_Validation(t *testing.T) {
	if _, err := NewWindow("9:00am", "21:00", "UTC"); err == nil {
		t.Fatal("expected error for non HH:MM clock")
	}
	if _, err := NewWindow("09:00", "21:00", "Mars/Olympus"); err == nil {
		t.Fatal("expected error for bogus timezone")
	}
}

func TestContains_DayWindow(t *testing.T) {
	w := mustWindow(t, "09:00", "21:00")

	cases := []struct {
		at   time.Time
		want bool
	}{
		{at(8, 59), false}, // just before opening
		{at(9, 0), true},   // opening minute is inside
		{at(14, 30), true},
		{at(20, 59), true},
		{at(21, 0), false}, // closing minute is outside
		{at(23, 0), false},
	}
	for _, c := range cases {
		if got := w.Contains(c.at); got != c.want {
			t.Errorf("Contains(%v) = %v, want %v", c.at.Format("15:04"), got, c.want)
		}
	}
}

func TestContains_WrapsMidnight(t *testing.T) {
	w := mustWindow(t, "22:00", "06:00")

	cases := []struct {
		at   time.Time
		want bool
	}{
		{at(21, 59), false},
		{at(22, 0), true},
		{at(23, 30), true},
		{at(0, 0), true},
		{at(5, 59), true},
		{at(6, 0), false},
		{at(12, 0), false},
	}
	for _, c := range cases {
		if got := w.Contains(c.at); got != c.want {
			t.Errorf("Contains(%v) = %v, want %v", c.at.Format("15:04"), got, c.want)
		}
	}
}

func TestContains_EvaluatesInWindowTimezone(t *testing.T) {
	w, err := NewWindow("09:00", "21:00", "Europe/Paris")
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	// 07:30 UTC in June is 09:30 in Paris (CEST), inside the window.
	utcMorning := time.Date(2025, 6, 10, 7, 30, 0, 0, time.UTC)
	if !w.Contains(utcMorning) {
		t.Fatal("expected 07:30 UTC (09:30 Paris) to be inside the window")
	}
	// 20:30 UTC is 22:30 Paris, outside.
	utcEvening := time.Date(2025, 6, 10, 20, 30, 0, 0, time.UTC)
	if w.Contains(utcEvening) {
		t.Fatal("expected 20:30 UTC (22:30 Paris) to be outside the window")
	}
}

func TestActiveMinutes(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"09:00", "21:00", 720},
		{"22:00", "06:00", 480}, // wraps midnight
		{"00:00", "00:00", 1440},
		{"23:00", "01:00", 120},
	}
	for _, c := range cases {
		w := mustWindow(t, c.start, c.end)
		if got := w.ActiveMinutes(); got != c.want {
			t.Errorf("ActiveMinutes(%s-%s) = %d, want %d", c.start, c.end, got, c.want)
		}
	}
}

func TestSpreadInterval(t *testing.T) {
	w := mustWindow(t, "09:00", "21:00")

	// 3 posts spread over 12 active hours: one every 4 hours.
	if got := w.SpreadInterval(3); got != 4*time.Hour {
		t.Fatalf("SpreadInterval(3) = %v, want 4h", got)
	}
	if got := w.SpreadInterval(0); got != 12*time.Hour {
		t.Fatalf("SpreadInterval(0) should clamp to one per day, got %v", got)
	}
}
