package quota

import (
	"testing"
	"time"
)

func TestCheckAndConsume_EnforcesDailyLimit(t *testing.T) {
	tr := New(Limits{Posts: 5})

	for i := 0; i < 5; i++ {
		if !tr.Check(KindPost, 1) {
			t.Fatalf("attempt %d: expected Check to pass", i+1)
		}
		tr.Consume(KindPost, 1)
	}

	// The sixth attempt must be rejected before any gateway call is made.
	if tr.Check(KindPost, 1) {
		t.Fatal("expected 6th post to be rejected")
	}
}

func TestCheck_UnlimitedAlwaysPasses(t *testing.T) {
	tr := New(Limits{Posts: 0, Reads: -1})
	tr.Consume(KindRead, 100000)

	if !tr.Check(KindPost, 1) {
		t.Fatal("limit 0 should mean unlimited")
	}
	if !tr.Check(KindRead, 1) {
		t.Fatal("negative limit should mean unlimited")
	}
}

func TestCheck_BatchCountAgainstRemaining(t *testing.T) {
	tr := New(Limits{Reads: 10})
	tr.Consume(KindRead, 8)

	if !tr.Check(KindRead, 2) {
		t.Fatal("2 more reads should fit in a limit of 10")
	}
	if tr.Check(KindRead, 3) {
		t.Fatal("3 more reads should not fit in a limit of 10")
	}
}

func TestRollover_ResetsCountersAtDayBoundary(t *testing.T) {
	tr := New(Limits{Posts: 1})

	day1 := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	tr.now = func() time.Time { return day1 }
	tr.lastReset = day1

	tr.Consume(KindPost, 1)
	if tr.Check(KindPost, 1) {
		t.Fatal("limit should be exhausted before midnight")
	}

	// Cross midnight: the rollover must happen atomically with the check.
	tr.now = func() time.Time { return day1.Add(2 * time.Minute) }
	if !tr.Check(KindPost, 1) {
		t.Fatal("counters should reset after the day boundary")
	}

	st := tr.Status()
	if got := st.Usage[KindPost]; got != 0 {
		t.Fatalf("expected usage 0 after rollover, got %d", got)
	}
	if !st.LastReset.After(day1) {
		t.Fatalf("expected last reset to advance, got %v", st.LastReset)
	}
}

func TestSetLimits_PreservesUsage(t *testing.T) {
	tr := New(Limits{Likes: 10})
	tr.Consume(KindLike, 10)

	// A reload is not a quota amnesty.
	tr.SetLimits(Limits{Likes: 12})
	if got := tr.Status().Usage[KindLike]; got != 10 {
		t.Fatalf("expected usage preserved across SetLimits, got %d", got)
	}
	if !tr.Check(KindLike, 2) {
		t.Fatal("raised limit should allow 2 more likes")
	}
	if tr.Check(KindLike, 3) {
		t.Fatal("raised limit should not allow 3 more likes")
	}
}

func TestReset_ZeroesCountersImmediately(t *testing.T) {
	tr := New(Limits{Posts: 3})
	tr.Consume(KindPost, 3)

	tr.Reset()

	if !tr.Check(KindPost, 1) {
		t.Fatal("expected Check to pass after Reset")
	}
	if got := tr.Status().Usage[KindPost]; got != 0 {
		t.Fatalf("expected usage 0 after Reset, got %d", got)
	}
}

func TestStatus_ReturnsCopies(t *testing.T) {
	tr := New(Limits{Posts: 3})
	tr.Consume(KindPost, 1)

	st := tr.Status()
	st.Usage[KindPost] = 99

	if got := tr.Status().Usage[KindPost]; got != 1 {
		t.Fatalf("mutating the snapshot must not affect the tracker, got %d", got)
	}
}
