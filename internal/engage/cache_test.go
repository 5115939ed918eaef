package engage

import (
	"fmt"
	"testing"
)

func TestProcessedCache_AddContains(t *testing.T) {
	c := NewProcessedCache(10)

	if c.Contains("r1") {
		t.Fatal("empty cache should not contain r1")
	}
	c.Add("r1")
	c.Add("r1") // duplicate add is a no-op
	if !c.Contains("r1") {
		t.Fatal("expected r1 after Add")
	}
	if c.Len() != 1 {
		t.Fatalf("expected Len 1, got %d", c.Len())
	}
}

func TestProcessedCache_TrimsOldestHalf(t *testing.T) {
	c := NewProcessedCache(4)

	for i := 1; i <= 5; i++ {
		c.Add(fmt.Sprintf("r%d", i))
	}

	// Exceeding the cap of 4 trims down to 2, dropping the oldest entries.
	if c.Len() != 2 {
		t.Fatalf("expected Len 2 after trim, got %d", c.Len())
	}
	for _, old := range []string{"r1", "r2", "r3"} {
		if c.Contains(old) {
			t.Errorf("expected %s evicted", old)
		}
	}
	for _, recent := range []string{"r4", "r5"} {
		if !c.Contains(recent) {
			t.Errorf("expected %s retained", recent)
		}
	}
}

func TestProcessedCache_Reset(t *testing.T) {
	c := NewProcessedCache(10)
	c.Add("r1")
	c.Add("r2")

	c.Reset()

	if c.Len() != 0 || c.Contains("r1") {
		t.Fatal("expected empty cache after Reset")
	}
}

func TestConversationState_CountSetIncrement(t *testing.T) {
	cs := NewConversationState(10)

	if _, ok := cs.Count("p1"); ok {
		t.Fatal("unknown conversation must report ok=false")
	}

	cs.Set("p1", 2)
	if n, ok := cs.Count("p1"); !ok || n != 2 {
		t.Fatalf("expected (2, true), got (%d, %v)", n, ok)
	}

	if got := cs.Increment("p1"); got != 3 {
		t.Fatalf("expected Increment to return 3, got %d", got)
	}
	if got := cs.Increment("p2"); got != 1 {
		t.Fatalf("expected fresh conversation to increment to 1, got %d", got)
	}
}

func TestConversationState_EvictionForcesRederivation(t *testing.T) {
	cs := NewConversationState(4)

	for i := 1; i <= 5; i++ {
		cs.Set(fmt.Sprintf("p%d", i), 1)
	}

	// The oldest conversations are gone; a cap decision for them must go
	// back to the store rather than trust a zero count.
	if _, ok := cs.Count("p1"); ok {
		t.Fatal("expected p1 evicted")
	}
	if n, ok := cs.Count("p5"); !ok || n != 1 {
		t.Fatalf("expected p5 retained with count 1, got (%d, %v)", n, ok)
	}
	if cs.Len() != 2 {
		t.Fatalf("expected Len 2 after trim, got %d", cs.Len())
	}
}
