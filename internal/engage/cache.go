package engage

import "sync"

// ProcessedCache is a bounded set of reply identifiers already handled in
// this process. It exists to avoid a store round-trip on every poll; the
// persistent store remains the authority, so an eviction here only costs
// one redundant existence check, never duplicate processing.
//
// Eviction is a FIFO trim: once the cache exceeds cap entries, the oldest
// half is dropped in one pass.
type ProcessedCache struct {
	mu    sync.Mutex
	set   map[string]struct{}
	order []string
	cap   int
}

// NewProcessedCache returns a cache trimmed back to cap/2 whenever it
// grows past cap. Caps below 2 are clamped to 2.
func NewProcessedCache(capacity int) *ProcessedCache {
	if capacity < 2 {
		capacity = 2
	}
	return &ProcessedCache{
		set: make(map[string]struct{}, capacity),
		cap: capacity,
	}
}

// Contains reports whether the identifier is cached.
func (c *ProcessedCache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.set[id]
	return ok
}

// Add records an identifier, trimming the oldest half when the cap is
// exceeded.
func (c *ProcessedCache) Add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.set[id]; ok {
		return
	}
	c.set[id] = struct{}{}
	c.order = append(c.order, id)
	if len(c.order) > c.cap {
		keep := c.cap / 2
		for _, old := range c.order[:len(c.order)-keep] {
			delete(c.set, old)
		}
		c.order = append(c.order[:0], c.order[len(c.order)-keep:]...)
	}
}

// Len returns the current number of cached identifiers.
func (c *ProcessedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Reset empties the cache.
func (c *ProcessedCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = make(map[string]struct{}, c.cap)
	c.order = c.order[:0]
}

// ConversationState tracks how many auto-replies were sent into each
// conversation, keyed by the root post identifier. Bounded the same FIFO
// way as ProcessedCache; an evicted conversation's count is re-derived
// from the persistent store on the next decision, so eviction can never
// let the per-conversation cap be exceeded.
type ConversationState struct {
	mu     sync.Mutex
	counts map[string]int
	order  []string
	cap    int
}

// NewConversationState returns a tracker trimmed to cap/2 past cap entries.
func NewConversationState(capacity int) *ConversationState {
	if capacity < 2 {
		capacity = 2
	}
	return &ConversationState{
		counts: make(map[string]int, capacity),
		cap:    capacity,
	}
}

// Count returns the cached count for a conversation. ok is false when the
// conversation is unknown here (never seen, or evicted) and the caller
// must consult the store.
func (c *ConversationState) Count(postID string) (n int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok = c.counts[postID]
	return n, ok
}

// Set installs a count, typically one re-derived from the store.
func (c *ConversationState) Set(postID string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch(postID)
	c.counts[postID] = n
}

// Increment bumps a conversation's count and returns the new value.
func (c *ConversationState) Increment(postID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch(postID)
	c.counts[postID]++
	return c.counts[postID]
}

// touch records insertion order and trims. Caller holds c.mu.
func (c *ConversationState) touch(postID string) {
	if _, ok := c.counts[postID]; ok {
		return
	}
	c.order = append(c.order, postID)
	if len(c.order) > c.cap {
		keep := c.cap / 2
		for _, old := range c.order[:len(c.order)-keep] {
			delete(c.counts, old)
		}
		c.order = append(c.order[:0], c.order[len(c.order)-keep:]...)
	}
}

// Len returns the number of tracked conversations.
func (c *ConversationState) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
