// Package events provides a small typed event stream for scheduler and
// engagement activity. Producers publish onto a bounded channel without
// blocking; a single consumer goroutine fans events out to registered
// observers (structured logging, Prometheus counters).
//
// This replaces a global handler registry: the bus is constructed once at
// the composition root and passed explicitly to the components that emit.
// When the buffer is full the event is dropped and counted — observability
// must never stall a job.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Type enumerates the event kinds emitted by the core.
type Type string

const (
	JobSucceeded    Type = "job_succeeded"
	JobFailed       Type = "job_failed"
	JobSkipped      Type = "job_skipped"
	JobPaused       Type = "job_paused"
	JobResumed      Type = "job_resumed"
	PostPublished   Type = "post_published"
	ReplyDiscovered Type = "reply_discovered"
	ReplyLiked      Type = "reply_liked"
	ReplySent       Type = "reply_sent"
	ConfigReloaded  Type = "config_reloaded"
)

// Event is one occurrence on the stream. Fields carries small, low-
// cardinality context (reason, identifiers); it must not be mutated after
// publishing.
type Event struct {
	Type   Type
	Job    string
	Fields map[string]string
	At     time.Time
}

// Observer consumes events. Implementations must be fast; slow observers
// delay everything behind them on the single consumer goroutine.
type Observer interface {
	Observe(Event)
}

// Bus is a bounded, non-blocking publish/subscribe fan-out. Construct with
// NewBus, register observers before Start, and Close on shutdown.
type Bus struct {
	ch        chan Event
	observers []Observer
	dropped   atomic.Uint64

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewBus returns a Bus with the given buffer size (minimum 1).
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

// Subscribe registers an observer. Must be called before Start.
func (b *Bus) Subscribe(o Observer) {
	b.observers = append(b.observers, o)
}

// Start launches the consumer goroutine. Calling Start more than once is a
// no-op.
func (b *Bus) Start() {
	b.startOnce.Do(func() {
		go func() {
			defer close(b.done)
			for ev := range b.ch {
				for _, o := range b.observers {
					o.Observe(ev)
				}
			}
		}()
	})
}

// Publish enqueues an event without blocking. Events published after Close,
// or while the buffer is full, are dropped and counted.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	defer func() {
		// Publishing after Close loses the race on the closed channel;
		// swallow the panic and count the event as dropped.
		if recover() != nil {
			b.dropped.Add(1)
		}
	}()
	select {
	case b.ch <- ev:
	default:
		b.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to a full buffer or
// publishing after Close.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close stops intake and waits for the consumer to drain the buffer.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.ch)
		<-b.done
	})
}
