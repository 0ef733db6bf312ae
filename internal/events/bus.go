// Package events is a typed in-process publish/subscribe bus that tells open
// views and caches when jobs changed.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies what happened to a job.
type Kind string

const (
	KindCreated     Kind = "created"
	KindRescheduled Kind = "rescheduled"
	KindAssigned    Kind = "assigned"
	KindStatus      Kind = "status"
	KindPhotos      Kind = "photos"
)

// JobsChanged is published after every job write.
type JobsChanged struct {
	Kind       Kind      `json:"kind"`
	JobIDs     []string  `json:"jobIds"`
	OccurredAt time.Time `json:"occurredAt"`
}

// DefaultBuffer is the per-subscriber channel size.
const DefaultBuffer = 16

// Bus fans JobsChanged events out to subscribers. Slow subscribers drop
// events instead of blocking publishers; a dropped event only delays
// convergence until the next poll.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan JobsChanged
	nextID  int
	dropped atomic.Int64
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan JobsChanged)}
}

// Subscribe registers a listener. The returned cancel func closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan JobsChanged, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan JobsChanged, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers event to every subscriber without blocking.
func (b *Bus) Publish(event JobsChanged) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Subscribers reports the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
