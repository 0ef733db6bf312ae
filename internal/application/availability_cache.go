package application

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/example/cleaning-ops/internal/availability"
)

const (
	defaultAvailabilityCacheTTL  = 30 * time.Second
	defaultAvailabilityCacheSize = 128
)

// availabilityCache memoises classifications per candidate window.
//
// Every job write calls Invalidate, which advances the generation. Entries
// remember the generation they were fetched under and are ignored once it
// moves on, and Store refuses a result whose fetch began before the latest
// Invalidate.
type availabilityCache struct {
	mu         sync.Mutex
	now        func() time.Time
	ttl        time.Duration
	capacity   int
	generation uint64
	slots      map[string]cachedClassification
}

type cachedClassification struct {
	result     availability.Result
	generation uint64
	storedAt   time.Time
}

func newAvailabilityCache(ttl time.Duration, capacity int, now func() time.Time) *availabilityCache {
	if ttl <= 0 {
		ttl = defaultAvailabilityCacheTTL
	}
	if capacity <= 0 {
		capacity = defaultAvailabilityCacheSize
	}
	if now == nil {
		now = time.Now
	}
	return &availabilityCache{
		now:      now,
		ttl:      ttl,
		capacity: capacity,
		slots:    make(map[string]cachedClassification, capacity),
	}
}

// Generation identifies the schedule state a fetch starts from. Read it
// before fetching and hand it to Store.
func (c *availabilityCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *availabilityCache) Get(key string) (availability.Result, bool) {
	if c == nil {
		return availability.Result{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	slot, ok := c.slots[key]
	if !ok {
		return availability.Result{}, false
	}
	if !c.liveLocked(slot, c.now()) {
		delete(c.slots, key)
		return availability.Result{}, false
	}
	return cloneResult(slot.result), true
}

// Store caches result unless the cache was invalidated after generation
// was read. It reports whether the result was kept.
func (c *availabilityCache) Store(key string, result availability.Result, generation uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return false
	}
	now := c.now()
	if _, exists := c.slots[key]; !exists && len(c.slots) >= c.capacity {
		c.makeRoomLocked(now)
	}
	c.slots[key] = cachedClassification{
		result:     cloneResult(result),
		generation: generation,
		storedAt:   now,
	}
	return true
}

func (c *availabilityCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.generation++
	clear(c.slots)
	c.mu.Unlock()
}

// Len counts entries that Get would still return.
func (c *availabilityCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for _, slot := range c.slots {
		if c.liveLocked(slot, now) {
			n++
		}
	}
	return n
}

func (c *availabilityCache) liveLocked(slot cachedClassification, now time.Time) bool {
	return slot.generation == c.generation && now.Sub(slot.storedAt) <= c.ttl
}

// makeRoomLocked drops dead entries, then the oldest live one if the cache
// is still full.
func (c *availabilityCache) makeRoomLocked(now time.Time) {
	oldestKey := ""
	var oldest time.Time
	for key, slot := range c.slots {
		if !c.liveLocked(slot, now) {
			delete(c.slots, key)
			continue
		}
		if oldestKey == "" || slot.storedAt.Before(oldest) {
			oldestKey, oldest = key, slot.storedAt
		}
	}
	if len(c.slots) >= c.capacity && oldestKey != "" {
		delete(c.slots, oldestKey)
	}
}

func cloneResult(result availability.Result) availability.Result {
	out := availability.Result{
		Window:    result.Window,
		Statuses:  make(map[string]availability.Status, len(result.Statuses)),
		Conflicts: make(map[string][]string, len(result.Conflicts)),
	}
	for id, status := range result.Statuses {
		out.Statuses[id] = status
	}
	for id, jobs := range result.Conflicts {
		out.Conflicts[id] = slices.Clone(jobs)
	}
	if len(result.Skipped) > 0 {
		out.Skipped = slices.Clone(result.Skipped)
	}
	return out
}

// buildAvailabilityCacheKey is order-insensitive in roster.
func buildAvailabilityCacheKey(window availability.Window, excludeJobID string, roster []string) string {
	ids := slices.Clone(roster)
	slices.Sort(ids)
	return strings.Join([]string{
		window.Start.UTC().Format(time.RFC3339Nano),
		window.End.UTC().Format(time.RFC3339Nano),
		excludeJobID,
		strings.Join(ids, ","),
	}, "|")
}
