// Package dedupe provides idempotency tracking for interaction events.
// The queue delivers at-least-once, so consumers check event IDs here
// before applying mastery updates.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 50000

// Deduper records seen event IDs.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records
	// it if not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an ID so a redelivery can be processed again.
	// Used when an event was recorded but its update did not commit.
	Unrecord(ctx context.Context, id string)

	// Size returns the number of tracked IDs.
	Size() int
}

// ringDeduper implements Deduper with a map for membership and a fixed
// ring of IDs for FIFO eviction. When the ring is full the oldest entry
// is overwritten and dropped from the map, so memory stays bounded no
// matter how long the process runs. With maxSize <= 0 the ring is
// disabled and the map grows without bound.
type ringDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	ring []string
	next int
}

// NewRingDeduper creates a deduper with configuration options.
func NewRingDeduper(opts ...Option) Deduper {
	d := &ringDeduper{
		seen: make(map[string]struct{}),
	}

	maxSize := defaultMaxSize
	for _, opt := range opts {
		maxSize = opt(maxSize)
	}
	if maxSize > 0 {
		d.ring = make([]string, maxSize)
	}

	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.ring != nil {
		// Evict whatever occupies the next slot. Unrecorded IDs leave
		// empty tombstones here, which delete handles fine.
		if old := d.ring[d.next]; old != "" {
			delete(d.seen, old)
		}
		d.ring[d.next] = id
		d.next = (d.next + 1) % len(d.ring)
	}

	d.seen[id] = struct{}{}
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)

	// Clear the ring slot so eviction does not drop a live entry that
	// later reused this ID.
	for i := range d.ring {
		if d.ring[i] == id {
			d.ring[i] = ""
			break
		}
	}
}

func (d *ringDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
