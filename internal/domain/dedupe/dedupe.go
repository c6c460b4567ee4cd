// Package dedupe tracks submission identifiers so retried stage submissions
// are acknowledged instead of double-processed.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen submission IDs for at-most-once stage processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen set. Used when a submission was
	// marked as seen but failed downstream and should be retryable.
	Unrecord(ctx context.Context, id string)

	// Size returns the current number of tracked IDs.
	Size() int64
}

const defaultMaxSize = 50_000

// inMemoryDeduper implements Deduper with a map plus a FIFO eviction ring.
// With maxSize <= 0 it runs unbounded (no eviction).
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // FIFO ring of recorded ids, bounded mode only
	next    int      // next ring slot to overwrite
	maxSize int
	size    atomic.Int64
}

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of tracked IDs. The oldest entry is evicted
// once the bound is reached. maxSize <= 0 disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.order = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize > 0 && len(d.order) >= d.maxSize {
		// Ring is full: overwrite the oldest slot and evict its id.
		evicted := d.order[d.next]
		if _, ok := d.seen[evicted]; ok {
			delete(d.seen, evicted)
			d.size.Add(-1)
		}
		d.order[d.next] = id
		d.next = (d.next + 1) % d.maxSize
	} else if d.maxSize > 0 {
		d.order = append(d.order, id)
	}

	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
	// The ring slot keeps the stale id; SeenAndRecord tolerates evicting an
	// id that is no longer in the seen set.
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
