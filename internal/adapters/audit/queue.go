// Package audit exports committed stage results to the audit log off the
// request path. The export is fire-and-forget: the synchronous append+advance
// has already committed before anything reaches this queue.
package audit

import (
	"context"
	"sync"

	"github.com/simclinic/woundsim/internal/domain/model"
	"github.com/simclinic/woundsim/pkg/metrics"
)

// Record is the payload type flowing through the export queue.
type Record = model.AuditRecord

const defaultQueueCapacity = 10_000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a record. Returns false when the queue is full or closed;
	// the record is dropped and counted, never blocked on.
	Enqueue(ctx context.Context, rec Record) bool

	// Dequeue returns a channel receiving records until the queue closes.
	Dequeue(ctx context.Context) <-chan Record

	// Len returns the current number of queued records.
	Len(ctx context.Context) int

	// Close shuts the queue down; the dequeue channel drains then closes.
	Close() error
}

// InMemoryQueue implements Queue over a buffered channel.
type InMemoryQueue struct {
	records chan Record

	mu     sync.RWMutex
	closed bool
}

// QueueOption applies a configuration option to the InMemoryQueue.
type QueueOption func(*queueConfig)

type queueConfig struct {
	capacity int
}

// WithCapacity bounds the export queue.
func WithCapacity(capacity int) QueueOption {
	return func(c *queueConfig) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// NewInMemoryQueue creates a bounded in-memory export queue.
func NewInMemoryQueue(opts ...QueueOption) *InMemoryQueue {
	cfg := queueConfig{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	metrics.UpdateAuditQueueSize(0)
	return &InMemoryQueue{
		records: make(chan Record, cfg.capacity),
	}
}

// Enqueue implements Queue.Enqueue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, rec Record) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordAuditDropped()
		return false
	}

	select {
	case q.records <- rec:
		metrics.UpdateAuditQueueSize(len(q.records))
		return true
	case <-ctx.Done():
		metrics.RecordAuditDropped()
		return false
	default:
		metrics.RecordAuditDropped()
		return false
	}
}

// Dequeue implements Queue.Dequeue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Record {
	out := make(chan Record)
	go func() {
		defer close(out)
		for rec := range q.records {
			select {
			case out <- rec:
				metrics.UpdateAuditQueueSize(len(q.records))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len implements Queue.Len.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.records)
}

// Close implements Queue.Close.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.records)
	q.closed = true
	return nil
}
