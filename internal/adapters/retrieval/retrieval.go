// Package retrieval provides the context retrieval collaborator used for
// transcript-bearing stage submissions.
package retrieval

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/simclinic/woundsim/internal/domain/model"
)

// Default retrieval configuration constants.
const (
	defaultMinLatency = 20 * time.Millisecond
	defaultMaxLatency = 60 * time.Millisecond
	defaultRandomSeed = 42
	maxExcerptLen     = 80
)

// Retriever fetches context chunks for a transcript query. Implementations
// may fail; callers degrade failures to empty context.
type Retriever interface {
	// Context returns up to topK chunks, honoring ctx for cancellation.
	Context(ctx context.Context, query, scenarioID string, topK int) ([]model.ContextChunk, error)
}

// InMemoryRetriever implements Retriever with simulated vector store lookups.
type InMemoryRetriever struct {
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// Option applies a configuration option to the InMemoryRetriever.
type Option func(*InMemoryRetriever)

// WithLatencyRange sets the simulated lookup latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(r *InMemoryRetriever) {
		if minLatency > 0 && maxLatency > minLatency {
			r.minLatency = minLatency
			r.maxLatency = maxLatency
		}
	}
}

// WithFailureRate makes a fraction of lookups fail, for exercising the
// degraded path. Rate is clamped to [0,1].
func WithFailureRate(rate float64) Option {
	return func(r *InMemoryRetriever) {
		if rate < 0 {
			rate = 0
		}
		if rate > 1 {
			rate = 1
		}
		r.failureRate = rate
	}
}

// WithSeed sets the rng seed for deterministic behavior in tests.
func WithSeed(seed int64) Option {
	return func(r *InMemoryRetriever) {
		r.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic simulation
	}
}

// NewInMemoryRetriever creates a simulated retriever.
func NewInMemoryRetriever(opts ...Option) *InMemoryRetriever {
	r := &InMemoryRetriever{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic simulation
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Context implements Retriever.Context.
func (r *InMemoryRetriever) Context(ctx context.Context, query, scenarioID string, topK int) ([]model.ContextChunk, error) {
	if topK <= 0 {
		return []model.ContextChunk{}, nil
	}

	latency, fail := r.roll()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("retrieval cancelled: %w", ctx.Err())
	case <-time.After(latency):
	}

	if fail {
		return nil, ErrUnavailable
	}

	excerpt := query
	if len(excerpt) > maxExcerptLen {
		excerpt = excerpt[:maxExcerptLen]
	}

	chunks := make([]model.ContextChunk, topK)
	for i := range chunks {
		chunks[i] = model.ContextChunk{
			DocID:      fmt.Sprintf("%s/doc-%d", scenarioID, i+1),
			ChunkIndex: i,
			Text:       fmt.Sprintf("guideline excerpt %d for %q", i+1, excerpt),
			Score:      0.9 - float64(i)*0.1,
		}
	}
	return chunks, nil
}

// roll draws the simulated latency and failure outcome under the rng lock.
func (r *InMemoryRetriever) roll() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latency := r.minLatency
	if r.maxLatency > r.minLatency {
		latency += time.Duration(r.rng.Int63n(int64(r.maxLatency - r.minLatency)))
	}
	fail := r.failureRate > 0 && r.rng.Float64() < r.failureRate
	return latency, fail
}
