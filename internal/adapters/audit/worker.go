package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/simclinic/woundsim/internal/domain/procedure"
	"github.com/simclinic/woundsim/pkg/logger"
	"github.com/simclinic/woundsim/pkg/metrics"
)

const poolShutdownTimeout = 10 * time.Second

// Pool drains the export queue with a fixed set of workers. Each record
// becomes one structured audit log line plus metric observations.
type Pool struct {
	queue   Queue
	workers int
	log     logger.Logger

	wg       sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

// PoolOption applies a configuration option to the Pool.
type PoolOption func(*Pool)

// WithLogger sets a custom logger for the pool.
func WithLogger(log logger.Logger) PoolOption {
	return func(p *Pool) {
		if log != nil {
			p.log = log
		}
	}
}

// NewPool creates an export pool over queue with the given worker count.
func NewPool(queue Queue, workers int, opts ...PoolOption) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		queue:    queue,
		workers:  workers,
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("audit")
	}
	return p
}

// Start launches the workers. They run until the queue closes, the context
// is cancelled, or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	metrics.UpdateWorkerCount(p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, fmt.Sprintf("audit-%d", i+1))
	}
}

func (p *Pool) run(ctx context.Context, name string) {
	defer p.wg.Done()

	records := p.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			p.export(ctx, name, rec)
		}
	}
}

// export writes one audit line and updates metrics.
func (p *Pool) export(ctx context.Context, worker string, rec Record) {
	p.log.Info(ctx, "stage result",
		logger.String("worker", worker),
		logger.String("session_id", rec.SessionID),
		logger.String("scenario_id", rec.ScenarioID),
		logger.String("student_id", rec.StudentID),
		logger.String("stage", string(rec.Stage)),
		logger.Float64("score", rec.Score),
		logger.Int("agents", rec.Agents),
		logger.Bool("completed", rec.Completed),
	)

	metrics.RecordAuditExport()
	metrics.RecordStageScore(string(rec.Stage), rec.Score)
	if rec.Completed && rec.Stage == procedure.Dressing {
		// The dressing result is the one that lands the session on COMPLETED.
		metrics.RecordSessionCompleted()
	}
}

// Stop signals the workers and waits for them to drain, up to a timeout.
func (p *Pool) Stop() {
	p.once.Do(func() {
		close(p.shutdown)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(poolShutdownTimeout):
	}
	metrics.UpdateWorkerCount(0)
}
