// Package app provides the core business service that implements the
// dependencies required by the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/simclinic/woundsim/internal/adapters/audit"
	"github.com/simclinic/woundsim/internal/adapters/repository"
	"github.com/simclinic/woundsim/internal/adapters/retrieval"
	"github.com/simclinic/woundsim/internal/adapters/scenario"
	"github.com/simclinic/woundsim/internal/domain/coordinator"
	"github.com/simclinic/woundsim/internal/domain/dedupe"
	"github.com/simclinic/woundsim/internal/domain/model"
	"github.com/simclinic/woundsim/internal/domain/procedure"
	"github.com/simclinic/woundsim/pkg/logger"
	"github.com/simclinic/woundsim/pkg/metrics"
)

// Submission outcome labels used for metrics.
const (
	statusOK              = "ok"
	statusActionRejected  = "action_rejected"
	statusSchemaViolation = "schema_violation"
)

// SubmitRequest is one stage submission for a session. Action and Transcript
// are both optional; verdicts are produced by external evaluator agents and
// arrive precomputed.
type SubmitRequest struct {
	SessionID  string
	Action     string
	Transcript string
	Verdicts   []model.Verdict
}

// SubmitResult is the response to one stage submission.
type SubmitResult struct {
	SessionID  string
	Stage      procedure.Stage
	Evaluation model.AggregateResult
	NextStage  *procedure.Stage
	Context    []model.ContextChunk
}

// Service sequences scenario lookup, retrieval, aggregation and the session
// store for the training API.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	scenarios scenario.Source
	retriever retrieval.Retriever
	coord     *coordinator.Coordinator
	deduper   dedupe.Deduper

	// Audit export pipeline
	auditQueue *audit.InMemoryQueue
	auditPool  *audit.Pool

	// Configuration
	scenarioDir          string
	shardCount           int
	dedupeSize           int
	retrievalTopK        int
	retrievalTimeout     time.Duration
	retrievalLatencyMin  time.Duration
	retrievalLatencyMax  time.Duration
	retrievalFailureRate float64
	agentWeights         map[string]float64
	defaultAgentWeight   float64
	auditQueueCapacity   int
	auditWorkerCount     int
	injectedRetriever    retrieval.Retriever
	injectedScenarioSrc  scenario.Source
	injectedSessionStore repository.Store

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		shardCount:          16,
		dedupeSize:          50_000,
		retrievalTopK:       5,
		retrievalTimeout:    2 * time.Second,
		retrievalLatencyMin: 20 * time.Millisecond,
		retrievalLatencyMax: 60 * time.Millisecond,
		defaultAgentWeight:  1.0,
		auditQueueCapacity:  10_000,
		auditWorkerCount:    2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting training service...")

	s.store = s.injectedSessionStore
	if s.store == nil {
		s.store = repository.NewMemStore(repository.WithShardCount(s.shardCount))
	}

	s.scenarios = s.injectedScenarioSrc
	if s.scenarios == nil {
		catOpts := []scenario.Option{scenario.WithBuiltinDemo()}
		if s.scenarioDir != "" {
			catOpts = append(catOpts, scenario.WithDir(s.scenarioDir))
		}
		cat, err := scenario.NewCatalog(catOpts...)
		if err != nil {
			return fmt.Errorf("scenario catalog: %w", err)
		}
		s.scenarios = cat
	}

	s.retriever = s.injectedRetriever
	if s.retriever == nil {
		s.retriever = retrieval.NewInMemoryRetriever(
			retrieval.WithLatencyRange(s.retrievalLatencyMin, s.retrievalLatencyMax),
			retrieval.WithFailureRate(s.retrievalFailureRate),
		)
	}

	var coordOpts []coordinator.Option
	if len(s.agentWeights) > 0 {
		coordOpts = append(coordOpts, coordinator.WithAgentWeights(s.agentWeights, s.defaultAgentWeight))
	}
	s.coord = coordinator.New(coordOpts...)

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	s.auditQueue = audit.NewInMemoryQueue(audit.WithCapacity(s.auditQueueCapacity))
	s.auditPool = audit.NewPool(s.auditQueue, s.auditWorkerCount, audit.WithLogger(s.logger.Named("audit")))
	s.auditPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "training service started",
		logger.Int("shards", s.shardCount),
		logger.Int("retrievalTopK", s.retrievalTopK),
		logger.Int("auditWorkers", s.auditWorkerCount),
		logger.Int("scenarios", len(s.scenarios.List(ctx))),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping training service...")

	if s.auditQueue != nil {
		_ = s.auditQueue.Close()
	}
	if s.auditPool != nil {
		s.auditPool.Stop()
	}

	s.started = false
	s.logger.Info(ctx, "training service stopped")
}

// StartSession creates a session for scenarioID and studentID. An unknown
// scenario is fatal to the request and surfaces scenario.ErrNotFound.
func (s *Service) StartSession(ctx context.Context, scenarioID, studentID string) (model.Session, error) {
	if _, err := s.scenarios.Load(ctx, scenarioID); err != nil {
		return model.Session{}, err
	}

	sess, err := s.store.Create(ctx, scenarioID, studentID)
	if err != nil {
		return model.Session{}, err
	}

	metrics.RecordSessionStarted()
	s.logger.Info(ctx, "session started",
		logger.String("session_id", sess.ID),
		logger.String("scenario_id", scenarioID),
		logger.String("student_id", studentID),
	)
	return sess, nil
}

// GetSession returns a read-only copy of the session; absence is signaled by
// ok=false, not an error.
func (s *Service) GetSession(ctx context.Context, sessionID string) (model.Session, bool) {
	return s.store.Get(ctx, sessionID)
}

// GetScenario resolves scenario metadata by id.
func (s *Service) GetScenario(ctx context.Context, scenarioID string) (model.Scenario, error) {
	return s.scenarios.Load(ctx, scenarioID)
}

// ListScenarios returns all known scenario ids.
func (s *Service) ListScenarios(ctx context.Context) []string {
	return s.scenarios.List(ctx)
}

// SubmitStage evaluates one stage submission: validate the action against
// the current stage, validate and aggregate the verdict batch, resolve
// retrieval context for the transcript if one was supplied, then commit the
// result to the session log. Nothing is committed on any rejection.
func (s *Service) SubmitStage(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	sess, ok := s.store.Get(ctx, req.SessionID)
	if !ok {
		return SubmitResult{}, fmt.Errorf("%w: %s", repository.ErrNotFound, req.SessionID)
	}
	stage := sess.Stage

	if req.Action != "" && !procedure.IsActionAllowed(stage, req.Action) {
		metrics.RecordStageSubmission(string(stage), statusActionRejected)
		return SubmitResult{}, fmt.Errorf("%w: %q at stage %s", ErrActionNotAllowed, req.Action, stage)
	}

	if err := coordinator.ValidateBatch(req.Verdicts); err != nil {
		metrics.RecordStageSubmission(string(stage), statusSchemaViolation)
		return SubmitResult{}, err
	}

	chunks := s.resolveContext(ctx, req.Transcript, sess.ScenarioID)
	// A cancelled submission must not reach the store; check after the only
	// suspension point on this path.
	if err := ctx.Err(); err != nil {
		return SubmitResult{}, err
	}

	for _, v := range req.Verdicts {
		metrics.RecordVerdict(v.Agent)
	}
	evaluation := s.coord.Aggregate(req.Verdicts)

	outcome, err := s.store.RecordStageResult(ctx, req.SessionID, evaluation)
	if err != nil {
		return SubmitResult{}, err
	}
	metrics.RecordStageSubmission(string(outcome.Stage), statusOK)

	completed := outcome.Advanced && outcome.Next == procedure.Completed
	s.auditQueue.Enqueue(ctx, model.AuditRecord{
		SessionID:  sess.ID,
		ScenarioID: sess.ScenarioID,
		StudentID:  sess.StudentID,
		Stage:      outcome.Stage,
		Score:      evaluation.FinalScore,
		Agents:     len(req.Verdicts),
		Completed:  completed,
		RecordedAt: time.Now(),
	})

	res := SubmitResult{
		SessionID:  sess.ID,
		Stage:      outcome.Stage,
		Evaluation: evaluation,
		Context:    chunks,
	}
	if outcome.Advanced {
		next := outcome.Next
		res.NextStage = &next
	}
	return res, nil
}

// resolveContext fetches retrieval context for a transcript. No transcript
// means retrieval is skipped entirely. A retrieval failure degrades to empty
// context: the verdicts remain the primary signal and the stage evaluation
// proceeds.
func (s *Service) resolveContext(ctx context.Context, transcript, scenarioID string) []model.ContextChunk {
	if transcript == "" {
		return []model.ContextChunk{}
	}

	rctx, cancel := context.WithTimeout(ctx, s.retrievalTimeout)
	defer cancel()

	start := time.Now()
	chunks, err := s.retriever.Context(rctx, transcript, scenarioID, s.retrievalTopK)
	metrics.RecordRetrievalLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordRetrievalFailure()
		s.logger.Warn(ctx, "retrieval failed; using empty context",
			logger.String("scenario_id", scenarioID),
			logger.Error(err),
		)
		return []model.ContextChunk{}
	}
	return chunks
}

// SeenAndRecord atomically checks and records a submission id. Returns true
// if the id was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDuplicateSubmission()
	}
	metrics.UpdateDedupeSize(s.deduper.Size())
	return seen
}

// Unrecord removes a submission id, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
	metrics.UpdateDedupeSize(s.deduper.Size())
}

// Size returns the number of tracked submission ids.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"auditWorkers": s.auditWorkerCount,
	}
	if s.started {
		stats["sessions"] = s.store.Count(ctx)
		stats["scenarios"] = len(s.scenarios.List(ctx))
		stats["auditQueueLength"] = s.auditQueue.Len(ctx)
		stats["dedupeSize"] = s.deduper.Size()

		metrics.UpdateSessionCount(s.store.Count(ctx))
		metrics.UpdateAuditQueueSize(s.auditQueue.Len(ctx))
	}
	return stats
}

// IsNotFound reports whether err is any of the service's not-found kinds.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, scenario.ErrNotFound)
}
