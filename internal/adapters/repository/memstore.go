package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/simclinic/woundsim/internal/domain/model"
	"github.com/simclinic/woundsim/internal/domain/procedure"
	"github.com/simclinic/woundsim/pkg/metrics"
)

// Sharded, in-memory Store implementation.
//
// Sessions are partitioned across shards by FNV-1a of the session id, so
// unrelated sessions never contend on one lock. Each session record carries
// its own mutex; append+advance holds it for the whole mutation, which gives
// the all-or-nothing visibility RecordStageResult promises.

const defaultShardCount = 16

// sessionRecord is the store-owned mutable state for one session.
type sessionRecord struct {
	mu      sync.Mutex
	session model.Session
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
}

// MemStore implements Store in memory.
type MemStore struct {
	shards []*shard
	count  atomic.Int64
	now    func() time.Time
	newID  func() string
}

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithShardCount sets the number of shards in the session table.
func WithShardCount(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.shards = make([]*shard, n)
		}
	}
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides session id generation, for deterministic tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *MemStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewMemStore constructs an in-memory session store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		shards: make([]*shard, defaultShardCount),
		now:    time.Now,
		newID:  func() string { return "sess_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*sessionRecord)}
	}
	return s
}

func (s *MemStore) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Create implements Store.Create.
func (s *MemStore) Create(_ context.Context, scenarioID, studentID string) (model.Session, error) {
	now := s.now()
	sess := model.Session{
		ID:         s.newID(),
		ScenarioID: scenarioID,
		StudentID:  studentID,
		Stage:      procedure.Initial(),
		Log:        []model.StageRecord{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	sh := s.shardFor(sess.ID)
	sh.mu.Lock()
	sh.sessions[sess.ID] = &sessionRecord{session: sess}
	sh.mu.Unlock()

	total := s.count.Add(1)
	metrics.UpdateSessionCount(int(total))

	return sess.Clone(), nil
}

// Get implements Store.Get.
func (s *MemStore) Get(_ context.Context, sessionID string) (model.Session, bool) {
	sh := s.shardFor(sessionID)
	sh.mu.RLock()
	rec, ok := sh.sessions[sessionID]
	sh.mu.RUnlock()
	if !ok {
		return model.Session{}, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.session.Clone(), true
}

// RecordStageResult implements Store.RecordStageResult.
func (s *MemStore) RecordStageResult(_ context.Context, sessionID string, result model.AggregateResult) (RecordOutcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	sh := s.shardFor(sessionID)
	sh.mu.RLock()
	rec, ok := sh.sessions[sessionID]
	sh.mu.RUnlock()
	if !ok {
		return RecordOutcome{}, ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	stage := rec.session.Stage
	rec.session.Log = append(rec.session.Log, model.StageRecord{
		Stage:      stage,
		Evaluation: result.Clone(),
		RecordedAt: s.now(),
	})
	rec.session.UpdatedAt = s.now()

	out := RecordOutcome{
		Stage:  stage,
		Next:   stage,
		LogLen: len(rec.session.Log),
	}

	// A terminal stage has no successor; the append above still commits.
	if next, err := procedure.Next(stage); err == nil {
		rec.session.Stage = next
		out.Next = next
		out.Advanced = true
	}

	return out, nil
}

// Count implements Store.Count.
func (s *MemStore) Count(_ context.Context) int {
	return int(s.count.Load())
}
