// Package repository defines the session store interface and errors.
package repository

import (
	"context"

	"github.com/simclinic/woundsim/internal/domain/model"
	"github.com/simclinic/woundsim/internal/domain/procedure"
)

// RecordOutcome describes one committed append+advance.
type RecordOutcome struct {
	// Stage the result was recorded against.
	Stage procedure.Stage
	// Next is the session's new current stage when Advanced is true. When
	// the session was already terminal it equals Stage.
	Next procedure.Stage
	// Advanced reports whether the session moved to a successor stage.
	// Advancing past the terminal stage is a no-op, not an error.
	Advanced bool
	// LogLen is the length of the result log after the append.
	LogLen int
}

// Store owns session identity, current stage and the append-only result log.
// All mutation of a single session is serialized by the implementation;
// concurrent RecordStageResult calls on the same id never drop or duplicate
// a log entry.
type Store interface {
	// Create allocates a fresh session at the initial stage with an empty log.
	Create(ctx context.Context, scenarioID, studentID string) (model.Session, error)

	// Get returns a read-only copy of the session. Absence is a normal
	// outcome, signaled by ok=false rather than an error.
	Get(ctx context.Context, sessionID string) (model.Session, bool)

	// RecordStageResult appends (current stage, result) to the session's log
	// and advances to the successor stage when one exists. Returns
	// ErrNotFound for unknown sessions.
	RecordStageResult(ctx context.Context, sessionID string, result model.AggregateResult) (RecordOutcome, error)

	// Count returns the number of sessions tracked by the store.
	Count(ctx context.Context) int
}
