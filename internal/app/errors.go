package app

import (
	"errors"

	"github.com/simclinic/woundsim/internal/domain/coordinator"
)

// Sentinel kinds for orchestration errors.
var (
	ErrActionNotAllowed = errors.New("action not allowed at current stage")
)

// IsSchemaViolation reports whether err rejects a malformed verdict batch.
func IsSchemaViolation(err error) bool {
	return errors.Is(err, coordinator.ErrSchemaViolation)
}
