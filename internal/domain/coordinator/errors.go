package coordinator

import "errors"

// Sentinel error kinds for this package. Callers use errors.Is.
var (
	ErrSchemaViolation = errors.New("verdict batch schema violation")
)
