package procedure

import "errors"

// Sentinel error kinds for this package. Callers use errors.Is.
var (
	ErrInvalidTransition = errors.New("invalid stage transition")
)
