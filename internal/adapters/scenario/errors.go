package scenario

import "errors"

// Sentinel kinds for scenario source errors.
var (
	ErrNotFound        = errors.New("scenario not found")
	ErrLoadCatalog     = errors.New("scenario catalog load failed")
	ErrInvalidScenario = errors.New("invalid scenario")
)
