package retrieval

import "errors"

// Sentinel kinds for retrieval errors.
var (
	ErrUnavailable = errors.New("retrieval source unavailable")
)
