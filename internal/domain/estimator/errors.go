package estimator

import "errors"

// Sentinel kinds for estimator errors.
var (
	ErrInvalidParams = errors.New("invalid estimator parameters")
)
