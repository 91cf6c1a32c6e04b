package llm

import "errors"

// Sentinel kinds for oracle errors.
var (
	ErrUnavailable   = errors.New("oracle unavailable")
	ErrRateLimited   = errors.New("oracle rate limited")
	ErrEmptyResponse = errors.New("oracle returned no content")
)
