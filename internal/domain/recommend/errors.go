package recommend

import "errors"

// Sentinel kinds for recommendation errors.
var (
	ErrNoContentForConcept = errors.New("no content for concept")
)
