package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrProfileNotFound = errors.New("learner profile not found")
	ErrProfileExists   = errors.New("learner profile already exists")
	ErrContentNotFound = errors.New("content not found")
	ErrReportNotFound  = errors.New("report not found")

	// ErrWriteConflict marks an optimistic transaction that lost to a
	// concurrent writer; the operation is safe to retry.
	ErrWriteConflict = errors.New("write conflict")
)
