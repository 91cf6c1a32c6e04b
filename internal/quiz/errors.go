package quiz

import "errors"

// Sentinel kinds for quiz errors.
var (
	ErrSourceTooShort  = errors.New("source text too short to generate a meaningful quiz")
	ErrBadOracleOutput = errors.New("oracle output is not a valid quiz")
	ErrAnswerMismatch  = errors.New("answers do not match questions")
)
