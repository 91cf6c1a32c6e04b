// Package model contains domain models passed between layers.
package model

import "time"

// Interaction kinds. Only quiz attempts drive mastery updates; every
// other kind is skipped by the consumer, not rejected.
const (
	KindQuizAttempt = "QUIZ_ATTEMPT"
)

// EventData carries the quiz-attempt payload of an interaction event.
// IsCorrect is a pointer so a missing flag is distinguishable from an
// explicit false; a nil flag makes the event malformed.
type EventData struct {
	ConceptID string `json:"conceptId" validate:"required"`
	IsCorrect *bool  `json:"isCorrect" validate:"required"`
}

// InteractionEvent is an immutable fact emitted by an upstream system.
// Unknown wire fields are ignored on decode.
type InteractionEvent struct {
	EventID         string    `json:"eventId"`
	InteractionType string    `json:"interactionType" validate:"required"`
	UserID          string    `json:"userId" validate:"required"`
	Data            EventData `json:"data"`
	TS              time.Time `json:"ts"`
}

// IsQuizAttempt reports whether the event should drive a mastery update.
func (e *InteractionEvent) IsQuizAttempt() bool {
	return e.InteractionType == KindQuizAttempt
}
