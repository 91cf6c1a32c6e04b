package model

import "time"

// ConceptMastery is one row of the per-concept breakdown included in
// detailed reports.
type ConceptMastery struct {
	ConceptID string  `json:"conceptId"`
	Mastery   float64 `json:"mastery"`
}

// Report is an immutable progress snapshot. Strengths hold concepts at
// or above the mastery threshold, weaknesses those below the weakness
// threshold; concepts in between appear in neither list.
type Report struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	GeneratedAt     time.Time `json:"generatedAt"`
	Strengths       []string  `json:"strengths"`
	Weaknesses      []string  `json:"weaknesses"`
	ActivityCount   int       `json:"activityCount"`
	EngagementScore float64   `json:"engagementScore"`
	Summary         string    `json:"summary"`

	// Concepts is populated only for the detailed access tier.
	Concepts []ConceptMastery `json:"concepts,omitempty"`
}
