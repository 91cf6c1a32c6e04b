// Package repository defines the persistence contracts for learner
// profiles, content, interactions and reports, plus the Badger-backed
// implementation.
package repository

import (
	"context"
	"time"

	"github.com/lernado/sage/internal/domain/model"
)

// ProfileStore owns learner profile persistence. UpdateProfile applies
// the mutation inside a conflict-detected transaction so the whole
// competence map is written as a single atomic unit.
type ProfileStore interface {
	// GetProfile returns a point-in-time snapshot of the profile.
	// Returns ErrProfileNotFound for unknown users.
	GetProfile(ctx context.Context, userID string) (*model.LearnerProfile, error)

	// CreateProfile provisions a new profile. Returns ErrProfileExists
	// when the user already has one.
	CreateProfile(ctx context.Context, p *model.LearnerProfile) error

	// UpdateProfile loads the profile, applies mutate, and persists the
	// result transactionally. A concurrent conflicting write surfaces
	// as ErrWriteConflict; callers retry.
	UpdateProfile(ctx context.Context, userID string, mutate func(*model.LearnerProfile) error) (*model.LearnerProfile, error)
}

// ContentStore resolves concepts to teachable content.
type ContentStore interface {
	// PutContent stores a content node and indexes its concept binding.
	PutContent(ctx context.Context, n *model.ContentNode) error

	// FindContentByConcept returns one node whose metadata embeds the
	// concept, or ErrContentNotFound.
	FindContentByConcept(ctx context.Context, conceptID string) (*model.ContentNode, error)
}

// ActivityLog records learner interactions and answers windowed counts.
type ActivityLog interface {
	RecordInteraction(ctx context.Context, in *model.Interaction) error

	// CountInteractions counts interactions for userID with
	// CreatedAt in [from, to).
	CountInteractions(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// ReportStore persists generated progress reports.
type ReportStore interface {
	SaveReport(ctx context.Context, r *model.Report) error

	// LatestReport returns the most recent report for the user, or
	// ErrReportNotFound.
	LatestReport(ctx context.Context, userID string) (*model.Report, error)
}

// Store aggregates the persistence capabilities of the service.
type Store interface {
	ProfileStore
	ContentStore
	ActivityLog
	ReportStore

	Close() error
}
