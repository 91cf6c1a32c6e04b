// Package report builds progress summaries from competence snapshots
// and recent activity.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lernado/sage/internal/adapters/repository"
	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/pkg/logger"
	"github.com/lernado/sage/pkg/metrics"
)

// Mastery bands. Concepts in [WeaknessThreshold, StrengthThreshold)
// are neither strengths nor weaknesses.
const (
	StrengthThreshold = 0.90
	WeaknessThreshold = 0.60
)

// activityWindow is the trailing window reported on.
const activityWindow = 7 * 24 * time.Hour

// Tier selects how much detail the caller is entitled to. It is a
// caller-supplied policy, not a property of the data.
type Tier string

const (
	TierFree     Tier = "free"
	TierDetailed Tier = "detailed"
)

// ProfileReader provides profile snapshots for aggregation.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*model.LearnerProfile, error)
}

// ActivityCounter answers windowed interaction counts.
type ActivityCounter interface {
	CountInteractions(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// Sink persists generated reports.
type Sink interface {
	SaveReport(ctx context.Context, r *model.Report) error
}

// Aggregator produces learner progress reports.
type Aggregator struct {
	profiles ProfileReader
	activity ActivityCounter
	sink     Sink
	logger   logger.Logger
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLogger sets a custom logger for the aggregator.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an aggregator. sink may be nil when callers only ever
// Generate without persisting.
func New(profiles ProfileReader, activity ActivityCounter, sink Sink, opts ...Option) *Aggregator {
	a := &Aggregator{
		profiles: profiles,
		activity: activity,
		sink:     sink,
		logger:   logger.Named("report"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate builds a report as of the given instant. A missing profile
// or an empty competence map yields (nil, nil): nothing to report,
// which callers must distinguish from failure.
func (a *Aggregator) Generate(ctx context.Context, userID string, asOf time.Time, tier Tier) (*model.Report, error) {
	profile, err := a.profiles.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(profile.CompetenceMap) == 0 {
		return nil, nil
	}

	var strengths, weaknesses []string
	for concept, mastery := range profile.CompetenceMap {
		switch {
		case mastery >= StrengthThreshold:
			strengths = append(strengths, concept)
		case mastery < WeaknessThreshold:
			weaknesses = append(weaknesses, concept)
		}
	}
	sort.Strings(strengths)
	sort.Strings(weaknesses)

	count, err := a.activity.CountInteractions(ctx, userID, asOf.Add(-activityWindow), asOf)
	if err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}

	r := &model.Report{
		ID:              "rep_" + uuid.NewString(),
		UserID:          userID,
		GeneratedAt:     asOf,
		Strengths:       strengths,
		Weaknesses:      weaknesses,
		ActivityCount:   count,
		EngagementScore: profile.EngagementScore,
		Summary:         fmt.Sprintf("You completed %d activities this week. Great job!", count),
	}

	if tier == TierDetailed {
		concepts := make([]model.ConceptMastery, 0, len(profile.CompetenceMap))
		for concept, mastery := range profile.CompetenceMap {
			concepts = append(concepts, model.ConceptMastery{ConceptID: concept, Mastery: mastery})
		}
		sort.Slice(concepts, func(i, j int) bool {
			return concepts[i].ConceptID < concepts[j].ConceptID
		})
		r.Concepts = concepts
	}

	return r, nil
}

// GenerateAndStore runs Generate and persists any produced report.
// It reports whether a report was written.
func (a *Aggregator) GenerateAndStore(ctx context.Context, userID string, asOf time.Time, tier Tier) (bool, error) {
	r, err := a.Generate(ctx, userID, asOf, tier)
	if err != nil {
		return false, err
	}
	if r == nil {
		a.logger.Debug(ctx, "nothing to report", logger.String("userID", userID))
		return false, nil
	}
	if a.sink == nil {
		return false, fmt.Errorf("generate report: no sink configured")
	}
	if err := a.sink.SaveReport(ctx, r); err != nil {
		return false, fmt.Errorf("save report: %w", err)
	}
	metrics.RecordReportGenerated()
	return true, nil
}
