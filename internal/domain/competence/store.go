// Package competence owns write access to learner competence maps. All
// mastery updates flow through ApplyAttempt; every other component only
// ever sees read-only snapshots.
package competence

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/lernado/sage/internal/adapters/repository"
	"github.com/lernado/sage/internal/domain/estimator"
	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/pkg/logger"
	"github.com/lernado/sage/pkg/metrics"
)

const defaultMaxConflictRetries = 5

// Store applies estimator updates to persisted learner profiles.
type Store struct {
	est      *estimator.BKT
	profiles repository.ProfileStore

	maxConflictRetries uint64
	logger             logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithMaxConflictRetries bounds retries on optimistic write conflicts.
func WithMaxConflictRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxConflictRetries = uint64(n)
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a competence store over the given estimator and profile
// persistence.
func New(est *estimator.BKT, profiles repository.ProfileStore, opts ...Option) *Store {
	s := &Store{
		est:                est,
		profiles:           profiles,
		maxConflictRetries: defaultMaxConflictRetries,
		logger:             logger.Named("competence"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyAttempt folds one observed quiz attempt into the user's mastery
// of the concept and persists the whole competence map atomically.
// Unknown concepts start at the estimator's default prior. A write
// conflict with a concurrent consumer is retried with exponential
// backoff so update order can never lose an update.
func (s *Store) ApplyAttempt(ctx context.Context, userID, conceptID string, correct bool) (float64, error) {
	if userID == "" || conceptID == "" {
		return 0, fmt.Errorf("apply attempt: missing user or concept id")
	}

	var posterior float64
	operation := func() error {
		updated, err := s.profiles.UpdateProfile(ctx, userID, func(p *model.LearnerProfile) error {
			prior, ok := p.CompetenceMap[conceptID]
			if !ok {
				prior = estimator.DefaultPrior
			}
			if p.CompetenceMap == nil {
				p.CompetenceMap = model.CompetenceMap{}
			}
			p.CompetenceMap[conceptID] = s.est.Update(prior, correct)
			return nil
		})
		if err != nil {
			if errors.Is(err, repository.ErrWriteConflict) {
				metrics.RecordConflictRetry()
				s.logger.Debug(ctx, "profile write conflict, retrying",
					logger.String("userID", userID),
					logger.String("conceptID", conceptID),
				)
				return err
			}
			return backoff.Permanent(err)
		}
		posterior = updated.CompetenceMap[conceptID]
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxConflictRetries),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		return 0, err
	}
	return posterior, nil
}

// Read returns a point-in-time snapshot of the user's competence map.
func (s *Store) Read(ctx context.Context, userID string) (model.CompetenceMap, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.CompetenceMap.Clone(), nil
}
