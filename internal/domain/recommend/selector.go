// Package recommend picks the next concept a learner should work on
// and resolves it to a piece of content.
package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/lernado/sage/internal/adapters/repository"
	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/pkg/logger"
)

// MasteryThreshold is the probability at or above which a concept
// counts as mastered and stops being recommended.
const MasteryThreshold = 0.90

// CompetenceReader provides read-only competence snapshots.
type CompetenceReader interface {
	Read(ctx context.Context, userID string) (model.CompetenceMap, error)
}

// ContentFinder resolves a concept to a teachable content node.
type ContentFinder interface {
	FindContentByConcept(ctx context.Context, conceptID string) (*model.ContentNode, error)
}

// Selector implements the recommendation decision.
type Selector struct {
	competence CompetenceReader
	content    ContentFinder
	logger     logger.Logger
}

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithLogger sets a custom logger for the selector.
func WithLogger(l logger.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a selector over the given competence reader and content
// lookup.
func New(competence CompetenceReader, content ContentFinder, opts ...Option) *Selector {
	s := &Selector{
		competence: competence,
		content:    content,
		logger:     logger.Named("recommend"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectTarget returns the concept with the lowest mastery strictly
// below the mastery threshold, or "" when every observed concept is
// mastered (not an error). Ties on the minimum break by lexicographic
// concept id so repeated calls are deterministic; the order itself is a
// design choice, not a semantic requirement.
func (s *Selector) SelectTarget(ctx context.Context, userID string) (string, error) {
	snap, err := s.competence.Read(ctx, userID)
	if err != nil {
		return "", err
	}

	target := ""
	lowest := MasteryThreshold
	for concept, mastery := range snap {
		if mastery >= MasteryThreshold {
			continue
		}
		if mastery < lowest || (mastery == lowest && (target == "" || concept < target)) {
			target = concept
			lowest = mastery
		}
	}
	return target, nil
}

// Recommend resolves the selected target to a content node. It returns
// (nil, nil) when the learner has mastered everything, and
// ErrNoContentForConcept when a weak concept has no teachable content.
func (s *Selector) Recommend(ctx context.Context, userID string) (*model.ContentNode, error) {
	target, err := s.SelectTarget(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, nil
	}

	node, err := s.content.FindContentByConcept(ctx, target)
	if errors.Is(err, repository.ErrContentNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoContentForConcept, target)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "recommended content",
		logger.String("userID", userID),
		logger.String("conceptID", target),
		logger.String("contentNodeID", node.ID),
	)
	return node, nil
}
