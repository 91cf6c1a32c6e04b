// Package estimator implements the per-concept mastery update: a
// simplified Bayesian Knowledge Tracing step over a two-state
// knows / does-not-know model.
package estimator

import (
	"fmt"
	"math"
)

// DefaultPrior is the mastery probability assumed for a concept the
// learner has never been observed on.
const DefaultPrior = 0.10

// Default model parameters.
const (
	defaultPLearn = 0.10 // transition to "knows" after an attempt, regardless of outcome
	defaultPSlip  = 0.15 // incorrect answer despite knowing
	defaultPGuess = 0.25 // correct answer despite not knowing
)

// roundFactor fixes stored probabilities to 4 decimal places. This
// stabilizes the persisted representation; it is not part of the math.
const roundFactor = 1e4

// BKT performs Bayesian Knowledge Tracing updates. It is deterministic,
// side-effect-free and safe for concurrent use.
type BKT struct {
	pLearn float64
	pSlip  float64
	pGuess float64
}

// New creates an estimator, validating any overridden parameters.
func New(opts ...Option) (*BKT, error) {
	b := &BKT{
		pLearn: defaultPLearn,
		pSlip:  defaultPSlip,
		pGuess: defaultPGuess,
	}
	for _, opt := range opts {
		opt(b)
	}
	for name, p := range map[string]float64{
		"pLearn": b.pLearn,
		"pSlip":  b.pSlip,
		"pGuess": b.pGuess,
	} {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return nil, fmt.Errorf("%w: %s=%v outside [0,1]", ErrInvalidParams, name, p)
		}
	}
	return b, nil
}

// Update returns the posterior mastery probability after observing one
// quiz attempt. The prior is clamped into [0,1] and the result is
// rounded to 4 decimal places.
func (b *BKT) Update(prior float64, correct bool) float64 {
	prior = clamp01(prior)

	// Posterior probability of already knowing the concept given the
	// observed outcome, via Bayes' rule.
	var num, den float64
	if correct {
		num = prior * (1 - b.pSlip)
		den = num + (1-prior)*b.pGuess
	} else {
		num = prior * b.pSlip
		den = num + (1-prior)*(1-b.pGuess)
	}

	pKnow := prior
	if den > 0 {
		pKnow = num / den
	}
	// den == 0 only under degenerate parameter choices with prior at a
	// boundary; the prior itself is the correct posterior there.

	// Learning transition: a chance of acquiring the concept from the
	// attempt itself, independent of the outcome.
	posterior := pKnow + (1-pKnow)*b.pLearn

	return clamp01(math.Round(posterior*roundFactor) / roundFactor)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
