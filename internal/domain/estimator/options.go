package estimator

// Option applies a configuration option to the BKT estimator.
type Option func(*BKT)

// WithLearnProbability overrides the learning-transition probability.
func WithLearnProbability(p float64) Option {
	return func(b *BKT) { b.pLearn = p }
}

// WithSlipProbability overrides the slip probability.
func WithSlipProbability(p float64) Option {
	return func(b *BKT) { b.pSlip = p }
}

// WithGuessProbability overrides the guess probability.
func WithGuessProbability(p float64) Option {
	return func(b *BKT) { b.pGuess = p }
}
