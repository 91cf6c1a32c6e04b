package dedupe

// Option configures the deduper's bound.
type Option func(maxSize int) int

// WithMaxSize sets how many IDs are remembered before the oldest are
// evicted. Zero or negative disables eviction.
func WithMaxSize(n int) Option {
	return func(int) int {
		return n
	}
}
