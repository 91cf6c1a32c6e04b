package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Breaker defaults.
const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
)

// Breaker wraps a Provider with a circuit breaker so a failing oracle
// sheds load instead of stacking up blocked requests. While the breaker
// is open every call fails fast with ErrUnavailable.
type Breaker struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker[string]

	failureThreshold uint32
	openTimeout      time.Duration
}

// BreakerOption applies a configuration option to the Breaker.
type BreakerOption func(*Breaker)

// WithFailureThreshold sets how many consecutive failures trip the
// breaker.
func WithFailureThreshold(n uint32) BreakerOption {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithOpenTimeout sets how long the breaker stays open before probing.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		if d > 0 {
			b.openTimeout = d
		}
	}
}

// NewBreaker decorates the given provider.
func NewBreaker(provider Provider, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		provider:         provider,
		failureThreshold: defaultFailureThreshold,
		openTimeout:      defaultOpenTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "oracle",
		Timeout: b.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.failureThreshold
		},
	})

	return b
}

// Complete forwards to the wrapped provider under breaker protection.
func (b *Breaker) Complete(ctx context.Context, system, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (string, error) {
		return b.provider.Complete(ctx, system, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return "", err
	}
	return out, nil
}

// State reports the breaker state for health output.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
