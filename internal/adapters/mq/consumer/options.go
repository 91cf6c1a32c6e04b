// Package consumer runs the event consumers that turn queued
// interaction events into mastery updates.
package consumer

import (
	"github.com/lernado/sage/internal/domain/dedupe"
	"github.com/lernado/sage/pkg/logger"
)

// Option applies a configuration option to a Consumer.
type Option func(*Consumer)

// WithName sets the consumer name for identification and logging.
func WithName(name string) Option {
	return func(c *Consumer) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets a custom logger for the consumer.
func WithLogger(l logger.Logger) Option {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDeduper installs idempotency tracking. Pass the same instance to
// every consumer in a pool.
func WithDeduper(d dedupe.Deduper) Option {
	return func(c *Consumer) {
		c.deduper = d
	}
}

// WithApplyRetries bounds retries on transient persistence failures
// before an event is dropped.
func WithApplyRetries(n int) Option {
	return func(c *Consumer) {
		if n > 0 {
			c.applyRetries = uint64(n)
		}
	}
}
