// Package queue defines the contract for enqueuing and consuming
// interaction events.
package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum capacity of the queue.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// JetStreamOption applies a configuration option to the JetStreamQueue.
type JetStreamOption func(*JetStreamQueue)

// WithStream sets the JetStream stream name.
func WithStream(name string) JetStreamOption {
	return func(q *JetStreamQueue) {
		if name != "" {
			q.stream = name
		}
	}
}

// WithSubject sets the subject events are published to and consumed from.
func WithSubject(subject string) JetStreamOption {
	return func(q *JetStreamQueue) {
		if subject != "" {
			q.subject = subject
		}
	}
}

// WithDurable sets the durable consumer name.
func WithDurable(name string) JetStreamOption {
	return func(q *JetStreamQueue) {
		if name != "" {
			q.durable = name
		}
	}
}
