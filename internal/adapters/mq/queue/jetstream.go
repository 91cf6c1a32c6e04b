package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/lernado/sage/pkg/logger"
	"github.com/lernado/sage/pkg/metrics"
)

const (
	defaultStream    = "INTERACTIONS"
	defaultSubject   = "interactions.events"
	defaultDurable   = "sage-engine"
	defaultFetchWait = 2 * time.Second
	fetchBatchSize   = 32
)

// JetStreamQueue implements Queue on a NATS JetStream stream with a
// durable pull consumer. Events survive process restarts; unacked
// deliveries are redelivered, which is where the at-least-once
// contract comes from.
type JetStreamQueue struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	stream  string
	subject string
	durable string
	logger  logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewJetStreamQueue connects to the broker, ensures the stream exists
// and binds a durable pull consumer to it.
func NewJetStreamQueue(url string, opts ...JetStreamOption) (*JetStreamQueue, error) {
	q := &JetStreamQueue{
		stream:  defaultStream,
		subject: defaultSubject,
		durable: defaultDurable,
		logger:  logger.Named("queue"),
	}
	for _, opt := range opts {
		opt(q)
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	if _, err := js.StreamInfo(q.stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			nc.Close()
			return nil, fmt.Errorf("stream info %s: %w", q.stream, err)
		}
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:      q.stream,
			Subjects:  []string{q.subject},
			Retention: nats.WorkQueuePolicy,
		}); err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream %s: %w", q.stream, err)
		}
	}

	sub, err := js.PullSubscribe(q.subject, q.durable, nats.BindStream(q.stream))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("pull subscribe %s: %w", q.subject, err)
	}

	q.nc = nc
	q.js = js
	q.sub = sub
	return q, nil
}

// Enqueue publishes the event to the stream.
func (q *JetStreamQueue) Enqueue(ctx context.Context, e Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}

	data, err := json.Marshal(e)
	if err != nil {
		metrics.RecordQueueEnqueueError()
		q.logger.Error(ctx, "marshal event", logger.Error(err))
		return false
	}

	if _, err := q.js.Publish(q.subject, data, nats.Context(ctx)); err != nil {
		metrics.RecordQueueEnqueueError()
		q.logger.Error(ctx, "publish event", logger.Error(err))
		return false
	}
	metrics.UpdateQueueDepth(q.Len(ctx))
	return true
}

// Dequeue returns a channel fed by a fetch loop against the durable
// consumer. Messages are acked only after the consumer goroutine has
// taken delivery of them.
func (q *JetStreamQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil || q.IsClosed() {
				return
			}

			msgs, err := q.sub.Fetch(fetchBatchSize, nats.MaxWait(defaultFetchWait))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
					return
				}
				q.logger.Warn(ctx, "fetch failed", logger.Error(err))
				continue
			}

			for _, msg := range msgs {
				var e Event
				if err := json.Unmarshal(msg.Data, &e); err != nil {
					// Poison payload: ack so it is not redelivered forever.
					q.logger.Error(ctx, "unmarshal event", logger.Error(err))
					_ = msg.Ack()
					continue
				}

				select {
				case out <- e:
					if err := msg.Ack(); err != nil {
						q.logger.Warn(ctx, "ack failed", logger.Error(err))
					}
				case <-ctx.Done():
					// Not acked: the broker redelivers it later.
					return
				}
			}
		}
	}()
	return out
}

// Len reports the number of messages pending on the durable consumer.
func (q *JetStreamQueue) Len(_ context.Context) int {
	info, err := q.sub.ConsumerInfo()
	if err != nil {
		return 0
	}
	return int(info.NumPending)
}

// Close drains the subscription and closes the connection.
func (q *JetStreamQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	if err := q.sub.Drain(); err != nil && !errors.Is(err, nats.ErrBadSubscription) {
		q.nc.Close()
		return fmt.Errorf("drain subscription: %w", err)
	}
	q.nc.Close()
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *JetStreamQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
