// Package consumer runs the event consumers that turn queued
// interaction events into mastery updates.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"

	"github.com/lernado/sage/internal/adapters/repository"
	"github.com/lernado/sage/internal/domain/dedupe"
	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/pkg/logger"
	"github.com/lernado/sage/pkg/metrics"
)

// Default consumer configuration constants.
const (
	defaultConsumerMultiplier = 2 // multiplier for runtime.NumCPU()
	defaultApplyRetries       = 3
	consumerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout       = 30 * time.Second
)

// Skip reasons reported on the events_skipped metric.
const (
	skipDuplicate   = "duplicate"
	skipKind        = "kind"
	skipMalformed   = "malformed"
	skipUnknownUser = "unknown_user"
)

// Event abstracts what consumers read off the queue.
type Event = model.InteractionEvent

// Applier folds a validated quiz attempt into a learner's mastery.
type Applier interface {
	ApplyAttempt(ctx context.Context, userID, conceptID string, correct bool) (float64, error)
}

// ActivityRecorder logs processed interactions for report windows.
type ActivityRecorder interface {
	RecordInteraction(ctx context.Context, i *model.Interaction) error
}

// Queue defines how consumers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Consumer processes events one at a time: fetch, validate, apply.
// A skipped event is an expected outcome and never stops the loop; a
// persistence failure is retried and the event dropped only when
// retries are exhausted.
type Consumer struct {
	queue    Queue
	applier  Applier
	activity ActivityRecorder
	deduper  dedupe.Deduper
	validate *validator.Validate

	name         string
	applyRetries uint64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a consumer with configuration options.
func New(q Queue, applier Applier, activity ActivityRecorder, opts ...Option) *Consumer {
	c := &Consumer{
		queue:        q,
		applier:      applier,
		activity:     activity,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		name:         "consumer",
		applyRetries: defaultApplyRetries,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		logger:       logger.Named("consumer"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.name != "consumer" {
		c.logger = c.logger.Named(c.name)
	}

	return c
}

// Run starts the consumer loop. Cancellation is observed between
// events, never in the middle of one.
func (c *Consumer) Run(ctx context.Context) {
	defer close(c.done)

	eventChan := c.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := c.processEvent(ctx, event); err != nil {
				c.logger.Error(ctx, "error processing event", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the consumer.
func (c *Consumer) Shutdown(ctx context.Context) error {
	close(c.shutdown)

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		c.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent handles a single event.
func (c *Consumer) processEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if c.deduper != nil && event.EventID != "" && c.deduper.SeenAndRecord(ctx, event.EventID) {
		c.skip(ctx, event, skipDuplicate)
		return nil
	}

	if !event.IsQuizAttempt() {
		c.skip(ctx, event, skipKind)
		return nil
	}

	if err := c.validate.Struct(&event); err != nil {
		c.skip(ctx, event, skipMalformed)
		return nil
	}

	posterior, err := c.apply(ctx, event)
	if errors.Is(err, repository.ErrProfileNotFound) {
		c.skip(ctx, event, skipUnknownUser)
		return nil
	}
	if err != nil {
		// Retries exhausted: drop the event, forget its ID so a
		// redelivery gets a fresh chance.
		if c.deduper != nil && event.EventID != "" {
			c.deduper.Unrecord(ctx, event.EventID)
		}
		metrics.RecordEventDropped()
		metrics.RecordConsumerError()
		c.logger.Error(ctx, "dropping event after retries",
			logger.String("eventID", event.EventID),
			logger.String("userID", event.UserID),
			logger.Error(err),
		)
		return fmt.Errorf("apply event %s: %w", event.EventID, err)
	}

	if c.activity != nil {
		if err := c.activity.RecordInteraction(ctx, &model.Interaction{
			ID:        event.EventID,
			UserID:    event.UserID,
			CreatedAt: eventTime(event),
		}); err != nil {
			// Activity counts are advisory; mastery already committed.
			c.logger.Warn(ctx, "record interaction failed",
				logger.String("eventID", event.EventID),
				logger.Error(err),
			)
		}
	}

	metrics.RecordEventConsumed()
	metrics.RecordMasteryUpdate()
	c.logger.Debug(ctx, "mastery updated",
		logger.String("userID", event.UserID),
		logger.String("conceptID", event.Data.ConceptID),
		logger.Float64("mastery", posterior),
	)
	return nil
}

// apply runs the mastery update with bounded retries on transient
// persistence failures. A missing profile is permanent.
func (c *Consumer) apply(ctx context.Context, event Event) (float64, error) {
	var posterior float64
	operation := func() error {
		p, err := c.applier.ApplyAttempt(ctx, event.UserID, event.Data.ConceptID, *event.Data.IsCorrect)
		if err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		posterior = p
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.applyRetries),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		return 0, err
	}
	return posterior, nil
}

func (c *Consumer) skip(ctx context.Context, event Event, reason string) {
	metrics.RecordEventSkipped(reason)
	c.logger.Debug(ctx, "event skipped",
		logger.String("eventID", event.EventID),
		logger.String("reason", reason),
	)
}

func eventTime(event Event) time.Time {
	if event.TS.IsZero() {
		return time.Now().UTC()
	}
	return event.TS
}

// Pool manages multiple consumers over one queue.
type Pool struct {
	consumers []*Consumer
	queue     Queue

	logger logger.Logger
}

// NewPool creates a pool of consumerCount consumers. A non-positive
// count defaults to twice the CPU count. Options are applied to every
// consumer, so a shared deduper belongs here.
func NewPool(consumerCount int, q Queue, applier Applier, activity ActivityRecorder, opts ...Option) *Pool {
	if consumerCount < 1 {
		consumerCount = runtime.NumCPU() * defaultConsumerMultiplier
	}

	pool := &Pool{
		consumers: make([]*Consumer, consumerCount),
		queue:     q,
		logger:    logger.Named("consumer-pool"),
	}

	for i := 0; i < consumerCount; i++ {
		withName := append([]Option{}, opts...)
		withName = append(withName, WithName("consumer-"+strconv.Itoa(i)))
		pool.consumers[i] = New(q, applier, activity, withName...)
	}

	metrics.UpdateConsumerCount(consumerCount)

	return pool
}

// Start starts all consumers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, c := range p.consumers {
		go c.Run(ctx)
	}
}

// Shutdown gracefully shuts down the pool. The queue is closed first so
// consumers drain buffered events before stopping.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, c := range p.consumers {
		select {
		case <-c.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "consumer shutdown timed out", logger.Int("consumer_id", i))
		case <-time.After(consumerShutdownTimeout):
			p.logger.Warn(ctx, "consumer shutdown timed out", logger.Int("consumer_id", i))
		}
	}

	metrics.UpdateConsumerCount(0)
	return nil
}
