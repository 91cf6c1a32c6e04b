// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lernado/sage/internal/adapters/mq/consumer"
	eventqueue "github.com/lernado/sage/internal/adapters/mq/queue"
	"github.com/lernado/sage/internal/adapters/repository"
	"github.com/lernado/sage/internal/domain/competence"
	"github.com/lernado/sage/internal/domain/dedupe"
	"github.com/lernado/sage/internal/domain/estimator"
	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/internal/domain/recommend"
	"github.com/lernado/sage/internal/domain/report"
	"github.com/lernado/sage/internal/llm"
	"github.com/lernado/sage/internal/quiz"
	"github.com/lernado/sage/pkg/logger"
	"github.com/lernado/sage/pkg/metrics"
)

// Queue backends.
const (
	BackendMemory    = "memory"
	BackendJetStream = "jetstream"
)

const reportJobTimeout = 30 * time.Second

// Service wires the learning engine together: repository, estimator,
// event queue, consumer pool and the read-side services.
type Service struct {
	mu sync.RWMutex

	// Core components
	repo       *repository.BadgerStore
	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	competence *competence.Store
	selector   *recommend.Selector
	aggregator *report.Aggregator
	quizzes    *quiz.Service
	pool       *consumer.Pool

	// Configuration
	consumerCount int
	queueSize     int
	dedupeSize    int
	maxRetries    int
	dataDir       string
	queueBackend  string
	natsURL       string
	natsStream    string
	natsSubject   string
	oracle        llm.Provider
	oracleAPIKey  string
	oracleBaseURL string
	oracleModel   string

	// State
	started    bool
	reportJobs sync.WaitGroup

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		consumerCount: runtime.NumCPU() * 2,
		queueSize:     100000,
		dedupeSize:    50000,
		maxRetries:    5,
		queueBackend:  BackendMemory,
		logger:        nil, // set on Start when not provided
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Named("app")
	}

	s.logger.Info(ctx, "starting learning engine...")

	repo, err := repository.NewBadgerStore(repository.WithDataDir(s.dataDir))
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	s.repo = repo

	est, err := estimator.New()
	if err != nil {
		_ = repo.Close()
		return fmt.Errorf("build estimator: %w", err)
	}

	s.competence = competence.New(est, repo,
		competence.WithMaxConflictRetries(s.maxRetries),
	)
	s.selector = recommend.New(s.competence, repo)
	s.aggregator = report.New(repo, repo, repo)

	s.deduper = dedupe.NewRingDeduper(dedupe.WithMaxSize(s.dedupeSize))

	switch s.queueBackend {
	case BackendJetStream:
		q, err := eventqueue.NewJetStreamQueue(s.natsURL,
			eventqueue.WithStream(s.natsStream),
			eventqueue.WithSubject(s.natsSubject),
		)
		if err != nil {
			_ = repo.Close()
			return fmt.Errorf("connect jetstream: %w", err)
		}
		s.eventQueue = q
	default:
		s.eventQueue = eventqueue.NewInMemoryQueue(
			eventqueue.WithCapacity(s.queueSize),
		)
	}

	if s.oracle == nil && s.oracleAPIKey != "" {
		provider, err := llm.NewOpenAIProvider(s.oracleAPIKey,
			llm.WithBaseURL(s.oracleBaseURL),
			llm.WithModel(s.oracleModel),
		)
		if err != nil {
			_ = repo.Close()
			return fmt.Errorf("build oracle: %w", err)
		}
		s.oracle = llm.NewBreaker(provider)
	}
	if s.oracle != nil {
		s.quizzes = quiz.New(s.oracle)
	}

	s.pool = consumer.NewPool(s.consumerCount, s.eventQueue, s.competence, repo,
		consumer.WithDeduper(s.deduper),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "learning engine started",
		logger.Int("consumers", s.consumerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("queueBackend", s.queueBackend),
		logger.Bool("oracle", s.oracle != nil),
	)

	return nil
}

// Stop gracefully shuts down the service. In-flight report jobs finish
// first, then consumers drain the queue, then storage closes.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping learning engine...")

	s.reportJobs.Wait()

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	if s.repo != nil {
		_ = s.repo.Close()
	}

	s.started = false
	s.logger.Info(ctx, "learning engine stopped")
}

// Enqueue submits an interaction event for asynchronous processing.
// Events without an ID get one so idempotency tracking has a handle.
func (s *Service) Enqueue(ctx context.Context, e model.InteractionEvent) bool {
	if e.EventID == "" {
		e.EventID = "evt_" + uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}

	ok := s.eventQueue.Enqueue(ctx, e)
	if !ok {
		s.logger.Warn(ctx, "event rejected by queue",
			logger.String("eventID", e.EventID),
			logger.String("userID", e.UserID),
		)
	}
	return ok
}

// CreateProfile provisions an empty learner profile.
func (s *Service) CreateProfile(ctx context.Context, userID string) (*model.LearnerProfile, error) {
	p := &model.LearnerProfile{
		ID:              "lp_" + uuid.NewString(),
		UserID:          userID,
		EngagementScore: 0.5,
		CompetenceMap:   model.CompetenceMap{},
		UpdatedAt:       time.Now().UTC(),
	}
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// PutContent registers a content node so it can be recommended.
func (s *Service) PutContent(ctx context.Context, node *model.ContentNode) error {
	if node.ID == "" {
		node.ID = "cn_" + uuid.NewString()
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now().UTC()
	}
	return s.repo.PutContent(ctx, node)
}

// Recommend returns the next content node for the user, or nil when
// everything is mastered.
func (s *Service) Recommend(ctx context.Context, userID string) (*model.ContentNode, error) {
	node, err := s.selector.Recommend(ctx, userID)
	switch {
	case err != nil:
		metrics.RecordRecommendation("error")
	case node == nil:
		metrics.RecordRecommendation("all_mastered")
	default:
		metrics.RecordRecommendation("ok")
	}
	return node, err
}

// TriggerReport queues report generation in the background and returns
// immediately.
func (s *Service) TriggerReport(userID string, tier report.Tier) {
	s.reportJobs.Add(1)
	go func() {
		defer s.reportJobs.Done()

		ctx, cancel := context.WithTimeout(context.Background(), reportJobTimeout)
		defer cancel()

		stored, err := s.aggregator.GenerateAndStore(ctx, userID, time.Now().UTC(), tier)
		if err != nil {
			metrics.RecordReportJobFailed()
			s.logger.Error(ctx, "report job failed",
				logger.String("userID", userID),
				logger.Error(err),
			)
			return
		}
		if !stored {
			s.logger.Debug(ctx, "report job produced nothing", logger.String("userID", userID))
		}
	}()
}

// LatestReport returns the most recent stored report for the user.
func (s *Service) LatestReport(ctx context.Context, userID string) (*model.Report, error) {
	return s.repo.LatestReport(ctx, userID)
}

// GenerateQuiz builds a quiz from source text via the oracle.
func (s *Service) GenerateQuiz(ctx context.Context, sourceText string) (*quiz.Quiz, error) {
	if s.quizzes == nil {
		return nil, fmt.Errorf("generate quiz: %w", llm.ErrUnavailable)
	}
	return s.quizzes.Generate(ctx, sourceText)
}

// EvaluateQuiz grades a quiz submission.
func (s *Service) EvaluateQuiz(ctx context.Context, questions []quiz.Question, answers []string) (*quiz.Evaluation, error) {
	if s.quizzes == nil {
		return nil, fmt.Errorf("evaluate quiz: %w", llm.ErrUnavailable)
	}
	return s.quizzes.Evaluate(ctx, questions, answers)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"consumerCount": s.consumerCount,
		"queueBackend":  s.queueBackend,
		"oracle":        s.oracle != nil,
	}

	if s.started {
		queueLen := s.eventQueue.Len(context.Background())
		stats["queueLength"] = queueLen
		stats["dedupeSize"] = s.deduper.Size()
		metrics.UpdateQueueDepth(queueLen)
	}

	return stats
}
