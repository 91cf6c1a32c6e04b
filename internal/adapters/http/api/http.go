// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lernado/sage/internal/adapters/repository"
	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/internal/domain/recommend"
	"github.com/lernado/sage/internal/domain/report"
	"github.com/lernado/sage/internal/llm"
	"github.com/lernado/sage/internal/quiz"
)

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to implementations in other
// packages.
type Dependencies interface {
	// Enqueue pushes an event for async processing. Returns false on
	// backpressure.
	Enqueue(ctx context.Context, e model.InteractionEvent) bool

	// Provisioning operations.
	CreateProfile(ctx context.Context, userID string) (*model.LearnerProfile, error)
	PutContent(ctx context.Context, node *model.ContentNode) error

	// Read operations.
	Recommend(ctx context.Context, userID string) (*model.ContentNode, error)
	LatestReport(ctx context.Context, userID string) (*model.Report, error)

	// Report jobs run in the background; triggering returns at once.
	TriggerReport(userID string, tier report.Tier)

	// Quiz operations backed by the oracle.
	GenerateQuiz(ctx context.Context, sourceText string) (*quiz.Quiz, error)
	EvaluateQuiz(ctx context.Context, questions []quiz.Question, answers []string) (*quiz.Evaluation, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	eventsHandler  *EventsHandler
	learnerHandler *LearnerHandler
	reportsHandler *ReportsHandler
	quizHandler    *QuizHandler

	apiKey string
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithAPIKey protects every business route with an internal API key
// check. Empty disables the check.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.apiKey = key
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		eventsHandler:  NewEventsHandler(deps),
		learnerHandler: NewLearnerHandler(deps),
		reportsHandler: NewReportsHandler(deps),
		quizHandler:    NewQuizHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux. Health and metrics stay
// outside the API key check so probes and scrapers keep working.
func (s *Server) Register(mux *http.ServeMux) {
	protected := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return MetricsMiddleware(APIKeyMiddleware(h, s.apiKey), endpoint)
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/events", protected(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/profiles", protected(s.learnerHandler.HandlePostProfile, "profiles"))
	mux.HandleFunc("/content", protected(s.learnerHandler.HandlePostContent, "content"))
	mux.HandleFunc("/recommend", protected(s.learnerHandler.HandleRecommend, "recommend"))
	mux.HandleFunc("/reports/generate", protected(s.reportsHandler.HandleGenerate, "reports_generate"))
	mux.HandleFunc("/reports/latest", protected(s.reportsHandler.HandleLatest, "reports_latest"))
	mux.HandleFunc("/quiz/generate", protected(s.quizHandler.HandleGenerate, "quiz_generate"))
	mux.HandleFunc("/quiz/evaluate", protected(s.quizHandler.HandleEvaluate, "quiz_evaluate"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrProfileNotFound),
		errors.Is(err, repository.ErrReportNotFound),
		errors.Is(err, recommend.ErrNoContentForConcept):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrProfileExists):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, quiz.ErrSourceTooShort),
		errors.Is(err, quiz.ErrAnswerMismatch):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, quiz.ErrBadOracleOutput):
		writeError(w, http.StatusBadGateway, "oracle_output", err)
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrRateLimited):
		writeError(w, http.StatusServiceUnavailable, "oracle_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
