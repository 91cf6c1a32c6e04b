// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lernado/sage/internal/quiz"
)

// QuizDependencies generates and grades quizzes.
type QuizDependencies interface {
	GenerateQuiz(ctx context.Context, sourceText string) (*quiz.Quiz, error)
	EvaluateQuiz(ctx context.Context, questions []quiz.Question, answers []string) (*quiz.Evaluation, error)
}

// QuizHandler handles quiz requests.
type QuizHandler struct {
	deps QuizDependencies
}

// NewQuizHandler creates a new quiz handler.
func NewQuizHandler(deps QuizDependencies) *QuizHandler {
	return &QuizHandler{deps: deps}
}

type quizGenerationRequest struct {
	SourceText string `json:"sourceText"`
}

// HandleGenerate handles POST /quiz/generate requests.
func (h *QuizHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req quizGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	q, err := h.deps.GenerateQuiz(r.Context(), req.SourceText)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type quizEvaluationRequest struct {
	Questions   []quiz.Question `json:"questions"`
	UserAnswers []string        `json:"userAnswers"`
}

// HandleEvaluate handles POST /quiz/evaluate requests.
func (h *QuizHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req quizEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	eval, err := h.deps.EvaluateQuiz(r.Context(), req.Questions, req.UserAnswers)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}
