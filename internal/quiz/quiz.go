// Package quiz authors and grades quizzes on top of the llm oracle.
package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lernado/sage/internal/llm"
	"github.com/lernado/sage/pkg/logger"
)

// minSourceLen is the shortest source text worth quizzing on.
const minSourceLen = 50

// Question types.
const (
	TypeMultipleChoice = "multiple-choice"
	TypeShortAnswer    = "short-answer"
)

// Question is one quiz question. Answer holds the correct option for
// multiple choice and the ideal answer for short answer.
type Question struct {
	Type     string   `json:"type"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Answer   string   `json:"answer"`
	Hint     string   `json:"hint"`
}

// Quiz is a generated question set.
type Quiz struct {
	Questions []Question `json:"questions"`
}

// QuestionResult is the grading outcome for one question.
type QuestionResult struct {
	QuestionIndex int  `json:"questionIndex"`
	IsCorrect     bool `json:"isCorrect"`
}

// Evaluation is the grading outcome for a whole submission.
type Evaluation struct {
	Score   float64          `json:"score"`
	Results []QuestionResult `json:"results"`
}

// Service generates quizzes from source text and grades submissions.
type Service struct {
	oracle llm.Provider
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a quiz service over the given oracle.
func New(oracle llm.Provider, opts ...Option) *Service {
	s := &Service{
		oracle: oracle,
		logger: logger.Named("quiz"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate asks the oracle for a five-question quiz over the source
// text: three multiple choice, two short answer, all with hints.
func (s *Service) Generate(ctx context.Context, sourceText string) (*Quiz, error) {
	if len(sourceText) < minSourceLen {
		return nil, ErrSourceTooShort
	}

	raw, err := s.oracle.Complete(ctx, "", generationPrompt(sourceText))
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	var q Quiz
	if err := json.Unmarshal([]byte(stripFences(raw)), &q); err != nil {
		s.logger.Warn(ctx, "oracle returned unparseable quiz", logger.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrBadOracleOutput, err)
	}
	if len(q.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrBadOracleOutput)
	}

	return &q, nil
}

// Evaluate grades a submission against the quiz questions. Multiple
// choice compares answers directly; short answers are judged by the
// oracle, and an oracle failure grades that answer incorrect rather
// than failing the whole submission.
func (s *Service) Evaluate(ctx context.Context, questions []Question, answers []string) (*Evaluation, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrAnswerMismatch)
	}
	if len(questions) != len(answers) {
		return nil, fmt.Errorf("%w: %d questions, %d answers", ErrAnswerMismatch, len(questions), len(answers))
	}

	correct := 0
	results := make([]QuestionResult, 0, len(questions))
	for i, q := range questions {
		var isCorrect bool
		switch q.Type {
		case TypeShortAnswer:
			isCorrect = s.gradeShortAnswer(ctx, q, answers[i])
		default:
			isCorrect = strings.EqualFold(strings.TrimSpace(answers[i]), strings.TrimSpace(q.Answer))
		}

		if isCorrect {
			correct++
		}
		results = append(results, QuestionResult{QuestionIndex: i, IsCorrect: isCorrect})
	}

	return &Evaluation{
		Score:   float64(correct) / float64(len(questions)),
		Results: results,
	}, nil
}

func (s *Service) gradeShortAnswer(ctx context.Context, q Question, answer string) bool {
	verdict, err := s.oracle.Complete(ctx, "", gradingPrompt(q.Question, q.Answer, answer))
	if err != nil {
		s.logger.Warn(ctx, "oracle grading failed, marking incorrect", logger.Error(err))
		return false
	}
	return strings.EqualFold(strings.TrimSpace(verdict), "true")
}

// stripFences removes a leading ```json (or bare ```) fence and the
// trailing fence that models wrap JSON in despite instructions.
func stripFences(raw string) string {
	out := strings.TrimSpace(raw)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}
