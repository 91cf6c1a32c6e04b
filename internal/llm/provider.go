// Package llm abstracts the language-model oracle used for quiz
// generation and short-answer grading.
package llm

import "context"

// Provider produces a completion for a prompt. Implementations must be
// safe for concurrent use.
type Provider interface {
	// Complete sends the prompt and returns the raw completion text.
	// system may be empty.
	Complete(ctx context.Context, system, prompt string) (string, error)
}
