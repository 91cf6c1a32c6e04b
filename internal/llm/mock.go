package llm

import (
	"context"
	"sync"
)

// Mock is a canned-response Provider for tests. Responses are consumed
// in FIFO order; when the queue empties, the last response repeats.
type Mock struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

// NewMock creates a mock provider returning the given responses.
func NewMock(responses ...string) *Mock {
	return &Mock{responses: responses}
}

// Fail makes every subsequent call return err until cleared with nil.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Complete returns the next canned response.
func (m *Mock) Complete(_ context.Context, _, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", ErrEmptyResponse
	}

	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

// Prompts returns the prompts seen so far.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
