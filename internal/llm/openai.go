package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lernado/sage/pkg/metrics"
)

const defaultModel = "gpt-4o-mini"

// OpenAIProvider implements Provider using the OpenAI SDK.
// OpenAI-compatible APIs work too via WithBaseURL.
type OpenAIProvider struct {
	client *openai.Client
	model  string

	baseURL string
}

// OpenAIOption applies a configuration option to the OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithModel selects the model ID sent with each request.
func WithModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.baseURL = url
	}
}

// NewOpenAIProvider creates a provider for the given API key.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	p := &OpenAIProvider{
		model: defaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}

	config := openai.DefaultConfig(apiKey)
	if p.baseURL != "" {
		config.BaseURL = p.baseURL
	}
	p.client = openai.NewClientWithConfig(config)

	return p, nil
}

// Complete sends a chat completion request and returns the first
// choice's text.
func (p *OpenAIProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.RecordOracleLatency(float64(time.Since(start).Milliseconds()))
	}()

	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		metrics.RecordOracleRequest("error")
		return "", mapOpenAIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.RecordOracleRequest("empty")
		return "", ErrEmptyResponse
	}

	metrics.RecordOracleRequest("ok")
	return resp.Choices[0].Message.Content, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
