package service

import (
	"github.com/lernado/sage/internal/llm"
	"github.com/lernado/sage/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConsumerCount sets the number of consumer goroutines.
func WithConsumerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.consumerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the in-memory event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxUpdateRetries bounds retries on conflicting profile writes.
func WithMaxUpdateRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithDataDir points the repository at a directory on disk. Empty
// keeps everything in memory.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		s.dataDir = dir
	}
}

// WithQueueBackend selects "memory" or "jetstream".
func WithQueueBackend(backend string) Option {
	return func(s *Service) {
		if backend != "" {
			s.queueBackend = backend
		}
	}
}

// WithNATS configures the JetStream connection.
func WithNATS(url, stream, subject string) Option {
	return func(s *Service) {
		s.natsURL = url
		s.natsStream = stream
		s.natsSubject = subject
	}
}

// WithOracleProvider injects a ready-made oracle, bypassing the OpenAI
// client construction. Used by tests.
func WithOracleProvider(p llm.Provider) Option {
	return func(s *Service) {
		s.oracle = p
	}
}

// WithOracleCredentials configures the OpenAI-compatible oracle. An
// empty API key leaves quiz endpoints disabled.
func WithOracleCredentials(apiKey, baseURL, model string) Option {
	return func(s *Service) {
		s.oracleAPIKey = apiKey
		s.oracleBaseURL = baseURL
		s.oracleModel = model
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
