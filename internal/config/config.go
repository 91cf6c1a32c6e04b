// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment sources on top.
// - External errors are wrapped via this package's sentinel errors.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// InternalAPIKey guards the internal endpoints. Requests must carry
	// it in the X-Internal-API-Key header. Empty disables the check
	// (local development only).
	InternalAPIKey string `koanf:"internal_api_key"`

	// QueueBackend selects the event queue: "memory" or "jetstream".
	QueueBackend string `koanf:"queue_backend"`

	// QueueSize bounds the in-memory event queue.
	QueueSize int `koanf:"queue_size"`

	// ConsumerCount sets the number of event consumer goroutines.
	ConsumerCount int `koanf:"consumer_count"`

	// NATSURL, NATSStream and NATSSubject configure the JetStream
	// backend. Ignored when QueueBackend is "memory".
	NATSURL     string `koanf:"nats_url"`
	NATSStream  string `koanf:"nats_stream"`
	NATSSubject string `koanf:"nats_subject"`

	// DataDir is the Badger database directory. Empty runs Badger
	// in-memory (tests, throwaway instances).
	DataDir string `koanf:"data_dir"`

	// UpdateMaxRetries caps persistence retries for a single mastery
	// update before the event is dropped.
	UpdateMaxRetries int `koanf:"update_max_retries"`

	// Oracle settings for quiz authoring and open-ended grading.
	OracleAPIKey  string `koanf:"oracle_api_key"`
	OracleBaseURL string `koanf:"oracle_base_url"`
	OracleModel   string `koanf:"oracle_model"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":8090",
		QueueBackend:     "memory",
		QueueSize:        100_000,
		ConsumerCount:    runtime.NumCPU() * 2,
		NATSURL:          "nats://127.0.0.1:4222",
		NATSStream:       "INTERACTIONS",
		NATSSubject:      "interactions.events",
		UpdateMaxRetries: 5,
		OracleModel:      "gpt-4o-mini",
	}
}
