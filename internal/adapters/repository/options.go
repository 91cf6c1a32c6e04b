package repository

import "github.com/lernado/sage/pkg/logger"

type options struct {
	dataDir string
	logger  logger.Logger
}

// Option applies a configuration option to the BadgerStore.
type Option func(*options)

// WithDataDir sets the on-disk database directory. Empty keeps the
// store in-memory.
func WithDataDir(dir string) Option {
	return func(o *options) { o.dataDir = dir }
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts ...Option) *options {
	o := &options{
		logger: logger.Named("repository"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
