package repository

import "github.com/okian/routinerec/pkg/logger"

// Option applies a configuration option to an Instrumented store.
type Option func(*Instrumented)

// WithLogger sets the logger used for backend failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Instrumented) {
		if l != nil {
			s.log = l
		}
	}
}
