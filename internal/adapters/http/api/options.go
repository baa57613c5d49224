package api

import "github.com/okian/routinerec/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithPasswordHash enables the shared-password gate with a bcrypt hash.
func WithPasswordHash(hash string) Option {
	return func(s *Server) {
		s.passwordHash = hash
	}
}

// WithCORSOrigins restricts browser origins. Empty allows any.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithMaxWindowDays caps the days= query parameter.
func WithMaxWindowDays(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxWindowDays = n
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
