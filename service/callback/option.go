package callback

import (
	"github.com/viant/durable/service/retry"
	"go.uber.org/zap"
)

// Option configures a Service.
type Option func(s *Service)

// WithRetryPolicy sets the policy applied to transport failures.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
