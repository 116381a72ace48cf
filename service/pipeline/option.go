package pipeline

import (
	"time"

	"github.com/viant/durable/service/retry"
	"go.uber.org/zap"
)

// Option configures a Service.
type Option func(s *Service)

// WithNotifier sets where approval requests go.
func WithNotifier(notifier Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithSyncer sets the accounting sync target.
func WithSyncer(syncer Syncer) Option {
	return func(s *Service) {
		s.syncer = syncer
	}
}

// WithThreshold sets the amount from which a record needs approval.
func WithThreshold(threshold int) Option {
	return func(s *Service) {
		s.threshold = threshold
	}
}

// WithSyncPolicy sets the retry policy of each sync batch.
func WithSyncPolicy(policy retry.Policy) Option {
	return func(s *Service) {
		s.syncPolicy = policy
	}
}

// WithRateLimitWait sets the pause between sync batches.
func WithRateLimitWait(d time.Duration) Option {
	return func(s *Service) {
		s.rateLimitWait = d
	}
}

// WithApprovalTimeout sets how long the approval callback stays open.
func WithApprovalTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.approvalTimeout = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
