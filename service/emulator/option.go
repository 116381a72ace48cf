package emulator

import (
	"time"

	"github.com/viant/durable/policy"
	"github.com/viant/durable/service/dao"
	"github.com/viant/durable/service/ledger"
	"github.com/viant/durable/service/messaging"
	"go.uber.org/zap"
)

// Config holds emulator limits.
type Config struct {
	// MaxConcurrency bounds running executions; zero means unbounded.
	MaxConcurrency int `json:"maxConcurrency" yaml:"maxConcurrency"`
	// MaxPayloadSize bounds start and callback payloads in bytes.
	MaxPayloadSize int `json:"maxPayloadSize" yaml:"maxPayloadSize"`
	// PollInterval controls how often a waiting callback checks the ledger
	// for completions made by another process.
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
	// MaxWait caps workflow Wait durations; zero keeps them as requested.
	MaxWait time.Duration `json:"maxWait" yaml:"maxWait"`
	// Retention keeps finished executions in memory when no archive takes
	// them; zero keeps them until the process exits.
	Retention time.Duration `json:"retention" yaml:"retention"`
}

// DefaultConfig returns the emulator defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 100,
		MaxPayloadSize: 256 * 1024,
		PollInterval:   250 * time.Millisecond,
	}
}

// Option configures a Service.
type Option func(s *Service)

// WithConfig replaces the limits.
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithMaxConcurrency sets the running execution limit.
func WithMaxConcurrency(n int) Option {
	return func(s *Service) {
		s.config.MaxConcurrency = n
	}
}

// WithMaxWait caps workflow Wait durations.
func WithMaxWait(d time.Duration) Option {
	return func(s *Service) {
		s.config.MaxWait = d
	}
}

// WithRetention evicts unarchived finished executions after d.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		s.config.Retention = d
	}
}

// WithLedger sets the callback ledger; the memory ledger is used otherwise.
func WithLedger(l ledger.Ledger) Option {
	return func(s *Service) {
		s.ledger = l
	}
}

// WithArchive keeps finished executions in archive, e.g. a store.FileStore,
// so they outlive the process.
func WithArchive(archive dao.Service[string, Execution]) Option {
	return func(s *Service) {
		s.archive = archive
	}
}

// WithEvents sets the event queue.
func WithEvents(queue messaging.Queue[Event]) Option {
	return func(s *Service) {
		s.events = queue
	}
}

// WithPolicy decides pending callbacks automatically unless p asks a human.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
