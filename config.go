package durable

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/durable/policy"
	"github.com/viant/durable/service/emulator"
	"github.com/viant/durable/service/invoker"
	"github.com/viant/durable/service/retry"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the client and emulator
// configuration. It can be populated from YAML or JSON and overlaid with
// flags or environment variables.
type Config struct {
	// Endpoint is the engine base URL, e.g. http://localhost:9070.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	// Token is a bearer token, TokenSecret a scy secret URL holding one.
	Token          string        `json:"token,omitempty" yaml:"token,omitempty"`
	TokenSecret    string        `json:"tokenSecret,omitempty" yaml:"tokenSecret,omitempty"`
	TokenSecretKey string        `json:"tokenSecretKey,omitempty" yaml:"tokenSecretKey,omitempty"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
	Retry          retry.Policy  `json:"retry" yaml:"retry"`
	MaxPayloadSize int           `json:"maxPayloadSize" yaml:"maxPayloadSize"`

	Emulator EmulatorConfig `json:"emulator" yaml:"emulator"`
}

// EmulatorConfig configures a local engine.
type EmulatorConfig struct {
	Listen string `json:"listen" yaml:"listen"`
	// DataURL roots sales input, reports and archived executions.
	DataURL string `json:"dataURL" yaml:"dataURL"`
	// EventsURL, when set, journals lifecycle events there for other
	// processes instead of keeping them in memory.
	EventsURL string `json:"eventsURL,omitempty" yaml:"eventsURL,omitempty"`
	// Token, when set, is required from clients.
	Token    string          `json:"token,omitempty" yaml:"token,omitempty"`
	Limits   emulator.Config `json:"limits" yaml:"limits"`
	Approval policy.Config   `json:"approval" yaml:"approval"`
	Redis    RedisConfig     `json:"redis" yaml:"redis"`
}

// RedisConfig selects the redis callback ledger; an empty Addr keeps the
// ledger in memory.
type RedisConfig struct {
	Addr      string        `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password  string        `json:"password,omitempty" yaml:"password,omitempty"`
	DB        int           `json:"db,omitempty" yaml:"db,omitempty"`
	Namespace string        `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Retention time.Duration `json:"retention,omitempty" yaml:"retention,omitempty"`
}

// DefaultConfig returns a Config with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:       "http://localhost:9070",
		Timeout:        30 * time.Second,
		Retry:          retry.DefaultPolicy(),
		MaxPayloadSize: invoker.DefaultMaxPayloadSize,
		Emulator: EmulatorConfig{
			Listen:   ":9070",
			DataURL:  "file:///tmp/durable",
			Limits:   emulator.DefaultConfig(),
			Approval: policy.Config{Mode: policy.ModeAsk},
			Redis:    RedisConfig{Namespace: "durable", Retention: 24 * time.Hour},
		},
	}
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.maxAttempts must not be negative")
	}
	if c.MaxPayloadSize < 0 {
		return fmt.Errorf("maxPayloadSize must not be negative")
	}
	if c.Emulator.Limits.MaxConcurrency < 0 {
		return fmt.Errorf("emulator.limits.maxConcurrency must not be negative")
	}
	if err := c.Emulator.Approval.Validate(); err != nil {
		return fmt.Errorf("emulator.approval: %w", err)
	}
	return nil
}

// LoadConfig reads a YAML config from URL over DefaultConfig.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	ret := DefaultConfig()
	if URL == "" {
		return ret, nil
	}
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	return ret, ret.Validate()
}
