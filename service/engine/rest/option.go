package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/viant/scy"
	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(c *Client) error

// WithHTTPClient overrides the HTTP client; WithTimeout is ignored then.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = client
		return nil
	}
}

// WithTimeout sets the per request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout > 0 {
			c.timeout = timeout
		}
		return nil
	}
}

// WithRegion sets the target region sent with every request.
func WithRegion(region string) Option {
	return func(c *Client) error {
		c.region = region
		return nil
	}
}

// WithCredentials sets a bearer token.
func WithCredentials(token string) Option {
	return func(c *Client) error {
		c.token = strings.TrimSpace(token)
		return nil
	}
}

// WithSecret loads the bearer token from a scy secret, e.g.
// WithSecret(ctx, "~/.secret/durable.json", "blowfish://default").
func WithSecret(ctx context.Context, secretURL, key string) Option {
	return func(c *Client) error {
		if secretURL == "" {
			return nil
		}
		resource := scy.NewResource(nil, secretURL, key)
		secret, err := scy.New().Load(ctx, resource)
		if err != nil {
			return fmt.Errorf("failed to load engine credentials from %s: %w", secretURL, err)
		}
		c.token = strings.TrimSpace(secret.String())
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}
