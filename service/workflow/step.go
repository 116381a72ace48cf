package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/durable/service/retry"
)

// StepConfig controls how a step is attempted.
type StepConfig struct {
	Retry     retry.Policy
	Retryable func(error) bool
}

// StepOption configures a step.
type StepOption func(c *StepConfig)

// WithRetry retries a failed step with policy.
func WithRetry(policy retry.Policy) StepOption {
	return func(c *StepConfig) {
		c.Retry = policy
	}
}

// WithRetryable restricts which step errors are retried.
func WithRetryable(retryable func(error) bool) StepOption {
	return func(c *StepConfig) {
		c.Retryable = retryable
	}
}

// NewStepConfig applies options over a single attempt default.
func NewStepConfig(options ...StepOption) *StepConfig {
	ret := &StepConfig{Retry: retry.NoRetry()}
	for _, option := range options {
		option(ret)
	}
	if ret.Retryable == nil {
		ret.Retryable = func(err error) bool { return err != nil }
	}
	return ret
}

// Step runs fn as a checkpointed step and decodes its result into T.
func Step[T any](ctx Context, name string, fn func(ctx context.Context) (T, error), options ...StepOption) (T, error) {
	var ret T
	data, err := ctx.Step(name, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	}, options...)
	if err != nil {
		return ret, err
	}
	if len(data) == 0 {
		return ret, nil
	}
	if err = json.Unmarshal(data, &ret); err != nil {
		return ret, fmt.Errorf("failed to decode step %v result: %w", name, err)
	}
	return ret, nil
}
