// Package workflow defines the durable context a workflow handler runs in.
// Step results are checkpointed as JSON and a handler can suspend on a
// callback until an external decision arrives.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultCallbackTimeout bounds how long a callback waits for a decision.
const DefaultCallbackTimeout = 72 * time.Hour

// ErrCallbackTimeout is returned by Callback.Result when no decision arrived
// before the callback timeout.
var ErrCallbackTimeout = errors.New("callback timed out")

// Handler is a workflow entry point. The returned value is encoded as JSON.
type Handler func(ctx Context, payload json.RawMessage) (interface{}, error)

// StepFunc is the body of a step.
type StepFunc func(ctx context.Context) (interface{}, error)

// Context is handed to a running handler.
type Context interface {
	// Context returns the execution context; it is done when the execution is
	// cancelled.
	Context() context.Context

	// ExecutionID identifies the running instance.
	ExecutionID() string

	// Logger returns a logger scoped to the execution.
	Logger() *zap.Logger

	// Step runs fn as a named, checkpointed unit and returns its JSON result.
	Step(name string, fn StepFunc, options ...StepOption) (json.RawMessage, error)

	// CreateCallback issues a callback token. The execution suspends when it
	// waits on the result.
	CreateCallback(name string, config CallbackConfig) (Callback, error)

	// Wait suspends the execution for d.
	Wait(d time.Duration) error
}

// Callback is an issued callback token.
type Callback interface {
	// ID returns the token an external party submits against.
	ID() string

	// Result blocks until the callback completes. A failure outcome is
	// returned as *model.CallbackFailure; a timeout as ErrCallbackTimeout.
	Result() (json.RawMessage, error)
}
