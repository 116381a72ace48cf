package workflow

import (
	"encoding/json"
	"time"

	"github.com/viant/durable/model"
)

// CallbackConfig configures CreateCallback.
type CallbackConfig struct {
	// Timeout defaults to DefaultCallbackTimeout.
	Timeout time.Duration

	// Validate checks a success payload before the token is consumed; an
	// error rejects the submission and leaves the token pending.
	Validate func(payload json.RawMessage) error

	// AutoResult builds the submission used when a local approval policy
	// decides the callback. Without it approval sends {"approved":true} and
	// rejection sends a Rejected failure.
	AutoResult func(approved bool, reason string) (json.RawMessage, *model.CallbackFailure)
}

// TimeoutOrDefault returns the effective timeout.
func (c CallbackConfig) TimeoutOrDefault() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultCallbackTimeout
}

// Resolve returns the submission for an automatic decision.
func (c CallbackConfig) Resolve(approved bool, reason string) (json.RawMessage, *model.CallbackFailure) {
	if c.AutoResult != nil {
		return c.AutoResult(approved, reason)
	}
	if approved {
		return json.RawMessage(`{"approved":true}`), nil
	}
	return nil, &model.CallbackFailure{Type: "Rejected", Message: reason}
}
