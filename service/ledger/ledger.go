// Package ledger records callback tokens issued by suspended workflow steps
// and enforces their single-use transition out of the pending state.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/viant/durable/model"
	"github.com/viant/durable/service/dao"
)

// State of a callback token.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateExpired   State = "expired"
)

// Callback is a ledger entry for one issued token.
type Callback struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	ExecutionID string                 `json:"executionId"`
	State       State                  `json:"state"`
	Result      json.RawMessage        `json:"result,omitempty"`
	Failure     *model.CallbackFailure `json:"failure,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	ExpiresAt   time.Time              `json:"expiresAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// IsPending reports whether the token can still be completed.
func (c *Callback) IsPending() bool {
	return c.State == StatePending
}

// IsExpired reports whether the deadline has passed at now.
func (c *Callback) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Ledger stores callbacks.
type Ledger interface {
	// Create registers a new pending callback.
	Create(ctx context.Context, callback *Callback) error

	// Load returns the callback or model.ErrConsumedOrInvalidToken when unknown.
	Load(ctx context.Context, id string) (*Callback, error)

	// List returns callbacks in any of states, or all when none is given.
	List(ctx context.Context, states ...State) ([]*Callback, error)

	// Complete atomically applies fn to a pending callback. Exactly one of
	// concurrent callers succeeds; the others and any later caller get
	// model.ErrConsumedOrInvalidToken. Nothing is written when fn fails.
	Complete(ctx context.Context, id string, fn func(callback *Callback) error) (*Callback, error)
}

// NotFound returns an unknown token error.
func NotFound(id string) error {
	return &model.Error{Kind: model.ErrConsumedOrInvalidToken, Op: "callback", Detail: fmt.Sprintf("callback %v not found", id), Cause: dao.ErrNotFound}
}

// NotPending returns a consumed token error.
func NotPending(callback *Callback) error {
	return model.NewError(model.ErrConsumedOrInvalidToken, "callback", fmt.Sprintf("callback %v is %v", callback.ID, callback.State))
}

// Validate checks a callback before Create.
func Validate(callback *Callback) error {
	if callback == nil {
		return dao.ErrNilEntity
	}
	if callback.ID == "" {
		return dao.ErrInvalidID
	}
	if callback.State == "" {
		callback.State = StatePending
	}
	if callback.State != StatePending {
		return fmt.Errorf("callback %v must be created pending, was %v", callback.ID, callback.State)
	}
	return nil
}

// StateValues converts states to List criteria values.
func StateValues(states []State) []string {
	ret := make([]string, 0, len(states))
	for _, state := range states {
		ret = append(ret, string(state))
	}
	return ret
}
