package approval

import (
	"time"
)

// Request is a pending callback awaiting a decision.
type Request struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ExecutionID string    `json:"executionId"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
}

// Decision records how a request was resolved.
type Decision struct {
	ID        string    `json:"id"`
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}
