package approval

import (
	"context"
)

// Service lists pending requests and records decisions.
type Service interface {
	ListPending(ctx context.Context) ([]*Request, error)
	Decide(ctx context.Context, id string, approved bool, reason string) (*Decision, error)
}
