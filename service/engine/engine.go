// Package engine defines the remote workflow engine capability. The engine is
// opaque: it is reachable through exactly two operations and its internal
// state machine is never observed.
package engine

import (
	"context"

	"github.com/viant/durable/model"
)

// Engine starts workflow instances and resumes suspended checkpoints.
type Engine interface {
	// Start submits a workflow start request.
	Start(ctx context.Context, request *model.InvocationRequest) (*model.InvocationAck, error)

	// SubmitCallback resumes the checkpoint identified by result.Token. The
	// engine consumes the token; a second submission must fail with
	// model.ErrConsumedOrInvalidToken.
	SubmitCallback(ctx context.Context, result *model.CallbackResult) (*model.CallbackAck, error)
}
