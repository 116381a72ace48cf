// Package invoker starts workflow instances on the engine.
package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/viant/durable/model"
	"github.com/viant/durable/service/codec"
	"github.com/viant/durable/service/engine"
	"github.com/viant/durable/service/retry"
	"go.uber.org/zap"
)

// DefaultMaxPayloadSize is the asynchronous invocation payload limit.
const DefaultMaxPayloadSize = 256 * 1024

// Service submits start requests.
type Service struct {
	engine         engine.Engine
	policy         retry.Policy
	maxPayloadSize int
	logger         *zap.Logger
}

// New creates an invoker.
func New(anEngine engine.Engine, options ...Option) *Service {
	ret := &Service{engine: anEngine, policy: retry.DefaultPolicy(), maxPayloadSize: DefaultMaxPayloadSize}
	for _, option := range options {
		option(ret)
	}
	if ret.logger == nil {
		ret.logger = zap.L().Named("invoker")
	}
	return ret
}

// StartWorkflow starts functionIdentifier asynchronously and returns once the
// engine has accepted the request.
func (s *Service) StartWorkflow(ctx context.Context, functionIdentifier string, payload json.RawMessage) (*model.InvocationAck, error) {
	function, err := model.ParseFunctionIdentifier(functionIdentifier)
	if err != nil {
		return nil, err
	}
	return s.Invoke(ctx, &model.InvocationRequest{Function: function, Mode: model.InvocationModeEvent, Payload: payload})
}

// Invoke submits request in either invocation mode.
func (s *Service) Invoke(ctx context.Context, request *model.InvocationRequest) (*model.InvocationAck, error) {
	if request == nil {
		return nil, model.NewError(model.ErrInvalidInput, "start", "request is required")
	}
	if err := request.Function.Validate(); err != nil {
		return nil, err
	}
	if err := request.Mode.Validate(); err != nil {
		return nil, err
	}
	request = request.Clone()
	compacted, err := codec.Compact(request.Payload)
	if err != nil {
		return nil, err
	}
	request.Payload = compacted
	if s.maxPayloadSize > 0 && len(request.Payload) > s.maxPayloadSize {
		return nil, model.NewError(model.ErrPayloadTooLarge, "start", fmt.Sprintf("payload has %d bytes, limit is %d", len(request.Payload), s.maxPayloadSize))
	}
	if s.engine == nil {
		return nil, model.NewError(model.ErrInvalidInput, "start", "engine is not configured")
	}

	logger := s.logger.With(zap.String("function", request.Function.String()), zap.String("mode", string(request.Mode)))
	logger.Info("starting workflow")
	var ack *model.InvocationAck
	attempt := 0
	err = retry.DoNotify(ctx, s.policy, model.IsRetryable, func(ctx context.Context) error {
		attempt++
		var err error
		ack, err = s.engine.Start(ctx, request)
		return err
	}, func(err error, delay time.Duration) {
		logger.Warn("start failed", zap.Int("attempt", attempt), zap.Duration("retryIn", delay), zap.Error(err))
	})
	if err != nil {
		logger.Error("start rejected", zap.Error(err))
		return nil, err
	}
	logger.Info("workflow accepted", zap.String("executionId", ack.ExecutionID), zap.Int("status", ack.StatusCode))
	return ack, nil
}
