// Package callback submits human or external decisions to suspended workflow
// checkpoints.
package callback

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/viant/durable/model"
	"github.com/viant/durable/service/engine"
	"github.com/viant/durable/service/retry"
	"go.uber.org/zap"
)

// Service validates callback results locally and forwards them to the engine.
// It keeps no record of consumed tokens; the engine is the only authority.
type Service struct {
	engine engine.Engine
	policy retry.Policy
	logger *zap.Logger
}

// New creates a callback service.
func New(anEngine engine.Engine, options ...Option) *Service {
	ret := &Service{engine: anEngine, policy: retry.DefaultPolicy()}
	for _, option := range options {
		option(ret)
	}
	if ret.logger == nil {
		ret.logger = zap.L().Named("callback")
	}
	return ret
}

// Succeed resumes the checkpoint with a success payload.
func (s *Service) Succeed(ctx context.Context, token model.CallbackToken, payload json.RawMessage) (*model.CallbackAck, error) {
	return s.Submit(ctx, token, model.OutcomeSuccess, payload, nil)
}

// Fail resumes the checkpoint with an error description.
func (s *Service) Fail(ctx context.Context, token model.CallbackToken, failure *model.CallbackFailure) (*model.CallbackAck, error) {
	return s.Submit(ctx, token, model.OutcomeFailure, nil, failure)
}

// Submit delivers one decision for token. Local checks run in order (token
// syntax, result shape, payload encoding) and none of them contacts the
// engine. Only transport failures are retried.
func (s *Service) Submit(ctx context.Context, token model.CallbackToken, outcome model.Outcome, payload json.RawMessage, failure *model.CallbackFailure) (*model.CallbackAck, error) {
	result := &model.CallbackResult{Token: token, Outcome: outcome, Failure: failure}
	if len(payload) > 0 {
		result.Payload = append(json.RawMessage(nil), payload...)
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	if len(result.Payload) > 0 && !json.Valid(result.Payload) {
		return nil, model.NewError(model.ErrEncoding, "callback", "result payload is not valid JSON")
	}
	if s.engine == nil {
		return nil, model.NewError(model.ErrInvalidInput, "callback", "engine is not configured")
	}

	logger := s.logger.With(zap.String("callbackId", string(token)), zap.String("outcome", string(outcome)))
	logger.Info("submitting callback")
	var ack *model.CallbackAck
	attempt := 0
	err := retry.DoNotify(ctx, s.policy, isTransport, func(ctx context.Context) error {
		attempt++
		var err error
		ack, err = s.engine.SubmitCallback(ctx, result)
		return err
	}, func(err error, delay time.Duration) {
		logger.Warn("callback submission failed", zap.Int("attempt", attempt), zap.Duration("retryIn", delay), zap.Error(err))
	})
	if err != nil {
		logger.Error("callback rejected", zap.Error(err))
		return nil, err
	}
	logger.Info("callback acknowledged", zap.Time("acknowledgedAt", ack.AcknowledgedAt))
	return ack, nil
}

func isTransport(err error) bool {
	return errors.Is(err, model.ErrTransport)
}
