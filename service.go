package durable

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/durable/model"
	"github.com/viant/durable/service/callback"
	"github.com/viant/durable/service/engine"
	"github.com/viant/durable/service/engine/rest"
	"github.com/viant/durable/service/invoker"
	"go.uber.org/zap"
)

// Service starts workflows and resumes their callbacks.
type Service struct {
	config     *Config
	engine     engine.Engine
	invoker    *invoker.Service
	callback   *callback.Service
	logger     *zap.Logger
	tracingErr error
}

// New creates a service. Unless WithEngine is given it connects to
// config.Endpoint over HTTP.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{}
	for _, option := range options {
		option(ret)
	}
	if ret.tracingErr != nil {
		return nil, fmt.Errorf("failed to initialise tracing: %w", ret.tracingErr)
	}
	if ret.config == nil {
		ret.config = DefaultConfig()
	}
	if err := ret.config.Validate(); err != nil {
		return nil, err
	}
	if ret.logger == nil {
		ret.logger = zap.L().Named("durable")
	}
	if ret.engine == nil {
		client, err := rest.New(ret.config.Endpoint,
			rest.WithTimeout(ret.config.Timeout),
			rest.WithRegion(ret.config.Region),
			rest.WithCredentials(ret.config.Token),
			rest.WithSecret(ctx, ret.config.TokenSecret, ret.config.TokenSecretKey),
			rest.WithLogger(ret.logger.Named("rest")))
		if err != nil {
			return nil, err
		}
		ret.engine = client
	}
	ret.invoker = invoker.New(ret.engine,
		invoker.WithRetryPolicy(ret.config.Retry),
		invoker.WithMaxPayloadSize(ret.config.MaxPayloadSize),
		invoker.WithLogger(ret.logger.Named("invoker")))
	ret.callback = callback.New(ret.engine,
		callback.WithRetryPolicy(ret.config.Retry),
		callback.WithLogger(ret.logger.Named("callback")))
	return ret, nil
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Invoker returns the workflow start invoker.
func (s *Service) Invoker() *invoker.Service {
	return s.invoker
}

// Callback returns the callback coordinator.
func (s *Service) Callback() *callback.Service {
	return s.callback
}

// StartWorkflow starts functionIdentifier ("name", "name:qualifier" or an ARN)
// without waiting for it to finish.
func (s *Service) StartWorkflow(ctx context.Context, functionIdentifier string, payload json.RawMessage) (*model.InvocationAck, error) {
	return s.invoker.StartWorkflow(ctx, functionIdentifier, payload)
}

// Invoke starts a workflow with an explicit mode.
func (s *Service) Invoke(ctx context.Context, request *model.InvocationRequest) (*model.InvocationAck, error) {
	return s.invoker.Invoke(ctx, request)
}

// SubmitCallback resumes the workflow waiting on token.
func (s *Service) SubmitCallback(ctx context.Context, token model.CallbackToken, outcome model.Outcome, payload json.RawMessage, failure *model.CallbackFailure) (*model.CallbackAck, error) {
	return s.callback.Submit(ctx, token, outcome, payload, failure)
}

// Succeed resumes token with a result.
func (s *Service) Succeed(ctx context.Context, token model.CallbackToken, payload json.RawMessage) (*model.CallbackAck, error) {
	return s.callback.Succeed(ctx, token, payload)
}

// Fail resumes token with an error.
func (s *Service) Fail(ctx context.Context, token model.CallbackToken, failure *model.CallbackFailure) (*model.CallbackAck, error) {
	return s.callback.Fail(ctx, token, failure)
}
