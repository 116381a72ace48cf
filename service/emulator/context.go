package emulator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/viant/durable/internal/clock"
	"github.com/viant/durable/internal/idgen"
	"github.com/viant/durable/progress"
	"github.com/viant/durable/service/retry"
	"github.com/viant/durable/service/workflow"
	"github.com/viant/durable/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type executionContext struct {
	service *Service
	ctx     context.Context
	id      string
	logger  *zap.Logger
	tracker *progress.Progress
}

var _ workflow.Context = (*executionContext)(nil)

func (c *executionContext) Context() context.Context { return c.ctx }

func (c *executionContext) ExecutionID() string { return c.id }

func (c *executionContext) Logger() *zap.Logger { return c.logger }

func (c *executionContext) Wait(d time.Duration) error {
	c.logger.Debug("waiting", zap.Duration("duration", d))
	return c.service.wait(c.ctx, d)
}

func (c *executionContext) Step(name string, fn workflow.StepFunc, options ...workflow.StepOption) (json.RawMessage, error) {
	config := workflow.NewStepConfig(options...)
	record := StepRecord{Name: name, StartedAt: clock.Now()}
	c.tracker.Update(progress.Delta{Steps: 1, Running: 1})

	ctx, span := tracing.StartSpan(c.ctx, "step "+name, tracing.KindInternal,
		attribute.String("execution.id", c.id),
		attribute.String("step.name", name))
	var value interface{}
	err := retry.Do(ctx, config.Retry, config.Retryable, func(ctx context.Context) error {
		record.Attempts++
		var err error
		value, err = fn(ctx)
		if err != nil {
			c.logger.Warn("step attempt failed", zap.String("step", name), zap.Int("attempt", record.Attempts), zap.Error(err))
		}
		return err
	})
	var data json.RawMessage
	if err == nil && value != nil {
		if data, err = json.Marshal(value); err != nil {
			err = fmt.Errorf("failed to encode step %v result: %w", name, err)
		}
	}
	tracing.EndSpan(span, err)

	record.EndedAt = clock.Now()
	delta := progress.Delta{Running: -1, Completed: 1}
	if err != nil {
		record.Error = err.Error()
		delta = progress.Delta{Running: -1, Failed: 1}
	} else {
		record.Result = data
	}
	c.tracker.Update(delta)
	c.record(record)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *executionContext) record(record StepRecord) {
	snapshot := c.tracker.Snapshot()
	_, _ = c.service.executions.Update(context.Background(), c.id, func(e *Execution) error {
		e.Steps = append(e.Steps, record)
		e.Progress = snapshot
		return nil
	})
}

func (c *executionContext) CreateCallback(name string, config workflow.CallbackConfig) (workflow.Callback, error) {
	return c.service.createCallback(c, name, config)
}

func (s *Service) createCallback(c *executionContext, name string, config workflow.CallbackConfig) (workflow.Callback, error) {
	now := clock.Now()
	w := &waiter{
		id:          idgen.New(),
		name:        name,
		executionID: c.id,
		config:      config,
		expiresAt:   now.Add(config.TimeoutOrDefault()),
		tracker:     c.tracker,
		signal:      make(chan struct{}),
	}
	s.addWaiter(w)
	if err := s.ledger.Create(c.ctx, newCallback(w, now)); err != nil {
		s.removeWaiter(w.id)
		return nil, fmt.Errorf("failed to create callback %v: %w", name, err)
	}
	c.tracker.Update(progress.Delta{PendingCallbacks: 1})
	c.logger.Info("callback created", zap.String("callback", name), zap.String("callbackId", w.id), zap.Time("expiresAt", w.expiresAt))
	s.publish(&Event{Topic: TopicCallbackCreated, ExecutionID: c.id, CallbackID: w.id, Name: name})
	return &callbackHandle{service: s, ctx: c.ctx, waiter: w}, nil
}
