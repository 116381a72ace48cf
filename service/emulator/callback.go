package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/viant/durable/model"
	"github.com/viant/durable/progress"
	"github.com/viant/durable/service/ledger"
	"github.com/viant/durable/service/workflow"
)

// waiter is the in-process side of a pending callback.
type waiter struct {
	id          string
	name        string
	executionID string
	config      workflow.CallbackConfig
	expiresAt   time.Time
	tracker     *progress.Progress
	once        sync.Once
	signal      chan struct{}
}

func (w *waiter) wake() {
	w.once.Do(func() { close(w.signal) })
}

func newCallback(w *waiter, now time.Time) *ledger.Callback {
	return &ledger.Callback{
		ID:          w.id,
		Name:        w.name,
		ExecutionID: w.executionID,
		State:       ledger.StatePending,
		CreatedAt:   now,
		ExpiresAt:   w.expiresAt,
	}
}

type callbackHandle struct {
	service *Service
	ctx     context.Context
	waiter  *waiter
}

func (h *callbackHandle) ID() string { return h.waiter.id }

// Result waits for a local wake up, a completion seen in the ledger, the
// callback deadline or the end of the execution.
func (h *callbackHandle) Result() (json.RawMessage, error) {
	w := h.waiter
	timer := time.NewTimer(time.Until(w.expiresAt))
	defer timer.Stop()
	ticker := time.NewTicker(h.service.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.signal:
			return h.settle()
		case <-ticker.C:
			callback, err := h.service.ledger.Load(h.ctx, w.id)
			if err == nil && !callback.IsPending() {
				return h.settle()
			}
		case <-timer.C:
			return h.expire()
		case <-h.ctx.Done():
			return nil, h.ctx.Err()
		}
	}
}

func (h *callbackHandle) settle() (json.RawMessage, error) {
	w := h.waiter
	defer h.service.removeWaiter(w.id)
	callback, err := h.service.ledger.Load(h.ctx, w.id)
	if err != nil {
		return nil, err
	}
	switch callback.State {
	case ledger.StateSucceeded:
		w.tracker.Update(progress.Delta{PendingCallbacks: -1})
		return callback.Result, nil
	case ledger.StateFailed:
		w.tracker.Update(progress.Delta{PendingCallbacks: -1})
		failure := callback.Failure
		if failure == nil {
			failure = &model.CallbackFailure{}
		}
		return nil, failure
	case ledger.StateExpired:
		w.tracker.Update(progress.Delta{PendingCallbacks: -1})
		return nil, fmt.Errorf("callback %v: %w", w.name, workflow.ErrCallbackTimeout)
	}
	return nil, fmt.Errorf("callback %v is still %v", w.id, callback.State)
}

func (h *callbackHandle) expire() (json.RawMessage, error) {
	w := h.waiter
	_, err := h.service.ledger.Complete(h.ctx, w.id, func(callback *ledger.Callback) error {
		callback.State = ledger.StateExpired
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrConsumedOrInvalidToken) {
		return nil, err
	}
	if err == nil {
		h.service.publish(&Event{Topic: TopicCallbackExpired, ExecutionID: w.executionID, CallbackID: w.id, Name: w.name, State: string(ledger.StateExpired)})
	}
	return h.settle()
}
