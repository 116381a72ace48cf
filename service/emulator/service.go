// Package emulator is an in-process stand-in for the remote workflow engine.
// It enforces the engine contract (single-use callback tokens, expiry,
// payload rejection, throttling) so that handlers and clients can be run
// locally. It does not replay handlers and keeps no checkpoints across
// restarts.
package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/viant/durable/internal/clock"
	"github.com/viant/durable/internal/idgen"
	"github.com/viant/durable/model"
	"github.com/viant/durable/policy"
	"github.com/viant/durable/progress"
	"github.com/viant/durable/service/approval"
	"github.com/viant/durable/service/dao"
	"github.com/viant/durable/service/dao/criteria"
	"github.com/viant/durable/service/dao/store"
	"github.com/viant/durable/service/engine"
	"github.com/viant/durable/service/ledger"
	lmemory "github.com/viant/durable/service/ledger/memory"
	"github.com/viant/durable/service/messaging"
	qmemory "github.com/viant/durable/service/messaging/memory"
	"github.com/viant/durable/service/workflow"
	"go.uber.org/zap"
)

// Service emulates the engine.
type Service struct {
	config     Config
	registry   *registry
	executions *store.MemoryStore[string, Execution]
	archive    dao.Service[string, Execution]
	ledger     ledger.Ledger
	events     messaging.Queue[Event]
	policy     *policy.Policy
	logger     *zap.Logger

	mux      sync.Mutex
	running  int
	done     map[string]chan struct{}
	waiters  map[string]*waiter
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopAuto func()
}

var (
	_ engine.Engine    = (*Service)(nil)
	_ approval.Service = (*Service)(nil)
)

// New creates an emulator.
func New(options ...Option) *Service {
	ret := &Service{
		config:   DefaultConfig(),
		registry: newRegistry(),
		executions: store.NewMemoryStore[string, Execution](
			func(e *Execution) string { return e.ID },
			store.WithMatcher[string, Execution](func(e *Execution, parameters []*dao.Parameter) bool {
				return criteria.FilterByState(string(e.State), parameters)
			})),
		done:    map[string]chan struct{}{},
		waiters: map[string]*waiter{},
	}
	for _, option := range options {
		option(ret)
	}
	if ret.logger == nil {
		ret.logger = zap.L().Named("emulator")
	}
	if ret.ledger == nil {
		ret.ledger = lmemory.New()
	}
	if ret.events == nil {
		ret.events = qmemory.NewQueue[Event](qmemory.DefaultConfig())
	}
	if ret.config.PollInterval <= 0 {
		ret.config.PollInterval = DefaultConfig().PollInterval
	}
	ret.ctx, ret.cancel = context.WithCancel(context.Background())
	ret.stopAuto = approval.WithPolicy(ret.ctx, ret, ret.policy, ret.config.PollInterval)
	return ret
}

// Register adds a handler version; $LATEST moves to it.
func (s *Service) Register(name, version string, handler workflow.Handler) error {
	if err := s.registry.register(name, version, handler); err != nil {
		return err
	}
	s.logger.Info("registered function", zap.String("function", name), zap.String("version", version))
	return nil
}

// Alias points alias at version.
func (s *Service) Alias(name, alias, version string) error {
	return s.registry.alias(name, alias, version)
}

// Events returns the event queue.
func (s *Service) Events() messaging.Queue[Event] {
	return s.events
}

// Close cancels running executions and waits for them to return.
func (s *Service) Close() error {
	s.stopAuto()
	s.cancel()
	s.wg.Wait()
	return nil
}

// Start runs a registered handler.
func (s *Service) Start(ctx context.Context, request *model.InvocationRequest) (*model.InvocationAck, error) {
	if request == nil {
		return nil, model.NewError(model.ErrInvalidInput, "start", "request is required")
	}
	if err := request.Mode.Validate(); err != nil {
		return nil, err
	}
	request = request.Clone()
	handler, version, err := s.registry.resolve(request.Function)
	if err != nil {
		return nil, err
	}
	if s.config.MaxPayloadSize > 0 && len(request.Payload) > s.config.MaxPayloadSize {
		return nil, model.NewError(model.ErrPayloadTooLarge, "start", fmt.Sprintf("payload has %d bytes, limit is %d", len(request.Payload), s.config.MaxPayloadSize))
	}
	if len(request.Payload) > 0 && !json.Valid(request.Payload) {
		return nil, model.NewError(model.ErrPayloadRejected, "start", "payload is not valid JSON")
	}
	if err = s.acquire(); err != nil {
		return nil, err
	}

	anExecution := &Execution{
		ID:        idgen.New(),
		Function:  request.Function.Name,
		Version:   version,
		State:     ExecutionRunning,
		Input:     request.Payload,
		StartedAt: clock.Now(),
	}
	if err = s.executions.Create(ctx, anExecution); err != nil {
		s.release()
		return nil, model.WrapError(model.ErrTransport, "start", err)
	}
	done := make(chan struct{})
	s.mux.Lock()
	s.done[anExecution.ID] = done
	s.mux.Unlock()

	s.wg.Add(1)
	go s.run(anExecution, handler, done)

	ack := &model.InvocationAck{
		ExecutionID:     anExecution.ID,
		Function:        request.Function.String(),
		ExecutedVersion: version,
		StatusCode:      http.StatusAccepted,
	}
	if request.Mode.IsAsync() {
		return ack, nil
	}
	finished, err := s.WaitExecution(ctx, anExecution.ID)
	if err != nil {
		return nil, model.WrapError(model.ErrTransport, "start", err)
	}
	ack.StatusCode = http.StatusOK
	ack.Output = finished.Output
	if finished.State == ExecutionFailed {
		ack.Output, _ = json.Marshal(&model.CallbackFailure{Type: "HandlerError", Message: finished.Error})
	}
	return ack, nil
}

func (s *Service) acquire() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.config.MaxConcurrency > 0 && s.running >= s.config.MaxConcurrency {
		return model.NewError(model.ErrThrottled, "start", fmt.Sprintf("%d executions running", s.running))
	}
	s.running++
	return nil
}

func (s *Service) release() {
	s.mux.Lock()
	s.running--
	s.mux.Unlock()
}

func (s *Service) run(anExecution *Execution, handler workflow.Handler, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)
	defer s.release()

	name := anExecution.Function + ":" + anExecution.Version
	logger := s.logger.With(zap.String("executionId", anExecution.ID), zap.String("function", name))
	tracker := progress.New(anExecution.ID, name, nil)
	ctx, cancel := context.WithCancel(progress.WithTracker(s.ctx, tracker))
	defer cancel()
	execCtx := &executionContext{service: s, ctx: ctx, id: anExecution.ID, logger: logger, tracker: tracker}

	s.publish(&Event{Topic: TopicExecutionStarted, ExecutionID: anExecution.ID, Function: name})
	logger.Info("execution started")
	output, err := s.invoke(execCtx, handler, anExecution.Input)

	var data json.RawMessage
	if err == nil && output != nil {
		if data, err = json.Marshal(output); err != nil {
			err = fmt.Errorf("failed to encode output: %w", err)
		}
	}
	endedAt := clock.Now()
	updated, _ := s.executions.Update(context.Background(), anExecution.ID, func(e *Execution) error {
		e.EndedAt = &endedAt
		e.Progress = tracker.Snapshot()
		if err != nil {
			e.State = ExecutionFailed
			e.Error = err.Error()
			return nil
		}
		e.State = ExecutionSucceeded
		e.Output = data
		return nil
	})
	s.dropWaiters(anExecution.ID)
	s.expireCallbacks(anExecution.ID, logger)
	state := ExecutionSucceeded
	if updated != nil {
		state = updated.State
		s.retire(updated, logger)
	}
	if err != nil {
		logger.Error("execution failed", zap.Error(err))
	} else {
		logger.Info("execution completed", zap.Duration("elapsed", endedAt.Sub(anExecution.StartedAt)))
	}
	s.publish(&Event{Topic: TopicExecutionCompleted, ExecutionID: anExecution.ID, Function: name, State: string(state)})
}

// expireCallbacks settles callbacks the execution left pending, so that their
// tokens can no longer be consumed.
func (s *Service) expireCallbacks(executionID string, logger *zap.Logger) {
	ctx := context.Background()
	pending, err := s.ledger.List(ctx, ledger.StatePending)
	if err != nil {
		logger.Warn("failed to list pending callbacks", zap.Error(err))
		return
	}
	now := clock.Now()
	for _, callback := range pending {
		if callback.ExecutionID != executionID {
			continue
		}
		expired, err := s.ledger.Complete(ctx, callback.ID, func(callback *ledger.Callback) error {
			callback.State = ledger.StateExpired
			callback.CompletedAt = &now
			return nil
		})
		if err != nil {
			if !errors.Is(err, model.ErrConsumedOrInvalidToken) {
				logger.Warn("failed to expire callback", zap.String("callbackId", callback.ID), zap.Error(err))
			}
			continue
		}
		logger.Info("callback expired with its execution", zap.String("callbackId", expired.ID), zap.String("name", expired.Name))
		s.publish(&Event{Topic: TopicCallbackExpired, ExecutionID: executionID, CallbackID: expired.ID, Name: expired.Name, State: string(ledger.StateExpired)})
	}
}

// retire archives a finished execution and evicts it from memory once the
// archive holds it, or after the configured retention.
func (s *Service) retire(anExecution *Execution, logger *zap.Logger) {
	if s.archive != nil {
		if err := s.archive.Save(context.Background(), anExecution); err != nil {
			logger.Warn("failed to archive execution", zap.Error(err))
		} else {
			s.evict(anExecution.ID)
			return
		}
	}
	if s.config.Retention > 0 {
		id := anExecution.ID
		time.AfterFunc(s.config.Retention, func() { s.evict(id) })
	}
}

func (s *Service) evict(id string) {
	_ = s.executions.Delete(context.Background(), id)
	s.mux.Lock()
	delete(s.done, id)
	s.mux.Unlock()
}

func (s *Service) invoke(ctx *executionContext, handler workflow.Handler, payload json.RawMessage) (output interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, payload)
}

// Execution returns an execution by id.
func (s *Service) Execution(ctx context.Context, id string) (*Execution, error) {
	ret, err := s.executions.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) && s.archive != nil {
		ret, err = s.archive.Load(ctx, id)
	}
	if errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("execution %v: %w", id, err)
	}
	return ret, err
}

// Executions lists executions in any of states, archived ones included.
func (s *Service) Executions(ctx context.Context, states ...ExecutionState) ([]*Execution, error) {
	var parameters []*dao.Parameter
	if len(states) > 0 {
		values := make([]string, len(states))
		for i, state := range states {
			values[i] = string(state)
		}
		parameters = append(parameters, &dao.Parameter{Name: dao.StateParameter, Value: values})
	}
	ret, err := s.executions.List(ctx, parameters...)
	if err != nil || s.archive == nil {
		return ret, err
	}
	archived, err := s.archive.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ret))
	for _, anExecution := range ret {
		seen[anExecution.ID] = true
	}
	for _, anExecution := range archived {
		if seen[anExecution.ID] || !criteria.FilterByState(string(anExecution.State), parameters) {
			continue
		}
		ret = append(ret, anExecution)
	}
	return ret, nil
}

// WaitExecution blocks until the execution returns or ctx is done.
func (s *Service) WaitExecution(ctx context.Context, id string) (*Execution, error) {
	s.mux.Lock()
	done, ok := s.done[id]
	s.mux.Unlock()
	if !ok {
		return s.Execution(ctx, id)
	}
	select {
	case <-done:
		return s.Execution(ctx, id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Callbacks lists ledger entries in any of states.
func (s *Service) Callbacks(ctx context.Context, states ...ledger.State) ([]*ledger.Callback, error) {
	return s.ledger.List(ctx, states...)
}

// ListPending returns pending callbacks as approval requests.
func (s *Service) ListPending(ctx context.Context) ([]*approval.Request, error) {
	callbacks, err := s.ledger.List(ctx, ledger.StatePending)
	if err != nil {
		return nil, err
	}
	ret := make([]*approval.Request, 0, len(callbacks))
	for _, callback := range callbacks {
		ret = append(ret, &approval.Request{
			ID:          callback.ID,
			Name:        callback.Name,
			ExecutionID: callback.ExecutionID,
			CreatedAt:   callback.CreatedAt,
			ExpiresAt:   callback.ExpiresAt,
		})
	}
	return ret, nil
}

// Decide submits an automatic decision for a pending callback.
func (s *Service) Decide(ctx context.Context, id string, approved bool, reason string) (*approval.Decision, error) {
	config := workflow.CallbackConfig{}
	if w := s.waiter(id); w != nil {
		config = w.config
	}
	payload, failure := config.Resolve(approved, reason)
	result := &model.CallbackResult{Token: model.CallbackToken(id), Outcome: model.OutcomeSuccess, Payload: payload}
	if failure != nil {
		result = &model.CallbackResult{Token: model.CallbackToken(id), Outcome: model.OutcomeFailure, Failure: failure}
	}
	ack, err := s.SubmitCallback(ctx, result)
	if err != nil {
		s.logger.Warn("automatic decision rejected", zap.String("callbackId", id), zap.Error(err))
		return nil, err
	}
	s.logger.Info("callback decided by policy", zap.String("callbackId", id), zap.Bool("approved", approved), zap.String("reason", reason))
	return &approval.Decision{ID: id, Approved: approved, Reason: reason, DecidedAt: ack.AcknowledgedAt}, nil
}

// SubmitCallback consumes a pending callback token and resumes its waiter.
func (s *Service) SubmitCallback(ctx context.Context, result *model.CallbackResult) (*model.CallbackAck, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}
	id := string(result.Token)
	current, err := s.ledger.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsPending() {
		return nil, ledger.NotPending(current)
	}
	now := clock.Now()
	if current.IsExpired(now) {
		return nil, model.NewError(model.ErrConsumedOrInvalidToken, "callback", fmt.Sprintf("callback %v expired", id))
	}
	if err = s.checkRunning(ctx, current); err != nil {
		return nil, err
	}
	w := s.waiter(id)
	if result.Outcome == model.OutcomeSuccess {
		if err = s.validatePayload(w, result.Payload); err != nil {
			return nil, err
		}
	}
	completed, err := s.ledger.Complete(ctx, id, func(callback *ledger.Callback) error {
		if callback.IsExpired(now) {
			return model.NewError(model.ErrConsumedOrInvalidToken, "callback", fmt.Sprintf("callback %v expired", id))
		}
		callback.CompletedAt = &now
		if result.Outcome == model.OutcomeSuccess {
			callback.State = ledger.StateSucceeded
			callback.Result = result.Payload
			return nil
		}
		callback.State = ledger.StateFailed
		callback.Failure = result.Failure
		return nil
	})
	if err != nil {
		return nil, err
	}
	if w != nil {
		w.wake()
	}
	s.publish(&Event{Topic: TopicCallbackCompleted, ExecutionID: completed.ExecutionID, CallbackID: id, Name: completed.Name, State: string(completed.State)})
	return &model.CallbackAck{Token: result.Token, Outcome: result.Outcome, AcknowledgedAt: now}, nil
}

// checkRunning rejects a callback whose execution has ended. Executions this
// process does not know may be run by another emulator sharing the ledger.
func (s *Service) checkRunning(ctx context.Context, callback *ledger.Callback) error {
	if callback.ExecutionID == "" {
		return nil
	}
	anExecution, err := s.Execution(ctx, callback.ExecutionID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil
		}
		return model.WrapError(model.ErrTransport, "callback", err)
	}
	if anExecution.State != ExecutionRunning {
		return model.NewError(model.ErrConsumedOrInvalidToken, "callback", fmt.Sprintf("callback %v: execution %v is %v", callback.ID, anExecution.ID, anExecution.State))
	}
	return nil
}

func (s *Service) validatePayload(w *waiter, payload json.RawMessage) error {
	if s.config.MaxPayloadSize > 0 && len(payload) > s.config.MaxPayloadSize {
		return model.NewError(model.ErrPayloadRejected, "callback", fmt.Sprintf("payload has %d bytes, limit is %d", len(payload), s.config.MaxPayloadSize))
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return model.NewError(model.ErrPayloadRejected, "callback", "payload is not valid JSON")
	}
	if w == nil || w.config.Validate == nil {
		return nil
	}
	if err := w.config.Validate(payload); err != nil {
		return &model.Error{Kind: model.ErrPayloadRejected, Op: "callback", Detail: err.Error()}
	}
	return nil
}

func (s *Service) waiter(id string) *waiter {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.waiters[id]
}

func (s *Service) addWaiter(w *waiter) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.waiters[w.id] = w
}

func (s *Service) removeWaiter(id string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	delete(s.waiters, id)
}

func (s *Service) dropWaiters(executionID string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for id, w := range s.waiters {
		if w.executionID == executionID {
			delete(s.waiters, id)
		}
	}
}

func (s *Service) wait(ctx context.Context, d time.Duration) error {
	if s.config.MaxWait > 0 && d > s.config.MaxWait {
		d = s.config.MaxWait
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
