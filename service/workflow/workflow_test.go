package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/durable/model"
	"github.com/viant/durable/service/retry"
	"github.com/viant/durable/service/workflow"
	"go.uber.org/zap"
)

// localContext runs steps inline and records their names.
type localContext struct {
	ctx   context.Context
	mux   sync.Mutex
	steps []string
}

func (c *localContext) Context() context.Context { return c.ctx }
func (c *localContext) ExecutionID() string      { return "exec-1" }
func (c *localContext) Logger() *zap.Logger      { return zap.NewNop() }
func (c *localContext) Wait(d time.Duration) error {
	return retry.Sleep(c.ctx, d)
}

func (c *localContext) CreateCallback(name string, config workflow.CallbackConfig) (workflow.Callback, error) {
	return nil, errors.New("not supported")
}

func (c *localContext) Step(name string, fn workflow.StepFunc, options ...workflow.StepOption) (json.RawMessage, error) {
	c.mux.Lock()
	c.steps = append(c.steps, name)
	c.mux.Unlock()
	config := workflow.NewStepConfig(options...)
	var value interface{}
	err := retry.Do(c.ctx, config.Retry, config.Retryable, func(ctx context.Context) error {
		var err error
		value, err = fn(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(value)
}

func TestStep(t *testing.T) {
	ctx := &localContext{ctx: context.Background()}
	type summary struct {
		Count int `json:"count"`
	}
	actual, err := workflow.Step[summary](ctx, "count", func(ctx context.Context) (summary, error) {
		return summary{Count: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, summary{Count: 3}, actual)

	attempts := 0
	_, err = workflow.Step[int](ctx, "flaky", func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("flaky")
		}
		return attempts, nil
	}, workflow.WithRetry(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	errFatal := errors.New("fatal")
	attempts = 0
	_, err = workflow.Step[int](ctx, "fatal", func(ctx context.Context) (int, error) {
		attempts++
		return 0, errFatal
	}, workflow.WithRetry(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}), workflow.WithRetryable(func(err error) bool {
		return !errors.Is(err, errFatal)
	}))
	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, attempts)
}

func TestMap(t *testing.T) {
	ctx := &localContext{ctx: context.Background()}
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	var running, peak int32
	results, err := workflow.Map[int, int](ctx, "square", items, func(ctx context.Context, item int, index int) (int, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return item * item, nil
	}, workflow.WithMaxConcurrency(3))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49, 64}, results)
	assert.LessOrEqual(t, peak, int32(3))

	sort.Strings(ctx.steps)
	assert.Contains(t, ctx.steps, "square-0")
	assert.Contains(t, ctx.steps, "square-7")
}

func TestMap_FirstError(t *testing.T) {
	ctx := &localContext{ctx: context.Background()}
	errBranch := errors.New("branch failed")
	_, err := workflow.Map[int, int](ctx, "fail", []int{1, 2, 3}, func(ctx context.Context, item int, index int) (int, error) {
		if item == 2 {
			return 0, errBranch
		}
		return item, nil
	}, workflow.WithMaxConcurrency(1))
	assert.ErrorIs(t, err, errBranch)
}

func TestCallbackConfig(t *testing.T) {
	config := workflow.CallbackConfig{}
	assert.Equal(t, workflow.DefaultCallbackTimeout, config.TimeoutOrDefault())
	payload, failure := config.Resolve(true, "")
	assert.JSONEq(t, `{"approved":true}`, string(payload))
	assert.Nil(t, failure)
	payload, failure = config.Resolve(false, "denied")
	assert.Nil(t, payload)
	assert.EqualValues(t, &model.CallbackFailure{Type: "Rejected", Message: "denied"}, failure)

	config = workflow.CallbackConfig{Timeout: time.Minute, AutoResult: func(approved bool, reason string) (json.RawMessage, *model.CallbackFailure) {
		return json.RawMessage(`{"approved_ids":[]}`), nil
	}}
	assert.Equal(t, time.Minute, config.TimeoutOrDefault())
	payload, _ = config.Resolve(false, "")
	assert.JSONEq(t, `{"approved_ids":[]}`, string(payload))
}
