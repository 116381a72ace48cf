package durable_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/durable"
	"github.com/viant/durable/model"
	"github.com/viant/durable/service/emulator"
	"github.com/viant/durable/service/ledger"
	"github.com/viant/durable/service/workflow"
	"go.uber.org/zap"
)

func TestService_StartAndResume(t *testing.T) {
	ctx := context.Background()
	local := emulator.New(emulator.WithLogger(zap.NewNop()))
	t.Cleanup(func() { _ = local.Close() })
	require.NoError(t, local.Register("fn", "20", func(ctx workflow.Context, payload json.RawMessage) (interface{}, error) {
		cb, err := ctx.CreateCallback("approve", workflow.CallbackConfig{Timeout: time.Minute})
		if err != nil {
			return nil, err
		}
		return cb.Result()
	}))

	srv, err := durable.New(ctx, durable.WithEngine(local), durable.WithLogger(zap.NewNop()))
	require.NoError(t, err)

	ack, err := srv.StartWorkflow(ctx, "fn:20", json.RawMessage(`{"date":"2025-01-15"}`))
	require.NoError(t, err)
	assert.Equal(t, "20", ack.ExecutedVersion)

	var pending []*ledger.Callback
	require.Eventually(t, func() bool {
		pending, _ = local.Callbacks(ctx, ledger.StatePending)
		return len(pending) == 1
	}, 2*time.Second, 10*time.Millisecond)
	token := model.CallbackToken(pending[0].ID)

	_, err = srv.Succeed(ctx, token, json.RawMessage(`{"approved_ids":["00003","00005"]}`))
	require.NoError(t, err)
	_, err = srv.Succeed(ctx, token, json.RawMessage(`{"approved_ids":["00003","00005"]}`))
	assert.ErrorIs(t, err, model.ErrConsumedOrInvalidToken)

	_, err = srv.SubmitCallback(ctx, "", model.OutcomeSuccess, json.RawMessage(`{}`), nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	finished, err := local.WaitExecution(ctx, ack.ExecutionID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"approved_ids":["00003","00005"]}`, string(finished.Output))
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	srv, err := durable.New(ctx, durable.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.NotNil(t, srv.Invoker())
	assert.NotNil(t, srv.Callback())

	config := durable.DefaultConfig()
	config.Endpoint = ""
	_, err = durable.New(ctx, durable.WithConfig(config))
	assert.Error(t, err)

	config = durable.DefaultConfig()
	config.Endpoint = "not a url"
	_, err = durable.New(ctx, durable.WithConfig(config))
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
