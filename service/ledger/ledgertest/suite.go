// Package ledgertest checks ledger.Ledger implementations.
package ledgertest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/durable/model"
	"github.com/viant/durable/service/dao"
	"github.com/viant/durable/service/ledger"
)

// Run exercises the ledger contract against a fresh, empty instance.
func Run(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err := l.Load(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrConsumedOrInvalidToken)
	assert.ErrorIs(t, err, dao.ErrNotFound)

	first := &ledger.Callback{ID: "tok-A", Name: "approval", ExecutionID: "exec-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	second := &ledger.Callback{ID: "tok-B", Name: "approval", ExecutionID: "exec-1", CreatedAt: now.Add(time.Second), ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, l.Create(ctx, first))
	require.NoError(t, l.Create(ctx, second))
	assert.ErrorIs(t, l.Create(ctx, &ledger.Callback{ID: "tok-A"}), dao.ErrExists)
	assert.Error(t, l.Create(ctx, &ledger.Callback{}))

	loaded, err := l.Load(ctx, "tok-A")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatePending, loaded.State)
	assert.Equal(t, "exec-1", loaded.ExecutionID)
	assert.True(t, loaded.ExpiresAt.Equal(first.ExpiresAt))

	pending, err := l.List(ctx, ledger.StatePending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "tok-A", pending[0].ID)

	errRejected := errors.New("rejected")
	_, err = l.Complete(ctx, "tok-A", func(callback *ledger.Callback) error { return errRejected })
	assert.ErrorIs(t, err, errRejected)
	loaded, _ = l.Load(ctx, "tok-A")
	assert.True(t, loaded.IsPending())

	completedAt := now.Add(time.Minute)
	completed, err := l.Complete(ctx, "tok-A", func(callback *ledger.Callback) error {
		callback.State = ledger.StateSucceeded
		callback.Result = json.RawMessage(`{"approved_ids":["00003"]}`)
		callback.CompletedAt = &completedAt
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StateSucceeded, completed.State)

	_, err = l.Complete(ctx, "tok-A", func(callback *ledger.Callback) error { return nil })
	assert.ErrorIs(t, err, model.ErrConsumedOrInvalidToken)
	_, err = l.Complete(ctx, "missing", func(callback *ledger.Callback) error { return nil })
	assert.ErrorIs(t, err, model.ErrConsumedOrInvalidToken)

	loaded, err = l.Load(ctx, "tok-A")
	require.NoError(t, err)
	assert.JSONEq(t, `{"approved_ids":["00003"]}`, string(loaded.Result))

	pending, _ = l.List(ctx, ledger.StatePending)
	assert.Len(t, pending, 1)
	finished, _ := l.List(ctx, ledger.StateSucceeded, ledger.StateFailed)
	assert.Len(t, finished, 1)
	all, _ := l.List(ctx)
	assert.Len(t, all, 2)

	var wins, losses int
	mux := sync.Mutex{}
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Complete(ctx, "tok-B", func(callback *ledger.Callback) error {
				callback.State = ledger.StateFailed
				callback.Failure = &model.CallbackFailure{Type: "Rejected"}
				return nil
			})
			mux.Lock()
			defer mux.Unlock()
			if err == nil {
				wins++
				return
			}
			assert.ErrorIs(t, err, model.ErrConsumedOrInvalidToken)
			losses++
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 7, losses)
}
