package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/durable/service/dao"
	"github.com/viant/durable/service/dao/criteria"
	"github.com/viant/durable/service/dao/store"
)

type record struct {
	ID    string
	State string
}

func newStore() *store.MemoryStore[string, record] {
	return store.NewMemoryStore[string, record](func(r *record) string { return r.ID },
		store.WithMatcher[string, record](func(r *record, parameters []*dao.Parameter) bool {
			return criteria.FilterByState(r.State, parameters)
		}))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	_, err := s.Load(ctx, "a")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, nil), dao.ErrNilEntity)

	require.NoError(t, s.Create(ctx, &record{ID: "a", State: "pending"}))
	require.NoError(t, s.Create(ctx, &record{ID: "b", State: "completed"}))
	assert.ErrorIs(t, s.Create(ctx, &record{ID: "a"}), dao.ErrExists)

	loaded, err := s.Load(ctx, "a")
	require.NoError(t, err)
	loaded.State = "mutated"
	again, _ := s.Load(ctx, "a")
	assert.Equal(t, "pending", again.State)

	pending, err := s.List(ctx, dao.NewParameter(dao.StateParameter, "pending"))
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	all, _ := s.List(ctx)
	assert.Len(t, all, 2)
	both, _ := s.List(ctx, dao.NewParameter(dao.StateParameter, "pending", "completed"))
	assert.Len(t, both, 2)

	errStale := errors.New("stale")
	_, err = s.Update(ctx, "a", func(r *record) error {
		r.State = "completed"
		return errStale
	})
	assert.ErrorIs(t, err, errStale)
	again, _ = s.Load(ctx, "a")
	assert.Equal(t, "pending", again.State)

	updated, err := s.Update(ctx, "a", func(r *record) error {
		r.State = "completed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", updated.State)
	_, err = s.Update(ctx, "missing", func(r *record) error { return nil })
	assert.ErrorIs(t, err, dao.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Load(ctx, "a")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}
