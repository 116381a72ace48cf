// Package memory provides an in-process callback ledger.
package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/viant/durable/service/dao"
	"github.com/viant/durable/service/dao/criteria"
	"github.com/viant/durable/service/dao/store"
	"github.com/viant/durable/service/ledger"
)

// Ledger keeps callbacks in a MemoryStore.
type Ledger struct {
	store *store.MemoryStore[string, ledger.Callback]
}

// New creates a memory ledger.
func New() *Ledger {
	return &Ledger{
		store: store.NewMemoryStore[string, ledger.Callback](
			func(c *ledger.Callback) string { return c.ID },
			store.WithMatcher[string, ledger.Callback](func(c *ledger.Callback, parameters []*dao.Parameter) bool {
				return criteria.FilterByState(string(c.State), parameters)
			})),
	}
}

func (l *Ledger) Create(ctx context.Context, callback *ledger.Callback) error {
	if err := ledger.Validate(callback); err != nil {
		return err
	}
	clone := *callback
	return l.store.Create(ctx, &clone)
}

func (l *Ledger) Load(ctx context.Context, id string) (*ledger.Callback, error) {
	ret, err := l.store.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, ledger.NotFound(id)
	}
	return ret, err
}

func (l *Ledger) List(ctx context.Context, states ...ledger.State) ([]*ledger.Callback, error) {
	var parameters []*dao.Parameter
	if len(states) > 0 {
		parameters = append(parameters, &dao.Parameter{Name: dao.StateParameter, Value: ledger.StateValues(states)})
	}
	ret, err := l.store.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].CreatedAt.Before(ret[j].CreatedAt) })
	return ret, nil
}

func (l *Ledger) Complete(ctx context.Context, id string, fn func(callback *ledger.Callback) error) (*ledger.Callback, error) {
	ret, err := l.store.Update(ctx, id, func(callback *ledger.Callback) error {
		if !callback.IsPending() {
			return ledger.NotPending(callback)
		}
		return fn(callback)
	})
	if errors.Is(err, dao.ErrNotFound) {
		return nil, ledger.NotFound(id)
	}
	return ret, err
}

var _ ledger.Ledger = (*Ledger)(nil)
