// Package redis provides a callback ledger shared by several emulator
// processes through Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viant/durable/internal/clock"
	"github.com/viant/durable/model"
	"github.com/viant/durable/service/dao"
	"github.com/viant/durable/service/ledger"
)

const (
	// DefaultNamespace prefixes every key.
	DefaultNamespace = "durable"
	// DefaultRetention keeps completed callbacks this long after expiry.
	DefaultRetention = 24 * time.Hour
)

// Option configures a Ledger.
type Option func(l *Ledger)

// WithNamespace sets the key prefix.
func WithNamespace(namespace string) Option {
	return func(l *Ledger) {
		if namespace != "" {
			l.namespace = namespace
		}
	}
}

// WithRetention sets how long entries outlive their expiry.
func WithRetention(retention time.Duration) Option {
	return func(l *Ledger) {
		l.retention = retention
	}
}

// Ledger stores callbacks as JSON documents under <ns>:callback:<id>, with
// the set <ns>:callbacks indexing known ids.
type Ledger struct {
	client    redis.UniversalClient
	namespace string
	retention time.Duration
}

// New creates a redis ledger.
func New(client redis.UniversalClient, options ...Option) *Ledger {
	ret := &Ledger{client: client, namespace: DefaultNamespace, retention: DefaultRetention}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (l *Ledger) key(id string) string {
	return l.namespace + ":callback:" + id
}

func (l *Ledger) indexKey() string {
	return l.namespace + ":callbacks"
}

func (l *Ledger) ttl(callback *ledger.Callback) time.Duration {
	if callback.ExpiresAt.IsZero() {
		return 0
	}
	ttl := callback.ExpiresAt.Sub(clock.Now()) + l.retention
	if ttl <= 0 {
		ttl = time.Second
	}
	return ttl
}

func (l *Ledger) Create(ctx context.Context, callback *ledger.Callback) error {
	if err := ledger.Validate(callback); err != nil {
		return err
	}
	data, err := json.Marshal(callback)
	if err != nil {
		return fmt.Errorf("failed to encode callback %v: %w", callback.ID, err)
	}
	created, err := l.client.SetNX(ctx, l.key(callback.ID), data, l.ttl(callback)).Result()
	if err != nil {
		return model.WrapError(model.ErrTransport, "ledger", err)
	}
	if !created {
		return dao.ErrExists
	}
	if err = l.client.SAdd(ctx, l.indexKey(), callback.ID).Err(); err != nil {
		return model.WrapError(model.ErrTransport, "ledger", err)
	}
	return nil
}

func (l *Ledger) Load(ctx context.Context, id string) (*ledger.Callback, error) {
	data, err := l.client.Get(ctx, l.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ledger.NotFound(id)
	}
	if err != nil {
		return nil, model.WrapError(model.ErrTransport, "ledger", err)
	}
	return decode(id, data)
}

func (l *Ledger) List(ctx context.Context, states ...ledger.State) ([]*ledger.Callback, error) {
	ids, err := l.client.SMembers(ctx, l.indexKey()).Result()
	if err != nil {
		return nil, model.WrapError(model.ErrTransport, "ledger", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = l.key(id)
	}
	values, err := l.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, model.WrapError(model.ErrTransport, "ledger", err)
	}
	var ret []*ledger.Callback
	var evicted []interface{}
	for i, value := range values {
		text, ok := value.(string)
		if !ok {
			evicted = append(evicted, ids[i])
			continue
		}
		callback, err := decode(ids[i], []byte(text))
		if err != nil {
			return nil, err
		}
		if matches(callback.State, states) {
			ret = append(ret, callback)
		}
	}
	if len(evicted) > 0 {
		_ = l.client.SRem(ctx, l.indexKey(), evicted...).Err()
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].CreatedAt.Before(ret[j].CreatedAt) })
	return ret, nil
}

// Complete runs fn inside an optimistic WATCH transaction; a concurrent
// writer aborts the transaction and the caller loses the race.
func (l *Ledger) Complete(ctx context.Context, id string, fn func(callback *ledger.Callback) error) (*ledger.Callback, error) {
	key := l.key(id)
	var ret *ledger.Callback
	err := l.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ledger.NotFound(id)
		}
		if err != nil {
			return model.WrapError(model.ErrTransport, "ledger", err)
		}
		callback, err := decode(id, data)
		if err != nil {
			return err
		}
		if !callback.IsPending() {
			return ledger.NotPending(callback)
		}
		if err = fn(callback); err != nil {
			return err
		}
		if data, err = json.Marshal(callback); err != nil {
			return fmt.Errorf("failed to encode callback %v: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		ret = callback
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, model.NewError(model.ErrConsumedOrInvalidToken, "callback", fmt.Sprintf("callback %v was completed concurrently", id))
	}
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func decode(id string, data []byte) (*ledger.Callback, error) {
	ret := &ledger.Callback{}
	if err := json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode callback %v: %w", id, err)
	}
	return ret, nil
}

func matches(state ledger.State, states []ledger.State) bool {
	if len(states) == 0 {
		return true
	}
	for _, candidate := range states {
		if candidate == state {
			return true
		}
	}
	return false
}

var _ ledger.Ledger = (*Ledger)(nil)
