// Package dao defines the generic storage contract shared by the emulator
// stores and the callback ledger.
package dao

import (
	"context"
)

// Service stores entities of type T under keys of type K.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
