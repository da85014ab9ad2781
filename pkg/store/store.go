package store

import (
	"context"
	"errors"
)

// ErrEmptyKey is returned when a key is blank.
var ErrEmptyKey = errors.New("store: key required")

// KV is durable key/value persistence for client state such as the session.
// Each key is an independent entry; SetPair and DeletePair must apply to both
// keys or to neither.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetPair(ctx context.Context, k1, v1, k2, v2 string) error
	DeletePair(ctx context.Context, k1, k2 string) error
}

// Closer is implemented by backends holding network connections.
type Closer interface {
	Close() error
}

func checkKeys(keys ...string) error {
	for _, k := range keys {
		if k == "" {
			return ErrEmptyKey
		}
	}
	return nil
}
