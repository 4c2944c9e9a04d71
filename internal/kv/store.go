// Package kv defines the durable key/value store the sign-in core is built
// on, with SQLite and Redis implementations.
//
// Every component that persists data (sessions, the credential vault, form
// drafts) addresses it through a namespaced key prefix, so unrelated records
// sharing the same store are never touched by listing or clearing.
package kv

import (
	"context"
	"strings"
)

// Store is a string-keyed byte store.
//
// Contract:
//   - Get returns (nil, nil) when the key does not exist.
//   - Set inserts or overwrites.
//   - Delete and DeleteMany are idempotent.
//   - Keys lists every key currently stored, in no particular order.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	DeleteMany(ctx context.Context, keys ...string) error
}

// KeysWithPrefix returns the keys of s that start with prefix.
func KeysWithPrefix(ctx context.Context, s Store, prefix string) ([]string, error) {
	all, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// DeletePrefix removes every key of s that starts with prefix.
func DeletePrefix(ctx context.Context, s Store, prefix string) error {
	keys, err := KeysWithPrefix(ctx, s, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.DeleteMany(ctx, keys...)
}
