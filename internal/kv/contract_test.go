package kv

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract checks the behaviour every Store implementation must share.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing returns nil nil", func(t *testing.T) {
		s := newStore(t)
		v, err := s.Get(ctx, "absent")
		require.NoError(t, err)
		require.Nil(t, v)
	})

	t.Run("set then get and overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", []byte("old")))
		require.NoError(t, s.Set(ctx, "k", []byte("new")))

		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte("new"), v)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "x", []byte{1}))
		require.NoError(t, s.Delete(ctx, "x"))
		require.NoError(t, s.Delete(ctx, "x"))

		v, err := s.Get(ctx, "x")
		require.NoError(t, err)
		require.Nil(t, v)
	})

	t.Run("keys and prefixes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "form:a", []byte{1}))
		require.NoError(t, s.Set(ctx, "form:b", []byte{2}))
		require.NoError(t, s.Set(ctx, "theme", []byte{3}))

		all, err := s.Keys(ctx)
		require.NoError(t, err)
		sort.Strings(all)
		assert.Equal(t, []string{"form:a", "form:b", "theme"}, all)

		forms, err := KeysWithPrefix(ctx, s, "form:")
		require.NoError(t, err)
		sort.Strings(forms)
		assert.Equal(t, []string{"form:a", "form:b"}, forms)

		require.NoError(t, DeletePrefix(ctx, s, "form:"))
		rest, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"theme"}, rest)
	})

	t.Run("delete many", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "a", []byte{1}))
		require.NoError(t, s.Set(ctx, "b", []byte{2}))
		require.NoError(t, s.DeleteMany(ctx, "a", "b", "missing"))
		require.NoError(t, s.DeleteMany(ctx))

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}
