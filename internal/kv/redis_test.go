package kv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, prefix), mr
}

func TestRedisStore_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) Store {
		s, _ := newRedisStore(t, "test:")
		return s
	})
}

func TestRedisStore_PrefixIsolatesForeignKeys(t *testing.T) {
	s, mr := newRedisStore(t, "app:")
	ctx := context.Background()

	require.NoError(t, mr.Set("other:key", "x"))
	require.NoError(t, s.Set(ctx, "mine", []byte("1")))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, keys)

	raw, err := mr.Get("app:mine")
	require.NoError(t, err)
	assert.Equal(t, "1", raw)

	require.NoError(t, DeletePrefix(ctx, s, ""))
	assert.True(t, mr.Exists("other:key"), "foreign keys survive a full clear")
}

func TestRedisStore_GlobPrefixIsLiteral(t *testing.T) {
	s, mr := newRedisStore(t, "app[1]*:")
	ctx := context.Background()

	require.NoError(t, mr.Set("app1x:key", "x"))
	require.NoError(t, s.Set(ctx, "mine", []byte("1")))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, keys)

	require.NoError(t, DeletePrefix(ctx, s, ""))
	assert.True(t, mr.Exists("app1x:key"), "keys outside the prefix survive")
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, `gophsignin:`, globEscape("gophsignin:"))
	assert.Equal(t, `a\*b\?c\[d\]\\`, globEscape(`a*b?c[d]\`))
}

func TestRedisStore_ErrorsWrapped(t *testing.T) {
	s, mr := newRedisStore(t, "p:")
	mr.Close()
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get kv[k]")
	require.ErrorContains(t, s.Set(ctx, "k", nil), "failed to set kv[k]")
	_, err = s.Keys(ctx)
	require.ErrorContains(t, err, "failed to list kv keys")
}
