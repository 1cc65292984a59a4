package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewFromClient(rdb), mr
}

func TestGetSet(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "apifootball:odds:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "apifootball:odds:1", []byte(`[{"bookmakers":[]}]`), time.Minute))

	got, ok, err := c.Get(ctx, "apifootball:odds:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"bookmakers":[]}]`, string(got))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "apifootball:odds:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryLock_Exclusive(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	token, ok, err := c.TryLock(ctx, "lock:batch", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = c.TryLock(ctx, "lock:batch", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Unlock(ctx, "lock:batch", token))

	_, ok, err = c.TryLock(ctx, "lock:batch", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlock_WrongTokenKeepsLock(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	token, ok, err := c.TryLock(ctx, "lock:batch", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Unlock(ctx, "lock:batch", "someone-else"))

	held, err := mr.Get("lock:batch")
	require.NoError(t, err)
	assert.Equal(t, token, held)
}

func TestTryLock_Expires(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	_, ok, err := c.TryLock(ctx, "lock:batch", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, ok, err = c.TryLock(ctx, "lock:batch", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfigAddr(t *testing.T) {
	assert.Equal(t, "localhost:6379", Config{Host: "localhost", Port: "6379"}.Addr())
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache(Config{Host: "127.0.0.1", Port: "1"})
	assert.Error(t, err)
}
