package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/motivequery/internal/config"
	"github.com/turtacn/motivequery/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/motivequery/pkg/errors"
)

func newMiniClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestNewClient_Success(t *testing.T) {
	client, _ := newMiniClient(t)
	assert.NoError(t, client.Ping(context.Background()))

	cfg := client.Config()
	assert.Equal(t, config.DefaultRedisKeyPrefix, cfg.KeyPrefix)
	assert.Equal(t, config.DefaultRedisResultTTL, cfg.ResultTTL)
	assert.Equal(t, config.DefaultRedisPoolSize, cfg.PoolSize)
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(config.RedisConfig{Addr: "localhost:99999", DialTimeout: 200 * time.Millisecond}, nil)
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestClient_Operations(t *testing.T) {
	client, mr := newMiniClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "foo", "bar", time.Minute).Err())
	val, err := client.Get(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, "bar", val)
	assert.Equal(t, time.Minute, mr.TTL("foo"))

	ok, err := client.SetNX(ctx, "foo", "baz", 0).Result()
	require.NoError(t, err)
	assert.False(t, ok, "existing keys are not overwritten")

	exists, err := client.Exists(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	keys, _, err := client.Scan(ctx, 0, "fo*", 10).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, keys)

	deleted, err := client.Del(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	n, err := client.Eval(ctx, "return 7", nil).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestClient_Closed(t *testing.T) {
	client, _ := newMiniClient(t)
	ctx := context.Background()
	require.NoError(t, client.Close())
	assert.NoError(t, client.Close(), "closing twice is a no-op")

	assert.Equal(t, ErrClientClosed, client.Ping(ctx))
	assert.Equal(t, ErrClientClosed, client.Get(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.Set(ctx, "k", "v", 0).Err())
	assert.Equal(t, ErrClientClosed, client.SetNX(ctx, "k", "v", 0).Err())
	assert.Equal(t, ErrClientClosed, client.Del(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.Exists(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.Scan(ctx, 0, "*", 1).Err())
	assert.Equal(t, ErrClientClosed, client.Eval(ctx, "return 1", nil).Err())
}
