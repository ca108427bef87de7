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

type cartView struct {
	CartID string `json:"cartId"`
	Count  int    `json:"count"`
}

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, 10*time.Minute), mr
}

func TestSetThenGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "cart:user:u1", cartView{CartID: "c1", Count: 3}))
	assert.True(t, mr.Exists("storefront:cart:user:u1"))

	var got cartView
	require.NoError(t, c.Get(ctx, "cart:user:u1", &got))
	assert.Equal(t, cartView{CartID: "c1", Count: 3}, got)
}

func TestGetMiss(t *testing.T) {
	c, _ := setupTestRedis(t)

	var got cartView
	err := c.Get(context.Background(), "cart:user:nobody", &got)

	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetInvalidJSON(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("storefront:cart:user:u1", `{"cartId":`))

	var got cartView
	err := c.Get(context.Background(), "cart:user:u1", &got)

	require.ErrorContains(t, err, "unmarshal cached value failed")
}

func TestSetAppliesJitteredTTL(t *testing.T) {
	c, mr := setupTestRedis(t)

	require.NoError(t, c.Set(context.Background(), "k", cartView{}))

	ttl := mr.TTL("storefront:k")
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.Less(t, ttl, 12*time.Minute)

	mr.FastForward(13 * time.Minute)
	assert.False(t, mr.Exists("storefront:k"))
}

func TestDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", cartView{}))
	require.NoError(t, c.Set(ctx, "b", cartView{}))

	require.NoError(t, c.Delete(ctx, "a", "b", "missing"))
	require.NoError(t, c.Delete(ctx))

	assert.False(t, mr.Exists("storefront:a"))
	assert.False(t, mr.Exists("storefront:b"))
}

func TestIncrCounterHasNoTTL(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	n, err := c.Incr(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = c.Incr(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var got int64
	require.NoError(t, c.Get(ctx, "gen", &got))
	assert.Equal(t, int64(2), got)
	assert.Zero(t, mr.TTL("storefront:gen"))
}

func TestRedisUnavailable(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	err := c.Set(context.Background(), "k", cartView{})
	require.ErrorContains(t, err, "redis set failed")
	assert.Error(t, c.Ping(context.Background()))
}

func TestNop(t *testing.T) {
	var n Nop
	var got cartView
	assert.ErrorIs(t, n.Get(context.Background(), "k", &got), ErrCacheMiss)
	assert.NoError(t, n.Set(context.Background(), "k", got))
	assert.NoError(t, n.Delete(context.Background(), "k"))
}
