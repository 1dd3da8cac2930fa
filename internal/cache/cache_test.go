package cache_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/cache"
)

func TestCacheRoundTripAndDelete(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.New(client, "toko", time.Minute)
	ctx := context.Background()
	key := cache.ListKey("shop:3", "products")
	require.Equal(t, "shop:3:list:products", key)

	require.NoError(t, c.SetJSON(ctx, key, []string{"a", "b"}))
	require.True(t, mr.Exists("toko:shop:3:list:products"))

	var got []string
	ok, err := c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, c.Delete(ctx, key, "missing"))
	ok, err = c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheTTLExpires(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.New(client, "", time.Second)
	require.NoError(t, c.SetJSON(context.Background(), "k", 1))
	mr.FastForward(2 * time.Second)

	var v int
	ok, err := c.GetJSON(context.Background(), "k", &v)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDisabledCacheIsNoop(t *testing.T) {
	var c *cache.Cache
	ok, err := c.GetJSON(context.Background(), "k", new(int))
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, c.SetJSON(context.Background(), "k", 1))
	require.NoError(t, c.Delete(context.Background(), "k"))
	require.Equal(t, "all:list:shops", cache.ListKey("", "shops"))
}
