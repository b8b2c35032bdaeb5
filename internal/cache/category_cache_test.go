package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisCategoryCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	c := NewCategoryCache(rdb, time.Hour, zap.NewNop())

	assert.Equal(t, "", c.Get(ctx, "g1"), "miss returns empty id")

	c.Set(ctx, "g1", "cat-1")
	assert.Equal(t, "cat-1", c.Get(ctx, "g1"))
	assert.True(t, mr.Exists("ticketbot:category:g1"))

	mr.FastForward(2 * time.Hour)
	assert.Equal(t, "", c.Get(ctx, "g1"), "entry expires after ttl")

	c.Set(ctx, "g1", "cat-2")
	c.Forget(ctx, "g1")
	assert.Equal(t, "", c.Get(ctx, "g1"))
}

func TestRedisCategoryCache_UnreachableDegradesToMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	c := NewCategoryCache(rdb, time.Hour, zap.NewNop())
	c.Set(context.Background(), "g1", "cat-1")
	assert.Equal(t, "", c.Get(context.Background(), "g1"))
}

func TestMemoryCategoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewCategoryCache(nil, time.Hour, zap.NewNop())

	c.Set(ctx, "g1", "cat-1")
	c.Set(ctx, "g2", "cat-9")
	assert.Equal(t, "cat-1", c.Get(ctx, "g1"))
	assert.Equal(t, "cat-9", c.Get(ctx, "g2"))

	c.Forget(ctx, "g1")
	assert.Equal(t, "", c.Get(ctx, "g1"))
}
