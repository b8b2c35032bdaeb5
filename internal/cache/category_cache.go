// Package cache remembers the last category each guild placed a ticket in.
// Entries are hints: the allocator re-verifies capacity before using one.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "ticketbot:category:"

// CategoryCache stores a best-effort guild -> category id mapping.
type CategoryCache interface {
	Get(ctx context.Context, guildID string) string
	Set(ctx context.Context, guildID, categoryID string)
	Forget(ctx context.Context, guildID string)
}

// NewCategoryCache returns a redis-backed cache, or an in-process one when client is nil.
func NewCategoryCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) CategoryCache {
	if client == nil {
		return NewMemoryCategoryCache()
	}
	return &redisCategoryCache{client: client, ttl: ttl, logger: logger}
}

type redisCategoryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func (c *redisCategoryCache) Get(ctx context.Context, guildID string) string {
	id, err := c.client.Get(ctx, keyPrefix+guildID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("category cache read failed", zap.String("guild_id", guildID), zap.Error(err))
		}
		return ""
	}
	return id
}

func (c *redisCategoryCache) Set(ctx context.Context, guildID, categoryID string) {
	if err := c.client.Set(ctx, keyPrefix+guildID, categoryID, c.ttl).Err(); err != nil {
		c.logger.Warn("category cache write failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (c *redisCategoryCache) Forget(ctx context.Context, guildID string) {
	if err := c.client.Del(ctx, keyPrefix+guildID).Err(); err != nil {
		c.logger.Warn("category cache delete failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

type memoryCategoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryCategoryCache returns a cache that lives as long as the process.
func NewMemoryCategoryCache() CategoryCache {
	return &memoryCategoryCache{entries: make(map[string]string)}
}

func (c *memoryCategoryCache) Get(_ context.Context, guildID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[guildID]
}

func (c *memoryCategoryCache) Set(_ context.Context, guildID, categoryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[guildID] = categoryID
}

func (c *memoryCategoryCache) Forget(_ context.Context, guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, guildID)
}
