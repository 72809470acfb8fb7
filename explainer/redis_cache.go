package explainer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trustcart/models"
	"trustcart/utils"
)

const redisKeyPrefix = "trustcart:explain:"

// RedisCache shares explanations between processes through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *utils.Logger
}

// NewRedisCache connects to addr and verifies the connection with a PING.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *utils.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisCacheFromClient(client, ttl, logger), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, logger *utils.Logger) *RedisCache {
	if logger == nil {
		logger = utils.Discard()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.ExplanationResult, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("[cache] redis get %s: %v", key, err)
		}
		return nil, false
	}
	var r models.ExplanationResult
	if err := json.Unmarshal(raw, &r); err != nil {
		c.logger.Warn("[cache] corrupt entry %s: %v", key, err)
		return nil, false
	}
	return &r, true
}

func (c *RedisCache) Set(ctx context.Context, key string, r *models.ExplanationResult) {
	if r == nil {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		c.logger.Warn("[cache] encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("[cache] redis set %s: %v", key, err)
	}
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error { return c.client.Close() }
