package ens

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "segugio:ens:"

// RedisCache keeps resolved names in Redis with a TTL so repeated operations
// against the same target skip the registry round trips. Cache errors are
// logged and otherwise ignored; resolution falls through to the chain.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, name string) (string, bool) {
	addr, err := c.client.Get(ctx, cacheKeyPrefix+name).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.WithError(err).WithField("name", name).Warn("ens cache read failed")
		return "", false
	}
	return addr, addr != ""
}

func (c *RedisCache) Set(ctx context.Context, name, address string) {
	if err := c.client.Set(ctx, cacheKeyPrefix+name, address, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("name", name).Warn("ens cache write failed")
	}
}
