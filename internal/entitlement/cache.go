package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const configCacheKey = "entitlement:configs:active"

// ConfigCache caches the active entitlement rules in redis. Lookups
// collapse through singleflight so a cold cache does not stampede the
// database; redis outages degrade to direct repository reads.
type ConfigCache struct {
	repo   Repository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewConfigCache constructs a ConfigCache.
func NewConfigCache(repo Repository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *ConfigCache {
	return &ConfigCache{repo: repo, client: client, ttl: ttl, logger: logger}
}

// ListActive returns the active rules, served from cache when possible.
func (c *ConfigCache) ListActive(ctx context.Context) ([]Config, error) {
	if c.client == nil {
		return c.repo.ListActive(ctx)
	}

	payload, err := c.client.Get(ctx, configCacheKey).Bytes()
	if err == nil {
		var configs []Config
		if err := json.Unmarshal(payload, &configs); err == nil {
			return configs, nil
		}
		// Corrupt entry: drop it and fall through to a fresh load.
		_ = c.client.Del(ctx, configCacheKey).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("entitlement cache read", slog.Any("error", err))
		return c.repo.ListActive(ctx)
	}

	result, err, _ := c.group.Do(configCacheKey, func() (any, error) {
		configs, err := c.repo.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(configs); err == nil {
			if err := c.client.Set(ctx, configCacheKey, data, c.ttl).Err(); err != nil {
				c.logger.Warn("entitlement cache write", slog.Any("error", err))
			}
		}
		return configs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Config), nil
}

// Invalidate drops the cached rule set after an admin change.
func (c *ConfigCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, configCacheKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("entitlement cache invalidate", slog.Any("error", err))
	}
}
