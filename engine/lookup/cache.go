package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/WessleyAI/wessley-remap/engine/domain"
)

// Cache stores plate lookup results keyed by normalized plate. Caches never
// fail a lookup: backend errors are logged and reported as misses.
type Cache interface {
	Get(ctx context.Context, plate string) (domain.PartialVehicleDescriptor, bool)
	Set(ctx context.Context, plate string, d domain.PartialVehicleDescriptor)
}

// LRUCache is an in-process cache with a size bound and per-entry TTL.
type LRUCache struct {
	lru *expirable.LRU[string, domain.PartialVehicleDescriptor]
}

// NewLRUCache creates an LRU cache holding at most size entries for ttl.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, domain.PartialVehicleDescriptor](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, plate string) (domain.PartialVehicleDescriptor, bool) {
	return c.lru.Get(plate)
}

func (c *LRUCache) Set(_ context.Context, plate string, d domain.PartialVehicleDescriptor) {
	c.lru.Add(plate, d)
}

// Len reports the number of live entries.
func (c *LRUCache) Len() int { return c.lru.Len() }

// RedisCache shares lookup results between API replicas.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache stores entries under prefix+plate for ttl.
func NewRedisCache(client redis.Cmdable, prefix string, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if prefix == "" {
		prefix = "remap:plate:"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// NewRedisClient connects to a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("lookup: redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("lookup: redis ping: %w", err)
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, plate string) (domain.PartialVehicleDescriptor, bool) {
	var d domain.PartialVehicleDescriptor
	b, err := c.client.Get(ctx, c.prefix+plate).Bytes()
	if errors.Is(err, redis.Nil) {
		return d, false
	}
	if err != nil {
		c.logger.Warn("plate cache get failed", "plate", plate, "err", err)
		return d, false
	}
	if err := json.Unmarshal(b, &d); err != nil {
		c.logger.Warn("plate cache entry corrupt", "plate", plate, "err", err)
		return d, false
	}
	return d, true
}

func (c *RedisCache) Set(ctx context.Context, plate string, d domain.PartialVehicleDescriptor) {
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.prefix+plate, b, c.ttl).Err(); err != nil {
		c.logger.Warn("plate cache set failed", "plate", plate, "err", err)
	}
}

// TieredCache reads L1 then L2 and copies L2 hits into L1. Writes go to
// both. Either tier may be nil.
type TieredCache struct {
	L1, L2 Cache
}

func (t TieredCache) Get(ctx context.Context, plate string) (domain.PartialVehicleDescriptor, bool) {
	if t.L1 != nil {
		if d, ok := t.L1.Get(ctx, plate); ok {
			return d, true
		}
	}
	if t.L2 != nil {
		if d, ok := t.L2.Get(ctx, plate); ok {
			if t.L1 != nil {
				t.L1.Set(ctx, plate, d)
			}
			return d, true
		}
	}
	return domain.PartialVehicleDescriptor{}, false
}

func (t TieredCache) Set(ctx context.Context, plate string, d domain.PartialVehicleDescriptor) {
	if t.L1 != nil {
		t.L1.Set(ctx, plate, d)
	}
	if t.L2 != nil {
		t.L2.Set(ctx, plate, d)
	}
}
