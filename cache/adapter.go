package cache

import (
	"context"
	"time"

	"github.com/pulsefit/pulsefit-server/cache/local"
	cacheredis "github.com/pulsefit/pulsefit-server/cache/redis"
)

// Cache is the KV surface the server relies on: auth sessions, the
// bounded-TTL user lookup cache and notification dedupe keys. A ttl of zero
// means the key never expires.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Config selects the backend. A non-empty RedisAddr picks Redis; otherwise
// the in-process cache is used, which is fine for a single instance but
// shares nothing across replicas.
type Config struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

// New builds the cache backend selected by cfg.
func New(cfg Config) (Cache, error) {
	if cfg.RedisAddr == "" {
		return local.NewCache(local.Config{GCInterval: cfg.LocalGCInterval})
	}
	return cacheredis.NewCache(cacheredis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
