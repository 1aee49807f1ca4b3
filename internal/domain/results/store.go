// Package results caches finished analyses by content fingerprint. The
// pipeline is deterministic, so a cache hit is exact, never stale in
// the semantic sense; the TTL only bounds memory growth.
package results

import (
	"context"
	"fmt"
	"time"

	"plantdoc-server-go/internal/domain/predict"
)

// Driver identifiers supported by the results cache.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Store caches prediction results keyed by fingerprint.
type Store interface {
	Get(ctx context.Context, key string) (predict.Result, bool, error)
	Put(ctx context.Context, key string, result predict.Result) error
	Close(ctx context.Context) error
}

// Config selects and tunes a cache driver.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
	Memory *MemoryConfig
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

type MemoryConfig struct {
	GCInterval time.Duration
}

// New creates a results store based on the provided configuration.
func New(cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported results cache driver: %s", driver)
	}
}
