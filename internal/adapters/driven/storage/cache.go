// Package storage selects the embedding cache backend from settings.
package storage

import (
	"context"
	"fmt"

	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// OpenEmbeddingStore opens the configured backend. An empty backend means SQLite.
func OpenEmbeddingStore(ctx context.Context, cfg domain.CacheSettings) (driven.EmbeddingStore, error) {
	switch cfg.Backend {
	case domain.CacheBackendSQLite, "":
		store, err := sqlite.NewStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite cache: %w", err)
		}
		return store, nil

	case domain.CacheBackendRedis:
		store, err := redis.NewStore(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("opening redis cache: %w", err)
		}
		return store, nil

	case domain.CacheBackendMemory:
		return memory.NewEmbeddingStore(), nil

	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}
