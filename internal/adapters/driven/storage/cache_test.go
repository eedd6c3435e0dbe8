package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/faersight/internal/core/domain"
)

func TestOpenEmbeddingStore(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		store, err := OpenEmbeddingStore(ctx, domain.CacheSettings{Backend: domain.CacheBackendSQLite, Dir: t.TempDir()})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &sqlite.Store{}, store)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := OpenEmbeddingStore(ctx, domain.CacheSettings{Backend: domain.CacheBackendRedis, RedisAddr: mr.Addr()})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &redis.Store{}, store)
	})

	t.Run("memory", func(t *testing.T) {
		store, err := OpenEmbeddingStore(ctx, domain.CacheSettings{Backend: domain.CacheBackendMemory})
		require.NoError(t, err)
		assert.IsType(t, &memory.EmbeddingStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := OpenEmbeddingStore(ctx, domain.CacheSettings{Backend: "etcd"})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}
