package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/logger"
)

// Ensure EmbeddingCache implements the interface.
var _ driven.EmbeddingService = (*EmbeddingCache)(nil)

// fillTimeout bounds a shared miss once it is detached from its callers.
const fillTimeout = 2 * time.Minute

// EmbeddingCache decorates an embedding provider with a durable,
// append-only cache keyed by exact text.
//
// A hit never calls the provider. A miss calls the provider under the retry
// policy, writes the entry to the store, and only then returns. Concurrent
// misses for the same text share one provider call; the store write is an
// idempotent upsert, so separate processes converge on the same entry.
type EmbeddingCache struct {
	provider driven.EmbeddingService
	store    driven.EmbeddingStore
	retry    *RetryPolicy

	mu      sync.RWMutex
	entries map[string][]float32

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewEmbeddingCache creates a cache over provider and store.
// Call Warm to load persisted entries before first use.
func NewEmbeddingCache(provider driven.EmbeddingService, store driven.EmbeddingStore, retry *RetryPolicy) *EmbeddingCache {
	if retry == nil {
		retry = NewRetryPolicy(domain.RetrySettings{})
	}
	return &EmbeddingCache{
		provider: provider,
		store:    store,
		retry:    retry,
		entries:  make(map[string][]float32),
	}
}

// Warm loads every persisted entry for the provider's model into memory.
// A store that cannot be read is treated as empty; entries are then rebuilt
// lazily on miss.
func (c *EmbeddingCache) Warm(ctx context.Context) error {
	if c.provider == nil || c.store == nil {
		return nil
	}
	model := c.provider.ModelName()

	loaded, err := c.store.LoadAll(ctx, model)
	if err != nil {
		if isContextError(err) {
			return err
		}
		logger.Warn("Embedding cache unreadable, starting empty: %v", err)
		return nil
	}

	c.mu.Lock()
	for text, vec := range loaded {
		c.entries[text] = vec
	}
	n := len(c.entries)
	c.mu.Unlock()

	logger.Info("Embedding cache: %d entries for %s", n, model)
	return nil
}

// Embed returns the embedding for text, calling the provider only on a miss.
// The returned slice is shared with the cache and must not be modified.
func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.provider == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	if vec, ok := c.lookup(text); ok {
		c.hits.Add(1)
		return vec, nil
	}

	// The shared call outlives any single caller; each caller stops waiting
	// when its own context ends.
	ch := c.group.DoChan(text, func() (any, error) {
		// Another caller may have filled the entry while we queued.
		if vec, ok := c.lookup(text); ok {
			c.hits.Add(1)
			return vec, nil
		}
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()
		return c.fill(fillCtx, text)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("embed: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug("Embedding cache: shared in-flight result for %q", truncate(text, 40))
		}
		return res.Val.([]float32), nil
	}
}

// fill resolves a miss: durable store first, then the provider.
func (c *EmbeddingCache) fill(ctx context.Context, text string) ([]float32, error) {
	model := c.provider.ModelName()

	if c.store != nil {
		vec, ok, err := c.store.Get(ctx, model, text)
		switch {
		case err != nil:
			logger.Warn("Embedding cache: store lookup failed: %v", err)
		case ok:
			c.hits.Add(1)
			c.remember(text, vec)
			return vec, nil
		}
	}

	c.misses.Add(1)
	logger.Debug("Embedding cache miss for %q", truncate(text, 40))

	vec, err := Retry(ctx, c.retry, "embedding/"+model, func(ctx context.Context) ([]float32, error) {
		return c.provider.Embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	if c.store != nil {
		if err := c.store.Put(ctx, model, text, vec); err != nil {
			// The vector is still valid; only durability is lost.
			logger.Warn("Embedding cache: persist failed: %v", err)
		}
	}
	c.remember(text, vec)
	return vec, nil
}

// EmbedBatch embeds each text through the cache, preserving order.
func (c *EmbeddingCache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the provider's vector size.
func (c *EmbeddingCache) Dimensions() int {
	if c.provider == nil {
		return 0
	}
	return c.provider.Dimensions()
}

// ModelName returns the provider's model.
func (c *EmbeddingCache) ModelName() string {
	if c.provider == nil {
		return ""
	}
	return c.provider.ModelName()
}

// Ping checks the provider.
func (c *EmbeddingCache) Ping(ctx context.Context) error {
	if c.provider == nil {
		return domain.ErrEmbeddingUnavailable
	}
	return c.provider.Ping(ctx)
}

// Close closes the provider. The store is owned by the caller.
func (c *EmbeddingCache) Close() error {
	if c.provider == nil {
		return nil
	}
	return c.provider.Close()
}

// Stats reports the cache size and hit counters.
func (c *EmbeddingCache) Stats() domain.CacheStats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return domain.CacheStats{
		Model:   c.ModelName(),
		Entries: n,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

func (c *EmbeddingCache) lookup(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[text]
	return vec, ok
}

func (c *EmbeddingCache) remember(text string, vec []float32) {
	c.mu.Lock()
	c.entries[text] = vec
	c.mu.Unlock()
}

// truncate shortens s for log output.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
