package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/logger"
)

func newTestCache(provider *stubEmbedder, store *memory.EmbeddingStore) *EmbeddingCache {
	p, _ := instantPolicy(3)
	return NewEmbeddingCache(provider, store, p)
}

func TestEmbeddingCache_RepeatedTextCallsProviderOnce(t *testing.T) {
	ctx := context.Background()
	provider := newStubEmbedder()
	provider.set("aspirin", 1, 2, 3)
	cache := newTestCache(provider, memory.NewEmbeddingStore())

	first, err := cache.Embed(ctx, "aspirin")
	require.NoError(t, err)
	second, err := cache.Embed(ctx, "aspirin")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 2, 3}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.Calls())

	stats := cache.Stats()
	assert.Equal(t, "stub-embed", stats.Model)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestEmbeddingCache_PersistsBeforeReturning(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEmbeddingStore()
	cache := newTestCache(newStubEmbedder(), store)

	_, err := cache.Embed(ctx, "ibuprofen")
	require.NoError(t, err)

	n, err := store.Count(ctx, "stub-embed")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmbeddingCache_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEmbeddingStore()

	before := newStubEmbedder()
	_, err := newTestCache(before, store).Embed(ctx, "metformin")
	require.NoError(t, err)
	require.Equal(t, 1, before.Calls())

	after := newStubEmbedder()
	restarted := newTestCache(after, store)
	require.NoError(t, restarted.Warm(ctx))
	assert.Equal(t, 1, restarted.Stats().Entries)

	_, err = restarted.Embed(ctx, "metformin")
	require.NoError(t, err)
	assert.Zero(t, after.Calls())
}

func TestEmbeddingCache_ReadsThroughStoreWithoutWarm(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEmbeddingStore()
	require.NoError(t, store.Put(ctx, "stub-embed", "warfarin", []float32{4, 5}))

	provider := newStubEmbedder()
	vec, err := newTestCache(provider, store).Embed(ctx, "warfarin")

	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5}, vec)
	assert.Zero(t, provider.Calls())
}

func TestEmbeddingCache_EntriesAreScopedByModel(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEmbeddingStore()
	require.NoError(t, store.Put(ctx, "other-model", "warfarin", []float32{4, 5}))

	provider := newStubEmbedder()
	_, err := newTestCache(provider, store).Embed(ctx, "warfarin")

	require.NoError(t, err)
	assert.Equal(t, 1, provider.Calls())
}

func TestEmbeddingCache_ConcurrentMissesShareOneCall(t *testing.T) {
	provider := newStubEmbedder()
	provider.release = make(chan struct{})
	cache := newTestCache(provider, memory.NewEmbeddingStore())

	const workers = 8
	var wg sync.WaitGroup
	results := make([][]float32, workers)
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = cache.Embed(context.Background(), "lisinopril")
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
	assert.Equal(t, 1, provider.Calls())
}

func TestEmbeddingCache_UnreadableStoreIsTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	provider := newStubEmbedder()
	p, _ := instantPolicy(3)
	cache := NewEmbeddingCache(provider, brokenStore{}, p)

	require.NoError(t, cache.Warm(ctx))
	assert.Zero(t, cache.Stats().Entries)

	vec, err := cache.Embed(ctx, "statin")
	require.NoError(t, err, "a failed write must not fail the lookup")
	assert.NotEmpty(t, vec)
	assert.Equal(t, 1, provider.Calls())

	_, err = cache.Embed(ctx, "statin")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.Calls())
}

func TestEmbeddingCache_RetriesTransientFailures(t *testing.T) {
	provider := newStubEmbedder()
	provider.failWith(domain.Transient(errors.New("503")))
	cache := newTestCache(provider, memory.NewEmbeddingStore())

	_, err := cache.Embed(context.Background(), "heparin")

	require.NoError(t, err)
	assert.Equal(t, 2, provider.Calls())
}

func TestEmbeddingCache_PermanentFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	provider := newStubEmbedder()
	provider.failWith(errors.New("400 bad request"))
	store := memory.NewEmbeddingStore()
	cache := newTestCache(provider, store)

	_, err := cache.Embed(ctx, "heparin")

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Attempts)
	n, _ := store.Count(ctx, "stub-embed")
	assert.Zero(t, n)

	_, err = cache.Embed(ctx, "heparin")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Calls())
}

func TestEmbeddingCache_NilProvider(t *testing.T) {
	cache := NewEmbeddingCache(nil, memory.NewEmbeddingStore(), nil)

	_, err := cache.Embed(context.Background(), "x")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Empty(t, cache.ModelName())
	assert.NoError(t, cache.Warm(context.Background()))
}

func TestEmbeddingCache_EmbedBatchPreservesOrder(t *testing.T) {
	provider := newStubEmbedder()
	provider.set("a", 1)
	provider.set("b", 2)
	cache := newTestCache(provider, memory.NewEmbeddingStore())

	vecs, err := cache.EmbedBatch(context.Background(), []string{"b", "a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {1}, {2}}, vecs)
	assert.Equal(t, 2, provider.Calls())
}

func TestEmbeddingCache_CancelledCallerDoesNotFailSharedMiss(t *testing.T) {
	provider := newStubEmbedder()
	provider.release = make(chan struct{})
	cache := newTestCache(provider, memory.NewEmbeddingStore())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cache.Embed(ctxA, "warfarin")
		errA <- err
	}()
	require.Eventually(t, func() bool { return provider.Calls() == 1 }, time.Second, time.Millisecond)

	type result struct {
		vec []float32
		err error
	}
	resB := make(chan result, 1)
	go func() {
		vec, err := cache.Embed(context.Background(), "warfarin")
		resB <- result{vec, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(provider.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.NotEmpty(t, b.vec)
	assert.Equal(t, 1, provider.Calls())

	_, err := cache.Embed(context.Background(), "warfarin")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.Calls(), "the detached call still fills the cache")
}

// putFailingStore reads from memory but refuses writes.
type putFailingStore struct {
	*memory.EmbeddingStore
}

func (putFailingStore) Put(context.Context, string, string, []float32) error {
	return errBrokenStore
}

func TestEmbeddingCache_PersistFailureWarnsAndReturnsVector(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	defer logger.SetOutput(os.Stderr)

	ctx := context.Background()
	provider := newStubEmbedder()
	store := putFailingStore{memory.NewEmbeddingStore()}
	p, _ := instantPolicy(3)
	cache := NewEmbeddingCache(provider, store, p)

	vec, err := cache.Embed(ctx, "metformin")

	require.NoError(t, err)
	assert.NotEmpty(t, vec)
	assert.Contains(t, logs.String(), "[WARN] Embedding cache: persist failed: store is broken")

	count, err := store.Count(ctx, provider.ModelName())
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = cache.Embed(ctx, "metformin")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.Calls(), "the entry is still served from memory")
}
