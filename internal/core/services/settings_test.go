package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/faersight/internal/core/domain"
)

func newTestSettings(env map[string]string) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	svc := NewSettingsService(store, nil)
	svc.getenv = func(k string) string { return env[k] }
	return svc, store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	svc, _ := newTestSettings(nil)

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	svc, store := newTestSettings(nil)
	_ = store.Set("dataset.path", "/data/faers_2024Q1.json")
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("embedding.requests_per_second", int64(5))
	_ = store.Set("llm.temperature", 0.0)
	_ = store.Set("cache.backend", "redis")
	_ = store.Set("cache.redis_db", 2)
	_ = store.Set("retry.max_attempts", 5)
	_ = store.Set("retry.initial_backoff", "500ms")
	_ = store.Set("analysis.similarity_threshold", 1.5)
	_ = store.Set("literature.max_results", 20)

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, "/data/faers_2024Q1.json", settings.Dataset.Path)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.InDelta(t, 5.0, settings.Embedding.RequestsPerSecond, 1e-9)
	assert.Zero(t, settings.LLM.Temperature, "explicit zero overrides the default")
	assert.Equal(t, domain.CacheBackendRedis, settings.Cache.Backend)
	assert.Equal(t, 2, settings.Cache.RedisDB)
	assert.Equal(t, 5, settings.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, settings.Retry.InitialBackoff)
	assert.Equal(t, 20*time.Second, settings.Retry.MaxBackoff)
	assert.InDelta(t, 1.5, settings.Analysis.SimilarityThreshold, 1e-9)
	assert.Equal(t, 20, settings.Literature.MaxResults)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	svc, store := newTestSettings(nil)
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("cache.backend", "floppy")

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProvider(""), settings.Embedding.Provider)
	assert.Equal(t, domain.CacheBackendSQLite, settings.Cache.Backend)
}

func TestSettingsService_Get_BadDuration(t *testing.T) {
	svc, store := newTestSettings(nil)
	_ = store.Set("retry.max_backoff", "soon")

	_, err := svc.Get()

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Get_EnvironmentKeys(t *testing.T) {
	svc, store := newTestSettings(map[string]string{
		EnvOpenAIKey:    "sk-env",
		EnvAnthropicKey: "ant-env",
		EnvNCBIKey:      "ncbi-env",
	})
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("llm.provider", "anthropic")

	settings, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "ant-env", settings.LLM.APIKey)
	assert.Equal(t, "ncbi-env", settings.Literature.APIKey)

	_ = store.Set("llm.api_key", "ant-file")
	settings, err = svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "ant-file", settings.LLM.APIKey, "configured key wins")
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	svc, _ := newTestSettings(nil)
	settings := domain.DefaultAppSettings()
	settings.Dataset.Path = "cases.json"
	settings.LLM.Provider = domain.AIProviderOllama
	settings.LLM.Model = "llama3.2"
	settings.LLM.BaseURL = "http://localhost:11434"
	settings.Cache.Backend = domain.CacheBackendMemory
	settings.Retry.MaxBackoff = 5 * time.Second
	settings.Analysis.TopK = 7

	require.NoError(t, svc.Save(&settings))
	got, err := svc.Get()

	require.NoError(t, err)
	assert.Equal(t, settings, *got)
}

func TestSettingsService_Save_DoesNotPersistEnvironmentKeys(t *testing.T) {
	svc, store := newTestSettings(map[string]string{EnvOpenAIKey: "sk-env"})
	_ = store.Set("embedding.provider", "openai")
	settings, err := svc.Get()
	require.NoError(t, err)

	require.NoError(t, svc.Save(settings))

	_, exists := store.Get("embedding.api_key")
	assert.False(t, exists)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	svc, _ := newTestSettings(nil)

	require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
}

func TestSettingsService_SetEmbeddingProvider_Errors(t *testing.T) {
	svc, _ := newTestSettings(nil)

	assert.Error(t, svc.SetEmbeddingProvider("nope", "", ""))
	assert.Error(t, svc.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key"), "no embeddings")
	assert.Error(t, svc.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""), "missing key")
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	svc, _ := newTestSettings(map[string]string{EnvAnthropicKey: "ant-env"})

	require.NoError(t, svc.SetLLMProvider(domain.AIProviderAnthropic, "", ""))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)
	assert.Equal(t, "ant-env", settings.LLM.APIKey)
}

func TestSettingsService_SetCacheBackendAndDataset(t *testing.T) {
	svc, _ := newTestSettings(nil)

	require.NoError(t, svc.SetCacheBackend(domain.CacheBackendRedis))
	require.NoError(t, svc.SetDatasetPath(" faers.json "))
	assert.Error(t, svc.SetCacheBackend("tape"))
	assert.ErrorIs(t, svc.SetDatasetPath(""), domain.ErrInvalidInput)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.CacheBackendRedis, settings.Cache.Backend)
	assert.Equal(t, "faers.json", settings.Dataset.Path)
}

func TestSettingsService_Validate(t *testing.T) {
	svc, store := newTestSettings(nil)
	require.NoError(t, svc.Validate())

	_ = store.Set("llm.provider", "openai")
	_ = store.Set("analysis.similarity_threshold", 9.0)

	err := svc.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "LLM provider openai")
	assert.Contains(t, err.Error(), "similarity_threshold")
}

type stubValidator struct {
	embedErr, llmErr error
}

func (v stubValidator) ValidateEmbedding(*domain.EmbeddingSettings) error { return v.embedErr }
func (v stubValidator) ValidateLLM(*domain.LLMSettings) error             { return v.llmErr }

func TestSettingsService_ValidateProviders(t *testing.T) {
	store := memory.NewConfigStore()
	pingErr := errors.New("connection refused")

	svc := NewSettingsService(store, stubValidator{embedErr: pingErr})
	assert.ErrorIs(t, svc.ValidateEmbeddingConfig(), pingErr)
	assert.NoError(t, svc.ValidateLLMConfig())

	assert.NoError(t, NewSettingsService(store, nil).ValidateEmbeddingConfig())
}
