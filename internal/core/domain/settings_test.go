package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	assert.True(t, AIProviderOllama.IsValid())
	assert.True(t, AIProviderOpenAI.IsValid())
	assert.True(t, AIProviderAnthropic.IsValid())
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProvider("cohere").IsValid())
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"empty", EmbeddingSettings{}, false},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"anthropic has no embeddings", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "sk"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
}

func TestCacheBackend_IsValid(t *testing.T) {
	assert.True(t, CacheBackendSQLite.IsValid())
	assert.True(t, CacheBackendRedis.IsValid())
	assert.True(t, CacheBackendMemory.IsValid())
	assert.False(t, CacheBackend("disk").IsValid())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.False(t, s.Embedding.IsConfigured())
	assert.False(t, s.LLM.IsConfigured())
	assert.Equal(t, CacheBackendSQLite, s.Cache.Backend)
	assert.Equal(t, 3, s.Retry.MaxAttempts)
	assert.Equal(t, time.Second, s.Retry.InitialBackoff)
	assert.Equal(t, 20*time.Second, s.Retry.MaxBackoff)
	assert.Equal(t, 0.3, s.Analysis.SimilarityThreshold)
	assert.Equal(t, 5, s.Analysis.SimilarLimit)
	assert.Equal(t, 10.0, s.Analysis.BucketWidth)
	assert.Equal(t, 2, s.Literature.PassagesPerQuery)
}

func TestEmbeddingDimensions(t *testing.T) {
	dims := EmbeddingDimensions()
	assert.Equal(t, 1536, dims["text-embedding-3-small"])
	assert.Equal(t, 768, dims["nomic-embed-text"])
}

func TestAIProvider_IsLocal(t *testing.T) {
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderOpenAI.IsLocal())
}

func TestProviderCatalogue(t *testing.T) {
	assert.Equal(t, []AIProvider{AIProviderOllama, AIProviderOpenAI}, AllEmbeddingProviders())
	assert.Len(t, AllLLMProviders(), 3)
	assert.False(t, AIProviderAnthropic.SupportsEmbeddings())
	assert.Equal(t, "text-embedding-3-small", DefaultEmbeddingModels()[AIProviderOpenAI])
	assert.Equal(t, "llama3.2", DefaultLLMModels()[AIProviderOllama])
	assert.Equal(t, "Unknown", AIProvider("cohere").Description())
	assert.Equal(t, "Anthropic (cloud)", AIProviderAnthropic.Description())
}
