package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// countingValidator replaces the provider pings so no network is touched.
func countingValidator(pingErr error) (*ConfigValidator, *int) {
	calls := 0
	return &ConfigValidator{
		pingEmbedding: func(*domain.EmbeddingSettings) error { calls++; return pingErr },
		pingLLM:       func(*domain.LLMSettings) error { calls++; return pingErr },
	}, &calls
}

func TestNewConfigValidator(t *testing.T) {
	validator := NewConfigValidator()

	require.NotNil(t, validator)
	assert.NotNil(t, validator.pingEmbedding)
	assert.NotNil(t, validator.pingLLM)
}

func TestConfigValidator_ValidateEmbedding_NothingToCheck(t *testing.T) {
	validator, calls := countingValidator(nil)

	assert.NoError(t, validator.ValidateEmbedding(nil))
	assert.NoError(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{Model: "nomic-embed-text"}))
	assert.Equal(t, 0, *calls)
}

func TestConfigValidator_ValidateEmbedding_ProviderWithoutEmbeddings(t *testing.T) {
	validator, calls := countingValidator(nil)

	err := validator.ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderAnthropic,
		Model:    "claude-3-5-sonnet-latest",
		APIKey:   "sk-ant-test",
	})

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "cannot embed case narratives")
	assert.Equal(t, 0, *calls, "a provider without embeddings must not be pinged")
}

func TestConfigValidator_ValidateEmbedding_UnknownProvider(t *testing.T) {
	validator, calls := countingValidator(nil)

	err := validator.ValidateEmbedding(&domain.EmbeddingSettings{Provider: "cohere", Model: "embed-v3"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, *calls)
}

func TestConfigValidator_ValidateEmbedding_PingsSupportedProvider(t *testing.T) {
	pingErr := errors.New("connection refused")
	validator, calls := countingValidator(pingErr)

	err := validator.ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
		BaseURL:  "http://localhost:11434",
	})

	assert.ErrorIs(t, err, pingErr)
	assert.Equal(t, 1, *calls)
}

func TestConfigValidator_ValidateLLM_NothingToCheck(t *testing.T) {
	validator, calls := countingValidator(nil)

	assert.NoError(t, validator.ValidateLLM(nil))
	assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{Model: "llama3.2"}))
	assert.Equal(t, 0, *calls)
}

func TestConfigValidator_ValidateLLM_Temperature(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
		wantErr     bool
	}{
		{name: "Deterministic", temperature: 0},
		{name: "Narrative default", temperature: 0.3},
		{name: "Upper bound", temperature: 2},
		{name: "Negative", temperature: -0.1, wantErr: true},
		{name: "Too high", temperature: 2.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, calls := countingValidator(nil)

			err := validator.ValidateLLM(&domain.LLMSettings{
				Provider:    domain.AIProviderAnthropic,
				Model:       "claude-3-5-sonnet-latest",
				APIKey:      "sk-ant-test",
				Temperature: tt.temperature,
			})

			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				assert.Equal(t, 0, *calls)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 1, *calls)
		})
	}
}

func TestConfigValidator_ValidateLLM_UnconfiguredProviderIsNotPinged(t *testing.T) {
	// Without a key the real ping returns before building a client.
	validator := NewConfigValidator()

	err := validator.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o-mini"})

	assert.NoError(t, err)
}
