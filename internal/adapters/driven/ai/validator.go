package ai

import (
	"fmt"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// maxTemperature is the highest sampling temperature the narrative prompts accept.
const maxTemperature = 2.0

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings before they are saved.
//
// Settings that can never work, such as an embedding provider without an
// embeddings API, are rejected without a network call. Anything else is
// checked by pinging the provider.
type ConfigValidator struct {
	pingEmbedding func(*domain.EmbeddingSettings) error
	pingLLM       func(*domain.LLMSettings) error
}

// NewConfigValidator creates a validator that pings the real providers.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		pingEmbedding: ValidateEmbeddingConfig,
		pingLLM:       ValidateLLMConfig,
	}
}

// ValidateEmbedding checks the provider used for similar-case and passage
// ranking.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || config.Provider == "" {
		return nil
	}
	if !config.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, config.Provider)
	}
	if !config.Provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: %s cannot embed case narratives, use ollama or openai",
			domain.ErrInvalidInput, config.Provider)
	}
	return v.pingEmbedding(config)
}

// ValidateLLM checks the provider used for insight narratives.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || config.Provider == "" {
		return nil
	}
	if !config.Provider.IsValid() {
		return fmt.Errorf("%w: unknown LLM provider %q", domain.ErrInvalidInput, config.Provider)
	}
	if config.Temperature < 0 || config.Temperature > maxTemperature {
		return fmt.Errorf("%w: temperature %g outside [0, %g]",
			domain.ErrInvalidInput, config.Temperature, maxTemperature)
	}
	return v.pingLLM(config)
}
