// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/faersight/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/faersight/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/faersight/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/faersight/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/faersight/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

const fixHint = "Run 'faersight settings' to fix"

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues; the matching service is left nil.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates and validates both AI services. A provider that is configured
// but unreachable is reported as a warning and left nil so that the
// dataset-only commands keep working.
func Init(settings domain.AppSettings) *InitResult {
	res := &InitResult{}

	embed, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	}
	res.EmbeddingService = embed

	llm, err := CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	}
	res.LLMService = llm

	return res
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		return nil, errors.New("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", settings.Provider)
	}
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        domain.EmbeddingDimensions()[settings.Model],
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
