// Package ollama provides an embedding service adapter for a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/faersight/internal/adapters/driven/httpx"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768 // nomic-embed-text
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions overrides the vector size reported for the model.
	Dimensions int

	RequestsPerSecond float64
}

// EmbeddingService generates embeddings with Ollama.
type EmbeddingService struct {
	http       *httpx.Client
	model      string
	dimensions int
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &EmbeddingService{
		http: httpx.New(httpx.Config{
			Provider:          "ollama",
			BaseURL:           cfg.BaseURL,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse
	_, err := s.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(embedRequest{Model: s.model, Prompt: text}).
			SetResult(&out).
			Post("/api/embeddings")
	})
	if err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("ollama: empty embedding for model %s", s.model)
	}

	embedding := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// EmbedBatch embeds texts one by one; Ollama has no batch endpoint.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks that the server answers on /api/tags.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/api/tags")
	})
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
