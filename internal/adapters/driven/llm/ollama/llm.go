// Package ollama provides an LLM service adapter for a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/faersight/internal/adapters/driven/httpx"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using Ollama.
type LLMService struct {
	http  *httpx.Client
	model string
}

type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		http:  httpx.New(httpx.Config{Provider: "ollama", BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}),
		model: cfg.Model,
	}
}

// Generate produces a completion for a single prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var out generateResponse
	_, err := s.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(generateRequest{
			Model:  s.model,
			Prompt: prompt,
			Options: options{
				NumPredict:  opts.MaxTokens,
				Temperature: opts.Temperature,
				Stop:        opts.StopWords,
			},
		}).SetResult(&out).Post("/api/generate")
	})
	if err != nil {
		return "", err
	}
	return out.Response, nil
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	msgs := make([]chatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	var out chatResponse
	_, err := s.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(chatRequest{
			Model:    s.model,
			Messages: msgs,
			Options:  options{NumPredict: opts.MaxTokens, Temperature: opts.Temperature},
		}).SetResult(&out).Post("/api/chat")
	})
	if err != nil {
		return "", err
	}
	return out.Message.Content, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks that the server answers on /api/tags.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/api/tags")
	})
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
