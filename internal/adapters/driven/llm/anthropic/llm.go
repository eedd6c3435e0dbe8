// Package anthropic provides an LLM service adapter using the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/faersight/internal/adapters/driven/httpx"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	Timeout time.Duration
}

// LLMService provides LLM operations using Anthropic.
type LLMService struct {
	http  *httpx.Client
	model string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature"`
	StopSeqs    []string  `json:"stop_sequences,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		http: httpx.New(httpx.Config{
			Provider: "anthropic",
			BaseURL:  cfg.BaseURL,
			Timeout:  cfg.Timeout,
			Headers: map[string]string{
				"x-api-key":         cfg.APIKey,
				"anthropic-version": anthropicVersion,
			},
		}),
		model: cfg.Model,
	}, nil
}

// Generate produces a completion for a single prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return s.send(ctx, messagesRequest{
		Messages:    []message{{Role: driven.RoleUser, Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		StopSeqs:    opts.StopWords,
	})
}

// Chat conducts a multi-turn conversation. System messages are joined
// into the top-level system field.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var system []string
	msgs := make([]message, 0, len(messages))
	for _, m := range messages {
		if m.Role == driven.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		msgs = append(msgs, message{Role: m.Role, Content: m.Content})
	}
	return s.send(ctx, messagesRequest{
		Messages:    msgs,
		System:      strings.Join(system, "\n\n"),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
}

func (s *LLMService) send(ctx context.Context, req messagesRequest) (string, error) {
	req.Model = s.model
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	var out messagesResponse
	_, err := s.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&out).Post("/v1/messages")
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("anthropic: no text content returned")
	}
	return text.String(), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key against /v1/models without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/v1/models")
	})
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
