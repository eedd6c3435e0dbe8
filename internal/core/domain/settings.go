package domain

import "time"

// AIProvider identifies a hosted or local model provider.
type AIProvider string

// Supported providers.
const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

type providerInfo struct {
	label      string
	local      bool
	embedModel string // empty when the provider has no embeddings API
	chatModel  string
}

// providerCatalogue lists providers in the order they are offered to users.
var providerCatalogue = []struct {
	id   AIProvider
	info providerInfo
}{
	{AIProviderOllama, providerInfo{label: "Ollama (local)", local: true, embedModel: "nomic-embed-text", chatModel: "llama3.2"}},
	{AIProviderOpenAI, providerInfo{label: "OpenAI (cloud)", embedModel: "text-embedding-3-small", chatModel: "gpt-4o-mini"}},
	{AIProviderAnthropic, providerInfo{label: "Anthropic (cloud)", chatModel: "claude-3-5-sonnet-latest"}},
}

func (p AIProvider) info() (providerInfo, bool) {
	for _, entry := range providerCatalogue {
		if entry.id == p {
			return entry.info, true
		}
	}
	return providerInfo{}, false
}

// IsValid reports whether p is in the catalogue.
func (p AIProvider) IsValid() bool {
	_, ok := p.info()
	return ok
}

// RequiresAPIKey reports whether p is a cloud provider.
func (p AIProvider) RequiresAPIKey() bool {
	info, ok := p.info()
	return ok && !info.local
}

// IsLocal reports whether p runs on the user's machine.
func (p AIProvider) IsLocal() bool {
	info, _ := p.info()
	return info.local
}

// SupportsEmbeddings reports whether p can embed text.
func (p AIProvider) SupportsEmbeddings() bool {
	info, _ := p.info()
	return info.embedModel != ""
}

func (p AIProvider) String() string {
	return string(p)
}

// Description returns the label shown in menus, or "Unknown".
func (p AIProvider) Description() string {
	if info, ok := p.info(); ok {
		return info.label
	}
	return "Unknown"
}

// CacheBackend selects where embedding cache entries are persisted.
type CacheBackend string

// Available cache backends.
const (
	// CacheBackendSQLite stores entries in a local SQLite file (default).
	CacheBackendSQLite CacheBackend = "sqlite"

	// CacheBackendRedis stores entries in a Redis hash, shared between hosts.
	CacheBackendRedis CacheBackend = "redis"

	// CacheBackendMemory keeps entries for the process lifetime only.
	CacheBackendMemory CacheBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheBackendSQLite, CacheBackendRedis, CacheBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b CacheBackend) String() string {
	return string(b)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond throttles provider calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature is used for every narrative request.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// CacheSettings holds embedding cache configuration.
type CacheSettings struct {
	Backend CacheBackend

	// Dir holds the SQLite file (default ~/.faersight/data).
	Dir string

	// RedisAddr, RedisPassword and RedisDB address the Redis backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// RetrySettings bounds provider retries.
type RetrySettings struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// AnalysisSettings holds the tunables of the selection and similarity engine.
type AnalysisSettings struct {
	// TopK is the default number of reactions returned by TopReactions.
	TopK int

	// BucketWidth is the width of age and weight buckets.
	BucketWidth float64

	// AgeUpper and WeightUpper close the bucketing domains [0, upper).
	AgeUpper    float64
	WeightUpper float64

	// SimilarityThreshold is the minimum total score of a similar case.
	// It is calibrated against the un-normalised [0, 4] scale.
	SimilarityThreshold float64

	// SimilarLimit caps the number of similar cases.
	SimilarLimit int
}

// LiteratureSettings configures the literature search provider.
type LiteratureSettings struct {
	BaseURL string
	Email   string
	APIKey  string

	// MaxResults is the number of articles fetched per drug.
	MaxResults int

	// PassagesPerQuery is the number of passages kept for each clinical query.
	PassagesPerQuery int
}

// DatasetSettings locates the case dataset.
type DatasetSettings struct {
	Path string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Dataset    DatasetSettings
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Cache      CacheSettings
	Retry      RetrySettings
	Analysis   AnalysisSettings
	Literature LiteratureSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI features (Embedding, LLM) are left unconfigured by default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{},
		LLM: LLMSettings{
			Temperature: 0.2,
		},
		Cache: CacheSettings{
			Backend:   CacheBackendSQLite,
			RedisAddr: "localhost:6379",
		},
		Retry: RetrySettings{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     20 * time.Second,
		},
		Analysis: AnalysisSettings{
			TopK:                10,
			BucketWidth:         10,
			AgeUpper:            130,
			WeightUpper:         300,
			SimilarityThreshold: 0.3,
			SimilarLimit:        5,
		},
		Literature: LiteratureSettings{
			BaseURL:          "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			MaxResults:       50,
			PassagesPerQuery: 2,
		},
	}
}

// AllEmbeddingProviders returns the providers that can embed text.
func AllEmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, entry := range providerCatalogue {
		if entry.info.embedModel != "" {
			out = append(out, entry.id)
		}
	}
	return out
}

// AllLLMProviders returns every provider; all of them can chat.
func AllLLMProviders() []AIProvider {
	out := make([]AIProvider, len(providerCatalogue))
	for i, entry := range providerCatalogue {
		out[i] = entry.id
	}
	return out
}

// DefaultEmbeddingModels maps each embedding provider to the model used when
// none is configured.
func DefaultEmbeddingModels() map[AIProvider]string {
	models := make(map[AIProvider]string)
	for _, entry := range providerCatalogue {
		if entry.info.embedModel != "" {
			models[entry.id] = entry.info.embedModel
		}
	}
	return models
}

// DefaultLLMModels maps each provider to its default chat model.
func DefaultLLMModels() map[AIProvider]string {
	models := make(map[AIProvider]string, len(providerCatalogue))
	for _, entry := range providerCatalogue {
		models[entry.id] = entry.info.chatModel
	}
	return models
}

// EmbeddingDimensions returns vector sizes of well-known embedding models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
