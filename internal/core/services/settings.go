package services

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDatasetPath = "dataset.path"

	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyEmbedRPS      = "embedding.requests_per_second"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"

	keyCacheBackend   = "cache.backend"
	keyCacheDir       = "cache.dir"
	keyRedisAddr      = "cache.redis_addr"
	keyRedisPassword  = "cache.redis_password"
	keyRedisDB        = "cache.redis_db"
	keyRetryAttempts  = "retry.max_attempts"
	keyRetryInitial   = "retry.initial_backoff"
	keyRetryMax       = "retry.max_backoff"
	keyTopK           = "analysis.top_k"
	keyBucketWidth    = "analysis.bucket_width"
	keyAgeUpper       = "analysis.age_upper"
	keyWeightUpper    = "analysis.weight_upper"
	keySimThreshold   = "analysis.similarity_threshold"
	keySimilarLimit   = "analysis.similar_limit"
	keyLitBaseURL     = "literature.base_url"
	keyLitEmail       = "literature.email"
	keyLitAPIKey      = "literature.api_key"
	keyLitMaxResults  = "literature.max_results"
	keyLitPerQuery    = "literature.passages_per_query"
	defaultOllamaHost = "http://localhost:11434"
)

// Environment variables consulted when no key is configured.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvNCBIKey      = "NCBI_API_KEY"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Dataset: domain.DatasetSettings{
			Path: s.configStore.GetString(keyDatasetPath),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, defaults.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
		},
		Cache: domain.CacheSettings{
			Backend:       s.getCacheBackend(defaults.Cache.Backend),
			Dir:           s.configStore.GetString(keyCacheDir),
			RedisAddr:     s.getString(keyRedisAddr, defaults.Cache.RedisAddr),
			RedisPassword: s.configStore.GetString(keyRedisPassword),
			RedisDB:       s.configStore.GetInt(keyRedisDB),
		},
		Analysis: domain.AnalysisSettings{
			TopK:                s.getInt(keyTopK, defaults.Analysis.TopK),
			BucketWidth:         s.getFloat(keyBucketWidth, defaults.Analysis.BucketWidth),
			AgeUpper:            s.getFloat(keyAgeUpper, defaults.Analysis.AgeUpper),
			WeightUpper:         s.getFloat(keyWeightUpper, defaults.Analysis.WeightUpper),
			SimilarityThreshold: s.getFloat(keySimThreshold, defaults.Analysis.SimilarityThreshold),
			SimilarLimit:        s.getInt(keySimilarLimit, defaults.Analysis.SimilarLimit),
		},
		Literature: domain.LiteratureSettings{
			BaseURL:          s.getString(keyLitBaseURL, defaults.Literature.BaseURL),
			Email:            s.configStore.GetString(keyLitEmail),
			APIKey:           s.getString(keyLitAPIKey, s.getenv(EnvNCBIKey)),
			MaxResults:       s.getInt(keyLitMaxResults, defaults.Literature.MaxResults),
			PassagesPerQuery: s.getInt(keyLitPerQuery, defaults.Literature.PassagesPerQuery),
		},
	}

	retry, err := s.getRetry(defaults.Retry)
	if err != nil {
		return nil, err
	}
	settings.Retry = retry

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envAPIKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envAPIKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Save persists application settings.
// API keys that came from the environment are not written to disk.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyDatasetPath, settings.Dataset.Path},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyCacheBackend, settings.Cache.Backend.String()},
		{keyCacheDir, settings.Cache.Dir},
		{keyRedisAddr, settings.Cache.RedisAddr},
		{keyRedisDB, settings.Cache.RedisDB},
		{keyRetryAttempts, settings.Retry.MaxAttempts},
		{keyRetryInitial, settings.Retry.InitialBackoff.String()},
		{keyRetryMax, settings.Retry.MaxBackoff.String()},
		{keyTopK, settings.Analysis.TopK},
		{keyBucketWidth, settings.Analysis.BucketWidth},
		{keyAgeUpper, settings.Analysis.AgeUpper},
		{keyWeightUpper, settings.Analysis.WeightUpper},
		{keySimThreshold, settings.Analysis.SimilarityThreshold},
		{keySimilarLimit, settings.Analysis.SimilarLimit},
		{keyLitBaseURL, settings.Literature.BaseURL},
		{keyLitEmail, settings.Literature.Email},
		{keyLitMaxResults, settings.Literature.MaxResults},
		{keyLitPerQuery, settings.Literature.PassagesPerQuery},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct {
		key, value, env string
	}{
		{keyEmbedAPIKey, settings.Embedding.APIKey, s.envAPIKey(settings.Embedding.Provider)},
		{keyLLMAPIKey, settings.LLM.APIKey, s.envAPIKey(settings.LLM.Provider)},
		{keyLitAPIKey, settings.Literature.APIKey, s.getenv(EnvNCBIKey)},
		{keyRedisPassword, settings.Cache.RedisPassword, ""},
	}
	for _, sec := range secrets {
		if sec.value == "" || sec.value == sec.env {
			continue
		}
		if err := s.configStore.Set(sec.key, sec.value); err != nil {
			return fmt.Errorf("save %s: %w", sec.key, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = pickModel(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = pickModel(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetCacheBackend selects where embeddings are persisted.
func (s *SettingsService) SetCacheBackend(backend domain.CacheBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid cache backend: %s", backend)
	}
	return s.configStore.Set(keyCacheBackend, backend.String())
}

// SetDatasetPath points the application at a case dataset.
func (s *SettingsService) SetDatasetPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%w: empty dataset path", domain.ErrInvalidInput)
	}
	return s.configStore.Set(keyDatasetPath, path)
}

// Validate checks that current settings are consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if settings.Embedding.Provider != "" && !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding provider %s is not fully configured", settings.Embedding.Provider))
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("LLM provider %s is not fully configured", settings.LLM.Provider))
	}
	if settings.Cache.Backend == domain.CacheBackendRedis && settings.Cache.RedisAddr == "" {
		errs = append(errs, errors.New("redis cache backend requires cache.redis_addr"))
	}
	a := settings.Analysis
	if a.BucketWidth <= 0 || a.AgeUpper <= 0 || a.WeightUpper <= 0 {
		errs = append(errs, errors.New("analysis bucket width and upper bounds must be positive"))
	}
	if a.TopK <= 0 || a.SimilarLimit <= 0 {
		errs = append(errs, errors.New("analysis top_k and similar_limit must be positive"))
	}
	if a.SimilarityThreshold < 0 || a.SimilarityThreshold > 4 {
		errs = append(errs, errors.New("analysis similarity_threshold must lie in [0, 4]"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func pickModel(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// baseURLFor keeps a configured local endpoint and clears it for cloud providers.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return defaultOllamaHost
	}
	return current
}

func (s *SettingsService) envAPIKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(EnvAnthropicKey)
	default:
		return ""
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	return d, nil
}

func (s *SettingsService) getRetry(defaults domain.RetrySettings) (domain.RetrySettings, error) {
	initial, err := s.getDuration(keyRetryInitial, defaults.InitialBackoff)
	if err != nil {
		return domain.RetrySettings{}, err
	}
	maxBackoff, err := s.getDuration(keyRetryMax, defaults.MaxBackoff)
	if err != nil {
		return domain.RetrySettings{}, err
	}
	return domain.RetrySettings{
		MaxAttempts:    s.getInt(keyRetryAttempts, defaults.MaxAttempts),
		InitialBackoff: initial,
		MaxBackoff:     maxBackoff,
	}, nil
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getCacheBackend(defaultVal domain.CacheBackend) domain.CacheBackend {
	backend := domain.CacheBackend(s.configStore.GetString(keyCacheBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
