package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings for the process lifetime only. It backs the CLI
// when the config directory is not writable, and the settings tests.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore creates an empty store.
func NewConfigStore() *ConfigStore {
	return NewConfigStoreWithValues(nil)
}

// NewConfigStoreWithValues creates a store seeded with a copy of values.
func NewConfigStoreWithValues(values map[string]any) *ConfigStore {
	s := &ConfigStore{values: make(map[string]any, len(values))}
	maps.Copy(s.values, values)
	return s
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	str, _ := lookup[string](s, key)
	return str
}

// GetInt retrieves an integer configuration value. Floats are truncated.
func (s *ConfigStore) GetInt(key string) int {
	f, ok := s.number(key)
	if !ok {
		return 0
	}
	return int(f)
}

// GetFloat retrieves a float configuration value. Integers are widened.
func (s *ConfigStore) GetFloat(key string) float64 {
	f, _ := s.number(key)
	return f
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	b, _ := lookup[bool](s, key)
	return b
}

// GetStringSlice retrieves a string slice. Non-string items of a mixed
// slice are dropped.
func (s *ConfigStore) GetStringSlice(key string) []string {
	val, ok := s.Get(key)
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// Set stores a configuration value.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Snapshot returns a copy of every stored value.
func (s *ConfigStore) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Replace swaps the stored values for a copy of values.
func (s *ConfigStore) Replace(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]any, len(values))
	maps.Copy(s.values, values)
}

// Save is a no-op; nothing outlives the process.
func (s *ConfigStore) Save() error {
	return nil
}

// Load is a no-op.
func (s *ConfigStore) Load() error {
	return nil
}

// Path returns ":memory:".
func (s *ConfigStore) Path() string {
	return ":memory:"
}

func (s *ConfigStore) number(key string) (float64, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func lookup[T any](s *ConfigStore, key string) (T, bool) {
	var zero T
	val, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := val.(T)
	return t, ok
}
