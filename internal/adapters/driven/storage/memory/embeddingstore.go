package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

// EmbeddingStore is an in-memory implementation of driven.EmbeddingStore.
// Entries live for the process lifetime. Two services sharing one store
// behave like two processes sharing a durable cache.
type EmbeddingStore struct {
	mu      sync.RWMutex
	entries map[string]map[string][]float32
	puts    int
}

// NewEmbeddingStore creates a new in-memory embedding store.
func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{
		entries: make(map[string]map[string][]float32),
	}
}

// LoadAll returns a copy of every entry for the model.
func (s *EmbeddingStore) LoadAll(_ context.Context, model string) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]float32, len(s.entries[model]))
	for text, vec := range s.entries[model] {
		out[text] = copyVector(vec)
	}
	return out, nil
}

// Get returns a single entry.
func (s *EmbeddingStore) Get(_ context.Context, model, text string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.entries[model][text]
	if !ok {
		return nil, false, nil
	}
	return copyVector(vec), true, nil
}

// Put stores or overwrites one entry.
func (s *EmbeddingStore) Put(_ context.Context, model, text string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[model] == nil {
		s.entries[model] = make(map[string][]float32)
	}
	s.entries[model][text] = copyVector(vector)
	s.puts++
	return nil
}

// Count returns the number of entries for the model.
func (s *EmbeddingStore) Count(_ context.Context, model string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[model]), nil
}

// Puts returns how many writes the store has received.
func (s *EmbeddingStore) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

// Close is a no-op.
func (s *EmbeddingStore) Close() error {
	return nil
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
