package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// Ensure ProgressStore implements the interface.
var _ driven.ProgressStore = (*ProgressStore)(nil)

// ProgressStore keeps session progress in memory.
type ProgressStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Progress
}

// NewProgressStore creates a new in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		sessions: make(map[string]domain.Progress),
	}
}

// Save creates or replaces the progress of a session.
func (s *ProgressStore) Save(_ context.Context, progress domain.Progress) error {
	if progress.SessionID == "" {
		return fmt.Errorf("%w: empty session id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[progress.SessionID] = progress
	return nil
}

// Get returns the progress of a session.
func (s *ProgressStore) Get(_ context.Context, sessionID string) (*domain.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// Delete forgets a session.
func (s *ProgressStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
