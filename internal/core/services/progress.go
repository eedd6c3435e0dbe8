package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/core/ports/driving"
)

// Ensure ProgressTracker implements the interface.
var _ driving.ProgressService = (*ProgressTracker)(nil)

// Progress statuses.
const (
	StatusStarting = "Starting analysis..."
	StatusComplete = "Complete"
)

const maxSessionIDLen = 128

// ProgressTracker records progress per session. Concurrent requests never
// see each other's state.
type ProgressTracker struct {
	store driven.ProgressStore
	now   func() time.Time
}

// NewProgressTracker creates a tracker over store.
func NewProgressTracker(store driven.ProgressStore) *ProgressTracker {
	return &ProgressTracker{
		store: store,
		now:   time.Now,
	}
}

// Start opens a new session under a random id.
func (t *ProgressTracker) Start(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := t.StartWithID(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// StartWithID opens, or restarts, the session with the given id.
func (t *ProgressTracker) StartWithID(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" || len(sessionID) > maxSessionIDLen {
		return fmt.Errorf("%w: session id must be 1-%d characters", domain.ErrInvalidInput, maxSessionIDLen)
	}
	err := t.store.Save(ctx, domain.Progress{
		SessionID: sessionID,
		Status:    StatusStarting,
		UpdatedAt: t.now(),
	})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// Update records progress. Percent is clamped to [0, 100].
func (t *ProgressTracker) Update(ctx context.Context, sessionID string, percent int, status, details string) error {
	current, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	current.Percent = min(max(percent, 0), 100)
	current.Status = status
	current.Details = details
	current.UpdatedAt = t.now()
	return t.store.Save(ctx, *current)
}

// Complete marks the session finished at 100%.
func (t *ProgressTracker) Complete(ctx context.Context, sessionID string) error {
	current, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	current.Percent = 100
	current.Status = StatusComplete
	current.Details = ""
	current.Complete = true
	current.UpdatedAt = t.now()
	return t.store.Save(ctx, *current)
}

// Get returns the current progress of a session.
func (t *ProgressTracker) Get(ctx context.Context, sessionID string) (*domain.Progress, error) {
	p, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return p, nil
}
