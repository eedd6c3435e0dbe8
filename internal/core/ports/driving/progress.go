package driving

import (
	"context"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// ProgressService tracks long-running requests per session.
type ProgressService interface {
	// Start opens a new session and returns its id.
	Start(ctx context.Context) (string, error)

	// StartWithID opens a session under a caller-chosen id, resetting any
	// previous state kept for it.
	StartWithID(ctx context.Context, sessionID string) error

	// Update records progress for a session.
	Update(ctx context.Context, sessionID string, percent int, status, details string) error

	// Complete marks a session as finished.
	Complete(ctx context.Context, sessionID string) error

	// Get returns the current progress of a session.
	Get(ctx context.Context, sessionID string) (*domain.Progress, error)
}
