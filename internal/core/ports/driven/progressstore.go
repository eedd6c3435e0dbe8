package driven

import (
	"context"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// ProgressStore keeps the progress of long-running requests keyed by session.
type ProgressStore interface {
	// Save creates or replaces the progress of a session.
	Save(ctx context.Context, progress domain.Progress) error

	// Get returns the progress of a session.
	// Returns domain.ErrNotFound if the session is unknown.
	Get(ctx context.Context, sessionID string) (*domain.Progress, error)

	// Delete forgets a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, sessionID string) error
}
