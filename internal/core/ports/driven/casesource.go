package driven

import (
	"context"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// CaseSource loads the adverse-event dataset.
// The dataset is loaded once per process and shared read-only.
type CaseSource interface {
	// Load reads and validates the full dataset.
	// Unknown unit codes fail the load with domain.ErrUnknownUnit.
	Load(ctx context.Context) (*domain.Dataset, error)
}
