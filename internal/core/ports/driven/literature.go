package driven

import (
	"context"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// LiteratureSearch finds published articles for a free-text query.
// Results are returned in provider relevance order.
type LiteratureSearch interface {
	// Search returns at most maxResults records.
	Search(ctx context.Context, query string, maxResults int) ([]domain.LiteratureRecord, error)
}
