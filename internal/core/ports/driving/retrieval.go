package driving

import (
	"context"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// RetrievalService embeds texts through the durable cache and ranks them.
type RetrievalService interface {
	// RankBySimilarity returns the min(n, len(corpus)) corpus texts most
	// similar to the query, most similar first.
	RankBySimilarity(ctx context.Context, query string, corpus []string, n int) ([]domain.RankedText, error)

	// BuildKnowledgeBase searches the literature for a drug and embeds
	// every record.
	BuildKnowledgeBase(ctx context.Context, drug string, maxResults int) ([]domain.Passage, error)

	// RelevantPassages returns the n passages most similar to the query.
	RelevantPassages(ctx context.Context, query string, passages []domain.Passage, n int) ([]domain.Passage, error)

	// CacheStats describes the embedding cache.
	CacheStats(ctx context.Context) (*domain.CacheStats, error)
}
