package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/core/ports/driving"
	"github.com/custodia-labs/faersight/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// statsProvider is implemented by caches that can describe themselves.
type statsProvider interface {
	Stats() domain.CacheStats
}

// RetrievalService ranks texts by cosine similarity of their embeddings.
// Embeddings go through the durable cache, so repeated corpora cost no
// provider calls.
type RetrievalService struct {
	embedder   driven.EmbeddingService
	literature driven.LiteratureSearch
}

// NewRetrievalService creates a retrieval service.
// The literature parameter is optional (can be nil).
func NewRetrievalService(embedder driven.EmbeddingService, literature driven.LiteratureSearch) *RetrievalService {
	return &RetrievalService{
		embedder:   embedder,
		literature: literature,
	}
}

// RankBySimilarity returns the min(n, len(corpus)) corpus texts closest to
// the query. Similarity is non-increasing; equal scores keep corpus order.
func (s *RetrievalService) RankBySimilarity(
	ctx context.Context, query string, corpus []string, n int,
) ([]domain.RankedText, error) {
	if n <= 0 || len(corpus) == 0 {
		return []domain.RankedText{}, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ranked := make([]domain.RankedText, 0, len(corpus))
	for i, text := range corpus {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed corpus text %d: %w", i, err)
		}
		ranked = append(ranked, domain.RankedText{
			Index:      i,
			Text:       text,
			Similarity: cosineSimilarity(queryVec, vec),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// BuildKnowledgeBase searches the literature for drug and embeds each record
// as structured text.
func (s *RetrievalService) BuildKnowledgeBase(ctx context.Context, drug string, maxResults int) ([]domain.Passage, error) {
	if s.literature == nil {
		return nil, domain.ErrLiteratureUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	drug = strings.TrimSpace(drug)
	if drug == "" {
		return nil, fmt.Errorf("%w: empty drug name", domain.ErrInvalidInput)
	}

	logger.Section("Knowledge Base")
	records, err := s.literature.Search(ctx, drug, maxResults)
	if err != nil {
		return nil, fmt.Errorf("literature search: %w", err)
	}
	logger.Debug("Literature search for %q returned %d records", drug, len(records))

	passages := make([]domain.Passage, 0, len(records))
	for _, r := range records {
		text := r.Text()
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed record %s: %w", r.PMID, err)
		}
		passages = append(passages, domain.Passage{Text: text, Vector: vec, Record: r})
	}
	return passages, nil
}

// RelevantPassages returns the n passages closest to the query, best first.
// Passages without a vector are embedded through the cache.
func (s *RetrievalService) RelevantPassages(
	ctx context.Context, query string, passages []domain.Passage, n int,
) ([]domain.Passage, error) {
	if n <= 0 || len(passages) == 0 {
		return []domain.Passage{}, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		passage domain.Passage
		score   float64
	}
	all := make([]scored, 0, len(passages))
	for _, p := range passages {
		vec := p.Vector
		if len(vec) == 0 {
			if vec, err = s.embedder.Embed(ctx, p.Text); err != nil {
				return nil, fmt.Errorf("embed passage: %w", err)
			}
		}
		all = append(all, scored{passage: p, score: cosineSimilarity(queryVec, vec)})
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].score > all[j].score
	})
	if len(all) > n {
		all = all[:n]
	}

	out := make([]domain.Passage, len(all))
	for i, sc := range all {
		out[i] = sc.passage
	}
	return out, nil
}

// CacheStats describes the embedding cache.
func (s *RetrievalService) CacheStats(ctx context.Context) (*domain.CacheStats, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if sp, ok := s.embedder.(statsProvider); ok {
		stats := sp.Stats()
		return &stats, nil
	}
	return &domain.CacheStats{Model: s.embedder.ModelName()}, nil
}

// cosineSimilarity compares two vectors over their common prefix.
// Zero or empty vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
