package mcp

import (
	"context"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driving"
)

var (
	_ driving.AnalysisService  = (*mockAnalysisService)(nil)
	_ driving.RetrievalService = (*mockRetrievalService)(nil)
	_ driving.InsightService   = (*mockInsightService)(nil)
	_ driving.ProgressService  = (*mockProgressService)(nil)
)

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	cases    []domain.CaseRecord
	freqs    []domain.ReactionFrequency
	profile  *domain.ReactionProfile
	scored   []domain.ScoredCase
	stats    *domain.DatasetStats
	err      error
	criteria domain.SelectionCriteria
	k        int
	patient  domain.PatientProfile
}

func (m *mockAnalysisService) Select(_ context.Context, c domain.SelectionCriteria) ([]domain.CaseRecord, error) {
	m.criteria = c
	return m.cases, m.err
}

func (m *mockAnalysisService) TopReactions(
	_ context.Context, c domain.SelectionCriteria, k int,
) ([]domain.ReactionFrequency, error) {
	m.criteria = c
	m.k = k
	return m.freqs, m.err
}

func (m *mockAnalysisService) ReactionProfile(
	_ context.Context, _ string, p domain.PatientProfile,
) (*domain.ReactionProfile, error) {
	m.patient = p
	return m.profile, m.err
}

func (m *mockAnalysisService) SimilarCases(_ context.Context, p domain.PatientProfile) ([]domain.ScoredCase, error) {
	m.patient = p
	return m.scored, m.err
}

func (m *mockAnalysisService) Stats(_ context.Context) (*domain.DatasetStats, error) {
	return m.stats, m.err
}

func (m *mockAnalysisService) Report(
	_ context.Context, drug string, p domain.PatientProfile,
) (*domain.AnalysisReport, error) {
	m.patient = p
	return &domain.AnalysisReport{Drug: drug, Patient: p}, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	passages   []domain.Passage
	maxResults int
	n          int
	err        error
}

func (m *mockRetrievalService) RankBySimilarity(
	_ context.Context, _ string, _ []string, _ int,
) ([]domain.RankedText, error) {
	return nil, m.err
}

func (m *mockRetrievalService) BuildKnowledgeBase(_ context.Context, _ string, maxResults int) ([]domain.Passage, error) {
	m.maxResults = maxResults
	return m.passages, m.err
}

func (m *mockRetrievalService) RelevantPassages(
	_ context.Context, _ string, passages []domain.Passage, n int,
) ([]domain.Passage, error) {
	m.n = n
	if n < len(passages) {
		passages = passages[:n]
	}
	return passages, m.err
}

func (m *mockRetrievalService) CacheStats(_ context.Context) (*domain.CacheStats, error) {
	return &domain.CacheStats{}, m.err
}

// mockInsightService is a mock implementation of driving.InsightService.
type mockInsightService struct {
	report *domain.InsightReport
	err    error
}

func (m *mockInsightService) Generate(
	_ context.Context, sessionID, drug string, _ domain.PatientProfile,
) (*domain.InsightReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	r := *m.report
	r.SessionID = sessionID
	r.Drug = drug
	return &r, nil
}

// mockProgressService is a mock implementation of driving.ProgressService.
type mockProgressService struct {
	progress map[string]*domain.Progress
}

func (m *mockProgressService) Start(_ context.Context) (string, error) {
	return "session-1", nil
}

func (m *mockProgressService) StartWithID(_ context.Context, _ string) error {
	return nil
}

func (m *mockProgressService) Update(_ context.Context, _ string, _ int, _, _ string) error {
	return nil
}

func (m *mockProgressService) Complete(_ context.Context, _ string) error {
	return nil
}

func (m *mockProgressService) Get(_ context.Context, sessionID string) (*domain.Progress, error) {
	p, ok := m.progress[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
