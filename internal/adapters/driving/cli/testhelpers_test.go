package cli

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driving"
)

var (
	_ driving.AnalysisService  = (*stubAnalysis)(nil)
	_ driving.RetrievalService = (*stubRetrieval)(nil)
	_ driving.InsightService   = (*stubInsight)(nil)
	_ driving.ProgressService  = (*stubProgress)(nil)
	_ driving.ExportService    = (*stubExport)(nil)
	_ driving.SettingsService  = (*stubSettings)(nil)
)

type stubAnalysis struct {
	criteria domain.SelectionCriteria
	k        int
	drug     string
	patient  domain.PatientProfile
	err      error
}

func (s *stubAnalysis) Select(_ context.Context, c domain.SelectionCriteria) ([]domain.CaseRecord, error) {
	s.criteria = c
	return []domain.CaseRecord{testCase("100"), testCase("200"), testCase("300")}, s.err
}

func (s *stubAnalysis) TopReactions(
	_ context.Context, c domain.SelectionCriteria, k int,
) ([]domain.ReactionFrequency, error) {
	s.criteria = c
	s.k = k
	return []domain.ReactionFrequency{
		{Term: "Nausea", Cases: 3, Fraction: 0.75},
		{Term: "Headache", Cases: 1, Fraction: 0.25},
	}, s.err
}

func (s *stubAnalysis) ReactionProfile(
	_ context.Context, drug string, p domain.PatientProfile,
) (*domain.ReactionProfile, error) {
	s.drug = drug
	s.patient = p
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ReactionProfile{
		AgeBucket: &domain.Interval{Start: 40, End: 50},
		ByAge:     []domain.ReactionFrequency{{Term: "Dizziness", Cases: 2, Fraction: 1}},
		BySex:     []domain.ReactionFrequency{},
	}, nil
}

func (s *stubAnalysis) SimilarCases(_ context.Context, p domain.PatientProfile) ([]domain.ScoredCase, error) {
	s.patient = p
	return []domain.ScoredCase{{
		Case:  testCase("100"),
		Score: domain.SimilarityScore{Age: 0.9, Weight: 0.8, Sex: 1, Medication: 0.5, Total: 3.2},
	}}, s.err
}

func (s *stubAnalysis) Stats(_ context.Context) (*domain.DatasetStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.DatasetStats{Quarter: "2024Q1", Cases: 4, WithAge: 3, DistinctTerms: 6}, nil
}

func (s *stubAnalysis) Report(
	_ context.Context, drug string, p domain.PatientProfile,
) (*domain.AnalysisReport, error) {
	s.drug = drug
	s.patient = p
	return &domain.AnalysisReport{Drug: drug, Patient: p}, s.err
}

type stubRetrieval struct {
	maxResults int
	n          int
}

func (s *stubRetrieval) RankBySimilarity(
	_ context.Context, _ string, _ []string, _ int,
) ([]domain.RankedText, error) {
	return nil, nil
}

func (s *stubRetrieval) BuildKnowledgeBase(_ context.Context, drug string, maxResults int) ([]domain.Passage, error) {
	s.maxResults = maxResults
	if drug == "unknown" {
		return nil, nil
	}
	return []domain.Passage{
		{Record: domain.LiteratureRecord{PMID: "11", Title: "Aspirin and bleeding", Abstract: "Abstract one.", Year: "2020"}},
		{Record: domain.LiteratureRecord{PMID: "22", Title: "Aspirin in the elderly", Abstract: "Abstract two."}},
	}, nil
}

func (s *stubRetrieval) RelevantPassages(
	_ context.Context, _ string, passages []domain.Passage, n int,
) ([]domain.Passage, error) {
	s.n = n
	if n < len(passages) {
		passages = passages[:n]
	}
	return passages, nil
}

func (s *stubRetrieval) CacheStats(_ context.Context) (*domain.CacheStats, error) {
	return &domain.CacheStats{Model: "nomic-embed-text", Entries: 42, Hits: 7, Misses: 3}, nil
}

type stubInsight struct {
	sessionID string
	err       error
}

func (s *stubInsight) Generate(
	ctx context.Context, sessionID, drug string, _ domain.PatientProfile,
) (*domain.InsightReport, error) {
	s.sessionID = sessionID
	if s.err != nil {
		return nil, s.err
	}
	return &domain.InsightReport{
		SessionID: sessionID,
		Drug:      drug,
		Insights:  "Bleeding risk is elevated.",
		Summary:   "Two similar reports.",
		Papers:    []domain.LiteratureRecord{{PMID: "11", Title: "Aspirin and bleeding"}},
		FDACases:  2,
	}, nil
}

type stubProgress struct {
	mu      sync.Mutex
	started int
}

func (s *stubProgress) Start(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return "session-1", nil
}

func (s *stubProgress) StartWithID(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return nil
}

func (s *stubProgress) Update(_ context.Context, _ string, _ int, _, _ string) error { return nil }

func (s *stubProgress) Complete(_ context.Context, _ string) error { return nil }

func (s *stubProgress) Get(_ context.Context, sessionID string) (*domain.Progress, error) {
	return &domain.Progress{SessionID: sessionID, Percent: 20, Status: "Creating medical knowledge base"}, nil
}

type stubExport struct {
	drug string
	path string
}

func (s *stubExport) Export(_ context.Context, drug string, _ domain.PatientProfile, path string) (string, error) {
	s.drug = drug
	s.path = path
	return path + ".xlsx", nil
}

type stubSettings struct {
	settings    domain.AppSettings
	validateErr error
}

func (s *stubSettings) Get() (*domain.AppSettings, error) {
	cp := s.settings
	return &cp, nil
}

func (s *stubSettings) Save(settings *domain.AppSettings) error {
	s.settings = *settings
	return nil
}

func (s *stubSettings) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	s.settings.Embedding.Provider = provider
	s.settings.Embedding.Model = model
	s.settings.Embedding.APIKey = apiKey
	return nil
}

func (s *stubSettings) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	s.settings.LLM.Provider = provider
	s.settings.LLM.Model = model
	s.settings.LLM.APIKey = apiKey
	return nil
}

func (s *stubSettings) SetCacheBackend(backend domain.CacheBackend) error {
	if !backend.IsValid() {
		return domain.ErrInvalidInput
	}
	s.settings.Cache.Backend = backend
	return nil
}

func (s *stubSettings) SetDatasetPath(path string) error {
	s.settings.Dataset.Path = path
	return nil
}

func (s *stubSettings) Validate() error { return s.validateErr }

func (s *stubSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (s *stubSettings) ValidateEmbeddingConfig() error { return nil }

func (s *stubSettings) ValidateLLMConfig() error { return nil }

func testCase(id string) domain.CaseRecord {
	return domain.CaseRecord{
		PrimaryID: id,
		Demographics: domain.Demographics{
			Age: domain.Some(45), AgeUnit: domain.AgeUnitYear,
			Weight: domain.Some(70), WeightUnit: domain.WeightUnitKilogram,
			Sex: domain.SexFemale,
		},
		Drugs:     []domain.Drug{{Name: "ASPIRIN", Role: domain.DrugRolePrimarySuspect}},
		Reactions: []domain.Reaction{{Term: "Nausea"}},
		Outcomes:  []domain.OutcomeCode{domain.OutcomeHospitalization},
	}
}

// testServices holds the stubs installed by setupTestServices.
type testServices struct {
	analysis  *stubAnalysis
	retrieval *stubRetrieval
	insight   *stubInsight
	progress  *stubProgress
	export    *stubExport
	settings  *stubSettings
}

// setupTestServices installs fresh stubs and returns a cleanup that clears
// services and resets flag state.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		analysis:  &stubAnalysis{},
		retrieval: &stubRetrieval{},
		insight:   &stubInsight{},
		progress:  &stubProgress{},
		export:    &stubExport{},
		settings:  &stubSettings{settings: domain.DefaultAppSettings()},
	}
	SetServices(&Services{
		Settings:  ts.settings,
		Analysis:  ts.analysis,
		Retrieval: ts.retrieval,
		Insight:   ts.insight,
		Progress:  ts.progress,
		Export:    ts.export,
	})
	return ts, func() {
		SetServices(&Services{})
		resetFlags()
	}
}

func resetFlags() {
	selectFlags.reset()
	reactionsFlags.reset()
	profileFlags.reset()
	similarFlags.reset()
	insightFlags.reset()
	exportFlags.reset()
	selectLimit = 20
	selectJSON = false
	reactionsTopK = 0
	reactionsJSON = false
	similarJSON = false
	literaturePassages = 3
	literatureMax = 20
	insightJSON = false
}

// execute runs the root command with args and returns stdout and stderr.
func execute(args ...string) (string, string, error) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// slowInsight blocks long enough for the progress watcher to poll.
type slowInsight struct {
	delay time.Duration
}

func (s *slowInsight) Generate(
	ctx context.Context, sessionID, drug string, _ domain.PatientProfile,
) (*domain.InsightReport, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &domain.InsightReport{SessionID: sessionID, Drug: drug}, nil
}
