package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/faersight/internal/core/analysis"
	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/core/ports/driving"
	"github.com/custodia-labs/faersight/internal/logger"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// AnalysisService runs the selection, aggregation and similarity engine
// over a dataset that is loaded once and then shared read-only.
type AnalysisService struct {
	source   driven.CaseSource
	settings domain.AnalysisSettings

	loadMu  sync.Mutex
	loaded  bool
	dataset *domain.Dataset
	loadErr error

	now func() time.Time
}

// NewAnalysisService creates an analysis service. Unset settings fall back
// to the defaults. A similarity threshold of 0 is kept: it admits every case.
func NewAnalysisService(source driven.CaseSource, settings domain.AnalysisSettings) *AnalysisService {
	return &AnalysisService{
		source:   source,
		settings: withAnalysisDefaults(settings),
		now:      time.Now,
	}
}

func withAnalysisDefaults(s domain.AnalysisSettings) domain.AnalysisSettings {
	d := domain.DefaultAppSettings().Analysis
	if s.TopK <= 0 {
		s.TopK = d.TopK
	}
	if s.BucketWidth <= 0 {
		s.BucketWidth = d.BucketWidth
	}
	if s.AgeUpper <= 0 {
		s.AgeUpper = d.AgeUpper
	}
	if s.WeightUpper <= 0 {
		s.WeightUpper = d.WeightUpper
	}
	if s.SimilarityThreshold < 0 {
		s.SimilarityThreshold = d.SimilarityThreshold
	}
	if s.SimilarLimit <= 0 {
		s.SimilarLimit = d.SimilarLimit
	}
	return s
}

// cases returns the loaded dataset, loading it on first use. The outcome
// is kept for the process lifetime unless the load was cut short by the
// caller's context, in which case the next call tries again.
func (s *AnalysisService) cases(ctx context.Context) (*domain.Dataset, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if !s.loaded {
		ds, err := s.load(ctx)
		if err != nil && isContextError(err) {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
		s.dataset, s.loadErr, s.loaded = ds, err, true
	}
	if s.loadErr != nil {
		return nil, fmt.Errorf("load dataset: %w", s.loadErr)
	}
	return s.dataset, nil
}

func (s *AnalysisService) load(ctx context.Context) (*domain.Dataset, error) {
	if s.source == nil {
		return nil, domain.ErrDatasetUnavailable
	}
	logger.Section("Dataset")
	start := time.Now()
	ds, err := s.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded %d cases (%s) in %s",
		len(ds.Cases), ds.Metadata.Quarter, time.Since(start).Round(time.Millisecond))
	return ds, nil
}

// Select returns the cases matching every set criterion.
func (s *AnalysisService) Select(ctx context.Context, criteria domain.SelectionCriteria) ([]domain.CaseRecord, error) {
	ds, err := s.cases(ctx)
	if err != nil {
		return nil, err
	}
	selected, err := analysis.Select(criteria, ds.Cases)
	if err != nil {
		return nil, err
	}
	logger.Debug("Selected %d of %d cases", len(selected), len(ds.Cases))
	return selected, nil
}

// TopReactions returns the most frequent reactions among selected cases.
func (s *AnalysisService) TopReactions(
	ctx context.Context, criteria domain.SelectionCriteria, k int,
) ([]domain.ReactionFrequency, error) {
	selected, err := s.Select(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.settings.TopK
	}
	return analysis.TopReactions(selected, k), nil
}

// ReactionProfile returns the top reactions for the patient's age bucket,
// weight bucket and sex. A dimension the patient leaves absent is skipped.
func (s *AnalysisService) ReactionProfile(
	ctx context.Context, drug string, patient domain.PatientProfile,
) (*domain.ReactionProfile, error) {
	ds, err := s.cases(ctx)
	if err != nil {
		return nil, err
	}

	base := ds.Cases
	if analysis.FoldName(drug) != "" {
		base = analysis.SelectByMedication(drug, nil, base)
		logger.Debug("%d cases list %s", len(base), drug)
	}

	profile := &domain.ReactionProfile{}

	if patient.Age.Valid {
		bucket, err := analysis.Bucket(patient.Age.Value, s.settings.BucketWidth, s.settings.AgeUpper)
		if err != nil {
			return nil, fmt.Errorf("age: %w", err)
		}
		byAge, err := analysis.SelectByAge(bucket.Start, bucket.End, base)
		if err != nil {
			return nil, err
		}
		profile.AgeBucket = &bucket
		profile.ByAge = analysis.TopReactions(byAge, s.settings.TopK)
		logger.Debug("Age bucket %s: %d cases", bucket, len(byAge))
	}

	if patient.Weight.Valid {
		bucket, err := analysis.Bucket(patient.Weight.Value, s.settings.BucketWidth, s.settings.WeightUpper)
		if err != nil {
			return nil, fmt.Errorf("weight: %w", err)
		}
		byWeight, err := analysis.SelectByWeight(bucket.Start, bucket.End, base)
		if err != nil {
			return nil, err
		}
		profile.WeightBucket = &bucket
		profile.ByWeight = analysis.TopReactions(byWeight, s.settings.TopK)
		logger.Debug("Weight bucket %s: %d cases", bucket, len(byWeight))
	}

	if patient.Sex.IsKnown() {
		bySex := analysis.SelectBySex(patient.Sex, base)
		profile.BySex = analysis.TopReactions(bySex, s.settings.TopK)
		logger.Debug("Sex %s: %d cases", patient.Sex, len(bySex))
	}

	return profile, nil
}

// SimilarCases ranks the whole dataset by similarity to the patient.
func (s *AnalysisService) SimilarCases(ctx context.Context, patient domain.PatientProfile) ([]domain.ScoredCase, error) {
	ds, err := s.cases(ctx)
	if err != nil {
		return nil, err
	}
	ranked, err := analysis.RankSimilar(patient, ds.Cases, s.settings.SimilarityThreshold, s.settings.SimilarLimit)
	if err != nil {
		return nil, err
	}
	logger.Info("Found %d similar cases above threshold %g", len(ranked), s.settings.SimilarityThreshold)
	return ranked, nil
}

// Stats summarises the loaded dataset.
func (s *AnalysisService) Stats(ctx context.Context) (*domain.DatasetStats, error) {
	ds, err := s.cases(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.DatasetStats{
		Quarter: ds.Metadata.Quarter,
		Cases:   len(ds.Cases),
	}
	drugs := make(map[string]struct{})
	terms := make(map[string]struct{})
	for _, c := range ds.Cases {
		demo, err := c.Demographics.Normalize()
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.PrimaryID, err)
		}
		if demo.AgeYears.Valid {
			stats.WithAge++
		}
		if demo.WeightKG.Valid {
			stats.WithWeight++
		}
		if demo.Sex.IsKnown() {
			stats.WithSex++
		}
		for _, name := range c.DrugNames() {
			drugs[analysis.FoldName(name)] = struct{}{}
		}
		for _, term := range c.ReactionTerms() {
			terms[term] = struct{}{}
		}
	}
	stats.DistinctDrugs = len(drugs)
	stats.DistinctTerms = len(terms)
	return stats, nil
}

// Report bundles the engine outputs for one drug and patient.
func (s *AnalysisService) Report(
	ctx context.Context, drug string, patient domain.PatientProfile,
) (*domain.AnalysisReport, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.ReactionProfile(ctx, drug, patient)
	if err != nil {
		return nil, err
	}
	overall, err := s.TopReactions(ctx, domain.SelectionCriteria{Drug: drug}, 0)
	if err != nil {
		return nil, err
	}
	similar, err := s.SimilarCases(ctx, patient)
	if err != nil {
		return nil, err
	}
	return &domain.AnalysisReport{
		Drug:        drug,
		Patient:     patient,
		Stats:       *stats,
		Profile:     *profile,
		Overall:     overall,
		Similar:     similar,
		GeneratedAt: s.now(),
	}, nil
}
