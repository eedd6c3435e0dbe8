package driving

import (
	"context"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// AnalysisService selects, aggregates and ranks cases of the loaded dataset.
// Every operation is read-only over the dataset.
type AnalysisService interface {
	// Select returns the cases matching every set criterion.
	Select(ctx context.Context, criteria domain.SelectionCriteria) ([]domain.CaseRecord, error)

	// TopReactions returns the k most frequent reactions among the selected
	// cases. A non-positive k uses the configured default.
	TopReactions(ctx context.Context, criteria domain.SelectionCriteria, k int) ([]domain.ReactionFrequency, error)

	// ReactionProfile returns the top reactions for the patient's age bucket,
	// weight bucket and sex, restricted to cases listing the drug.
	ReactionProfile(ctx context.Context, drug string, patient domain.PatientProfile) (*domain.ReactionProfile, error)

	// SimilarCases ranks the dataset by similarity to the patient.
	SimilarCases(ctx context.Context, patient domain.PatientProfile) ([]domain.ScoredCase, error)

	// Stats summarises the loaded dataset.
	Stats(ctx context.Context) (*domain.DatasetStats, error)

	// Report bundles stats, profile, overall reactions and similar cases.
	Report(ctx context.Context, drug string, patient domain.PatientProfile) (*domain.AnalysisReport, error)
}
