package domain

import (
	"fmt"
	"time"
)

// Interval is a half-open numeric range [Start, End).
type Interval struct {
	Start float64
	End   float64
}

// Contains reports whether v lies in the interval.
func (i Interval) Contains(v float64) bool {
	return v >= i.Start && v < i.End
}

// String renders the interval in mathematical notation.
func (i Interval) String() string {
	return fmt.Sprintf("[%g, %g)", i.Start, i.End)
}

// CaseReactionSet is the distinct reactions reported for one case id.
type CaseReactionSet struct {
	PrimaryID string
	Terms     []string
}

// ReactionFrequency is the share of distinct cases exhibiting a reaction.
type ReactionFrequency struct {
	Term string

	// Cases is the number of distinct case ids whose set contains Term.
	Cases int

	// Fraction is Cases divided by the number of distinct case ids in the input.
	Fraction float64
}

// SimilarityScore is the per-dimension similarity between a patient and a case.
// Every component lies in [0, 1]; Total is their plain sum in [0, 4].
type SimilarityScore struct {
	Age        float64
	Weight     float64
	Sex        float64
	Medication float64
	Total      float64
}

// ScoredCase pairs a case with its similarity to the patient.
type ScoredCase struct {
	Case  CaseRecord
	Score SimilarityScore
}

// ReactionProfile lists the most frequent reactions among cases that share
// one demographic dimension with the patient. A nil slice means the patient
// value for that dimension was absent.
type ReactionProfile struct {
	AgeBucket    *Interval
	ByAge        []ReactionFrequency
	WeightBucket *Interval
	ByWeight     []ReactionFrequency
	BySex        []ReactionFrequency
}

// DatasetStats summarises the loaded dataset.
type DatasetStats struct {
	Quarter       string
	Cases         int
	WithAge       int
	WithWeight    int
	WithSex       int
	DistinctDrugs int
	DistinctTerms int
}

// SelectionCriteria is a conjunction of selection predicates. Zero fields
// are ignored.
type SelectionCriteria struct {
	// Age is the normalised age range in years.
	Age *Interval

	// Weight is the normalised weight range in kilograms.
	Weight *Interval

	Sex Sex

	// Drug and Medications select cases listing any of the names.
	Drug        string
	Medications []string
}

// AnalysisReport bundles the engine outputs for one drug and patient.
type AnalysisReport struct {
	Drug        string
	Patient     PatientProfile
	Stats       DatasetStats
	Profile     ReactionProfile
	Overall     []ReactionFrequency
	Similar     []ScoredCase
	GeneratedAt time.Time
}

// CacheStats describes the embedding cache.
type CacheStats struct {
	Model   string
	Entries int

	// Hits and Misses count lookups since the process started.
	Hits   int64
	Misses int64
}
