package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// Kernel widths and ranking defaults.
const (
	AgeSigma    = 10.0
	WeightSigma = 15.0

	DefaultSimilarityThreshold = 0.3
	DefaultSimilarLimit        = 5

	// neutralMedicationScore is used when either drug set is empty.
	neutralMedicationScore = 0.5
)

func gaussian(a, b domain.Measure, sigma float64) float64 {
	if !a.Valid || !b.Valid {
		return 0
	}
	d := a.Value - b.Value
	return math.Exp(-(d * d) / (2 * sigma * sigma))
}

// AgeKernel scores two ages in years. Absent operands score 0.
func AgeKernel(a, b domain.Measure) float64 {
	return gaussian(a, b, AgeSigma)
}

// WeightKernel scores two weights in kilograms. Absent operands score 0.
func WeightKernel(a, b domain.Measure) float64 {
	return gaussian(a, b, WeightSigma)
}

// SexScore is 1 for equal known sexes and 0 otherwise.
func SexScore(a, b domain.Sex) float64 {
	if !a.IsKnown() || !b.IsKnown() {
		return 0
	}
	if a == b {
		return 1
	}
	return 0
}

// MedicationJaccard is the Jaccard index of the folded name sets. When
// either set is empty the result is 0.5, meaning not enough data.
func MedicationJaccard(caseDrugs, patientMeds []string) float64 {
	caseSet := foldSet(caseDrugs)
	patientSet := foldSet(patientMeds)
	if len(caseSet) == 0 || len(patientSet) == 0 {
		return neutralMedicationScore
	}

	shared := 0
	for name := range patientSet {
		if _, ok := caseSet[name]; ok {
			shared++
		}
	}
	union := len(caseSet) + len(patientSet) - shared
	return float64(shared) / float64(union)
}

// Score compares a patient with one case. The total is the unweighted sum
// of the four sub-scores and lies in [0, 4].
func Score(patient domain.PatientProfile, c domain.CaseRecord) (domain.SimilarityScore, error) {
	demo, err := c.Demographics.Normalize()
	if err != nil {
		return domain.SimilarityScore{}, fmt.Errorf("case %s: %w", c.PrimaryID, err)
	}

	s := domain.SimilarityScore{
		Age:        AgeKernel(demo.AgeYears, patient.Age),
		Weight:     WeightKernel(demo.WeightKG, patient.Weight),
		Sex:        SexScore(demo.Sex, patient.Sex),
		Medication: MedicationJaccard(c.DrugNames(), patient.Medications),
	}
	s.Total = s.Age + s.Weight + s.Sex + s.Medication
	return s, nil
}

// RankSimilar scores every case, keeps those scoring at least threshold and
// returns up to limit of them, best first. Equal totals keep input order.
func RankSimilar(patient domain.PatientProfile, records []domain.CaseRecord, threshold float64, limit int) ([]domain.ScoredCase, error) {
	scored := make([]domain.ScoredCase, 0)
	for _, c := range records {
		s, err := Score(patient, c)
		if err != nil {
			return nil, err
		}
		if s.Total >= threshold {
			scored = append(scored, domain.ScoredCase{Case: c, Score: s})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score.Total > scored[j].Score.Total
	})
	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}
