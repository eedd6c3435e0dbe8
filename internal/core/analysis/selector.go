package analysis

import (
	"fmt"
	"math"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// Default bucket parameters.
const (
	DefaultBucketWidth = 10.0
	DefaultAgeUpper    = 130.0
	DefaultWeightUpper = 300.0
)

// Bucket returns the half-open interval [start, start+width) that covers
// value, with start a multiple of width. Values outside [0, upper) fail with
// domain.ErrOutOfDomain.
func Bucket(value, width, upper float64) (domain.Interval, error) {
	if width <= 0 || math.IsNaN(width) {
		return domain.Interval{}, fmt.Errorf("%w: bucket width %g", domain.ErrInvalidInput, width)
	}
	if math.IsNaN(value) || value < 0 || value >= upper {
		return domain.Interval{}, fmt.Errorf("%w: %g not in [0, %g)", domain.ErrOutOfDomain, value, upper)
	}
	start := math.Floor(value/width) * width
	return domain.Interval{Start: start, End: start + width}, nil
}

// SelectByAge returns the cases whose normalised age lies in [min, max).
// Cases with an absent age are skipped. An unknown age unit is fatal.
func SelectByAge(min, max float64, records []domain.CaseRecord) ([]domain.CaseRecord, error) {
	if min > max {
		return nil, fmt.Errorf("%w: age range [%g, %g)", domain.ErrInvalidInput, min, max)
	}
	matches := make([]domain.CaseRecord, 0)
	for _, c := range records {
		age, err := domain.NormalizeAge(c.Demographics.Age, c.Demographics.AgeUnit)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.PrimaryID, err)
		}
		if age.Valid && age.Value >= min && age.Value < max {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// SelectByWeight returns the cases whose normalised weight lies in [min, max).
func SelectByWeight(min, max float64, records []domain.CaseRecord) ([]domain.CaseRecord, error) {
	if min > max {
		return nil, fmt.Errorf("%w: weight range [%g, %g)", domain.ErrInvalidInput, min, max)
	}
	matches := make([]domain.CaseRecord, 0)
	for _, c := range records {
		wt, err := domain.NormalizeWeight(c.Demographics.Weight, c.Demographics.WeightUnit)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.PrimaryID, err)
		}
		if wt.Valid && wt.Value >= min && wt.Value < max {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// SelectBySex returns the cases reported with the given sex. An unknown sex
// matches nothing, and neither do cases without a recorded sex.
func SelectBySex(sex domain.Sex, records []domain.CaseRecord) []domain.CaseRecord {
	matches := make([]domain.CaseRecord, 0)
	if !sex.IsKnown() {
		return matches
	}
	for _, c := range records {
		if c.Demographics.Sex == sex {
			matches = append(matches, c)
		}
	}
	return matches
}

// SelectByMedication returns the cases listing, under any role, the drug of
// interest or one of the patient's medications.
func SelectByMedication(drug string, medications []string, records []domain.CaseRecord) []domain.CaseRecord {
	wanted := foldSet(append([]string{drug}, medications...))
	matches := make([]domain.CaseRecord, 0)
	if len(wanted) == 0 {
		return matches
	}
	for _, c := range records {
		for _, d := range c.Drugs {
			if _, ok := wanted[FoldName(d.Name)]; ok {
				matches = append(matches, c)
				break
			}
		}
	}
	return matches
}

// Intersect keeps the cases of the first subset whose primary id appears in
// every other subset. Zero subsets give an empty result and a single subset
// is returned unchanged.
func Intersect(subsets ...[]domain.CaseRecord) []domain.CaseRecord {
	if len(subsets) == 0 {
		return []domain.CaseRecord{}
	}
	if len(subsets) == 1 {
		return subsets[0]
	}

	others := make([]map[string]struct{}, 0, len(subsets)-1)
	for _, s := range subsets[1:] {
		ids := make(map[string]struct{}, len(s))
		for _, c := range s {
			ids[c.PrimaryID] = struct{}{}
		}
		others = append(others, ids)
	}

	result := make([]domain.CaseRecord, 0)
	for _, c := range subsets[0] {
		inAll := true
		for _, ids := range others {
			if _, ok := ids[c.PrimaryID]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			result = append(result, c)
		}
	}
	return result
}

// isEmptyCriteria reports whether no predicate is set.
func isEmptyCriteria(c domain.SelectionCriteria) bool {
	return c.Age == nil && c.Weight == nil && !c.Sex.IsKnown() &&
		FoldName(c.Drug) == "" && len(foldSet(c.Medications)) == 0
}

// Select applies every set predicate and intersects the results. Empty
// criteria select every case.
func Select(criteria domain.SelectionCriteria, records []domain.CaseRecord) ([]domain.CaseRecord, error) {
	if isEmptyCriteria(criteria) {
		return records, nil
	}

	var subsets [][]domain.CaseRecord
	if criteria.Age != nil {
		byAge, err := SelectByAge(criteria.Age.Start, criteria.Age.End, records)
		if err != nil {
			return nil, err
		}
		subsets = append(subsets, byAge)
	}
	if criteria.Weight != nil {
		byWeight, err := SelectByWeight(criteria.Weight.Start, criteria.Weight.End, records)
		if err != nil {
			return nil, err
		}
		subsets = append(subsets, byWeight)
	}
	if criteria.Sex.IsKnown() {
		subsets = append(subsets, SelectBySex(criteria.Sex, records))
	}
	if FoldName(criteria.Drug) != "" || len(foldSet(criteria.Medications)) > 0 {
		subsets = append(subsets, SelectByMedication(criteria.Drug, criteria.Medications, records))
	}
	return Intersect(subsets...), nil
}
