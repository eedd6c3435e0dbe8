package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// patientFlags collects the patient description shared by profile, similar,
// insight and export.
type patientFlags struct {
	age        string
	sex        string
	weight     string
	conditions []string
	meds       []string
}

func (f *patientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.age, "age", "", "patient age in years")
	cmd.Flags().StringVar(&f.sex, "sex", "", "patient sex (M, F, male, female)")
	cmd.Flags().StringVar(&f.weight, "weight", "", "patient weight in kg")
	cmd.Flags().StringSliceVar(&f.conditions, "condition", nil, "existing condition (repeatable)")
	cmd.Flags().StringSliceVar(&f.meds, "med", nil, "current medication (repeatable)")
}

func (f *patientFlags) reset() {
	*f = patientFlags{}
}

// profile builds the patient. A non-empty value that does not parse as a
// number is rejected rather than silently treated as absent.
func (f *patientFlags) profile() (domain.PatientProfile, error) {
	age, err := parseMeasureFlag("age", f.age)
	if err != nil {
		return domain.PatientProfile{}, err
	}
	weight, err := parseMeasureFlag("weight", f.weight)
	if err != nil {
		return domain.PatientProfile{}, err
	}
	sex := domain.ParseSex(f.sex)
	if strings.TrimSpace(f.sex) != "" && !sex.IsKnown() {
		return domain.PatientProfile{}, fmt.Errorf("%w: --sex %q", domain.ErrInvalidInput, f.sex)
	}
	return domain.PatientProfile{
		Age:         age,
		Sex:         sex,
		Weight:      weight,
		Conditions:  trimAll(f.conditions),
		Medications: trimAll(f.meds),
	}, nil
}

// criteriaFlags are the selection predicates of select and reactions.
type criteriaFlags struct {
	ageMin, ageMax       string
	weightMin, weightMax string
	sex                  string
	drug                 string
	meds                 []string
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.ageMin, "age-min", "", "minimum age in years (inclusive)")
	cmd.Flags().StringVar(&f.ageMax, "age-max", "", "maximum age in years (exclusive)")
	cmd.Flags().StringVar(&f.weightMin, "weight-min", "", "minimum weight in kg (inclusive)")
	cmd.Flags().StringVar(&f.weightMax, "weight-max", "", "maximum weight in kg (exclusive)")
	cmd.Flags().StringVar(&f.sex, "sex", "", "sex (M or F)")
	cmd.Flags().StringVar(&f.drug, "drug", "", "drug name")
	cmd.Flags().StringSliceVar(&f.meds, "med", nil, "any of these medications (repeatable)")
}

func (f *criteriaFlags) reset() {
	*f = criteriaFlags{}
}

func (f *criteriaFlags) criteria() (domain.SelectionCriteria, error) {
	var c domain.SelectionCriteria

	age, err := parseRangeFlag("age", f.ageMin, f.ageMax)
	if err != nil {
		return c, err
	}
	weight, err := parseRangeFlag("weight", f.weightMin, f.weightMax)
	if err != nil {
		return c, err
	}
	c.Age = age
	c.Weight = weight

	if strings.TrimSpace(f.sex) != "" {
		c.Sex = domain.ParseSex(f.sex)
		if !c.Sex.IsKnown() {
			return c, fmt.Errorf("%w: --sex %q", domain.ErrInvalidInput, f.sex)
		}
	}
	c.Drug = strings.TrimSpace(f.drug)
	c.Medications = trimAll(f.meds)
	return c, nil
}

func parseMeasureFlag(name, raw string) (domain.Measure, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Absent(), nil
	}
	m := domain.ParseMeasure(raw)
	if !m.Valid || m.Value < 0 {
		return domain.Absent(), fmt.Errorf("%w: --%s %q", domain.ErrInvalidInput, name, raw)
	}
	return m, nil
}

// parseRangeFlag builds [min, max). A missing bound is open.
func parseRangeFlag(name, rawMin, rawMax string) (*domain.Interval, error) {
	lo, err := parseMeasureFlag(name+"-min", rawMin)
	if err != nil {
		return nil, err
	}
	hi, err := parseMeasureFlag(name+"-max", rawMax)
	if err != nil {
		return nil, err
	}
	if !lo.Valid && !hi.Valid {
		return nil, nil
	}
	iv := &domain.Interval{Start: 0, End: math.Inf(1)}
	if lo.Valid {
		iv.Start = lo.Value
	}
	if hi.Valid {
		iv.End = hi.Value
	}
	if iv.End <= iv.Start {
		return nil, fmt.Errorf("%w: empty %s range %s", domain.ErrInvalidInput, name, iv)
	}
	return iv, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
