package domain

import "strings"

// PatientProfile is the patient a request is made for.
// It is built per request and never mutated.
type PatientProfile struct {
	// Age is in years.
	Age Measure

	Sex Sex

	// Weight is in kilograms.
	Weight Measure

	Conditions  []string
	Medications []string
}

// AgeGroup is a coarse life stage used to phrase literature queries.
type AgeGroup string

// Life stages, bounded in months.
const (
	AgeGroupNeonate    AgeGroup = "Neonate"
	AgeGroupInfant     AgeGroup = "Infant"
	AgeGroupChild      AgeGroup = "Child"
	AgeGroupAdolescent AgeGroup = "Adolescent"
	AgeGroupAdult      AgeGroup = "Adult"
	AgeGroupElderly    AgeGroup = "Elderly"
)

var ageGroupBounds = []struct {
	fromMonths, toMonths float64
	group                AgeGroup
}{
	{0, 1, AgeGroupNeonate},
	{1, 24, AgeGroupInfant},
	{24, 144, AgeGroupChild},
	{144, 216, AgeGroupAdolescent},
	{216, 780, AgeGroupAdult},
	{780, 1500, AgeGroupElderly},
}

// AgeGroup classifies the patient. Absent or out-of-range ages fall back to Adult.
func (p PatientProfile) AgeGroup() AgeGroup {
	if !p.Age.Valid {
		return AgeGroupAdult
	}
	months := p.Age.Value * 12
	for _, b := range ageGroupBounds {
		if months >= b.fromMonths && months < b.toMonths {
			return b.group
		}
	}
	return AgeGroupAdult
}

// Context renders the patient block shared by every narrative prompt.
func (p PatientProfile) Context() string {
	var b strings.Builder
	b.WriteString("Patient Information:\n")
	b.WriteString("- Age: " + p.Age.String() + "\n")
	b.WriteString("- Gender: " + p.Sex.Description() + "\n")
	b.WriteString("- Weight: " + p.Weight.String() + "kg\n")
	b.WriteString("- Existing Conditions: " + strings.Join(p.Conditions, ", ") + "\n")
	b.WriteString("- Current Medications: " + strings.Join(p.Medications, ", ") + "\n")
	return b.String()
}
