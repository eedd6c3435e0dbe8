package domain

import (
	"fmt"
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// Sex is the canonical sex code.
type Sex string

// Available sex codes.
const (
	// SexUnknown covers missing, UNK and NS reports.
	SexUnknown Sex = ""
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
)

// ParseSex maps FAERS codes and free-text patient input onto the canonical
// code. Anything unrecognised is SexUnknown.
func ParseSex(raw string) Sex {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "M", "MALE":
		return SexMale
	case "F", "FEMALE":
		return SexFemale
	default:
		return SexUnknown
	}
}

// IsKnown returns true for a concrete sex code.
func (s Sex) IsKnown() bool {
	return s == SexMale || s == SexFemale
}

// String returns the string representation.
func (s Sex) String() string {
	return string(s)
}

// Description returns a human-readable label.
func (s Sex) Description() string {
	switch s {
	case SexMale:
		return "Male"
	case SexFemale:
		return "Female"
	default:
		return "Unknown"
	}
}

// DrugRole is the FAERS role_cod column.
type DrugRole string

// Drug roles.
const (
	DrugRoleUnknown          DrugRole = ""
	DrugRolePrimarySuspect   DrugRole = "PS"
	DrugRoleSecondarySuspect DrugRole = "SS"
	DrugRoleInteracting      DrugRole = "I"
	DrugRoleConcomitant      DrugRole = "C"
)

// ParseDrugRole maps a raw code onto a role.
func ParseDrugRole(raw string) DrugRole {
	switch r := DrugRole(strings.ToUpper(strings.TrimSpace(raw))); r {
	case DrugRolePrimarySuspect, DrugRoleSecondarySuspect, DrugRoleInteracting, DrugRoleConcomitant:
		return r
	default:
		return DrugRoleUnknown
	}
}

// IsSuspect returns true for roles that implicate the drug in the reaction.
func (r DrugRole) IsSuspect() bool {
	return r == DrugRolePrimarySuspect || r == DrugRoleSecondarySuspect || r == DrugRoleInteracting
}

// Description returns a human-readable label.
func (r DrugRole) Description() string {
	switch r {
	case DrugRolePrimarySuspect:
		return "Primary Suspect"
	case DrugRoleSecondarySuspect:
		return "Secondary Suspect"
	case DrugRoleInteracting:
		return "Interacting"
	case DrugRoleConcomitant:
		return "Concomitant"
	default:
		return unknownDescription
	}
}

// OutcomeCode is the FAERS outc_cod column.
type OutcomeCode string

// Outcome codes.
const (
	OutcomeDeath                OutcomeCode = "DE"
	OutcomeLifeThreatening      OutcomeCode = "LT"
	OutcomeHospitalization      OutcomeCode = "HO"
	OutcomeDisability           OutcomeCode = "DS"
	OutcomeCongenitalAnomaly    OutcomeCode = "CA"
	OutcomeRequiredIntervention OutcomeCode = "RI"
	OutcomeOtherSerious         OutcomeCode = "OT"
)

// Description returns a human-readable label.
func (o OutcomeCode) Description() string {
	switch o {
	case OutcomeDeath:
		return "Death"
	case OutcomeLifeThreatening:
		return "Life-Threatening"
	case OutcomeHospitalization:
		return "Hospitalization - Initial or Prolonged"
	case OutcomeDisability:
		return "Disability"
	case OutcomeCongenitalAnomaly:
		return "Congenital Anomaly"
	case OutcomeRequiredIntervention:
		return "Required Intervention to Prevent Permanent Impairment/Damage"
	case OutcomeOtherSerious:
		return "Other Serious (Important Medical Event)"
	default:
		return unknownDescription
	}
}

// Demographics holds the raw, unit-coded demographic columns of a case.
type Demographics struct {
	Age             Measure
	AgeUnit         AgeUnit
	AgeGroup        string
	Weight          Measure
	WeightUnit      WeightUnit
	Sex             Sex
	ReporterCountry string
	OccurCountry    string
}

// NormalizedDemographic is derived from Demographics and never stored.
type NormalizedDemographic struct {
	AgeYears Measure
	WeightKG Measure
	Sex      Sex
}

// Normalize converts the raw columns into canonical units.
func (d Demographics) Normalize() (NormalizedDemographic, error) {
	age, err := NormalizeAge(d.Age, d.AgeUnit)
	if err != nil {
		return NormalizedDemographic{}, err
	}
	weight, err := NormalizeWeight(d.Weight, d.WeightUnit)
	if err != nil {
		return NormalizedDemographic{}, err
	}
	return NormalizedDemographic{AgeYears: age, WeightKG: weight, Sex: d.Sex}, nil
}

// Drug is one drug line of a case.
type Drug struct {
	Name  string
	Role  DrugRole
	Route string
	Dose  string
}

// Reaction is one MedDRA preferred term attached to a case.
type Reaction struct {
	Term string
}

// CaseRecord is one adverse-event report.
// Records are immutable once loaded and shared read-only.
type CaseRecord struct {
	PrimaryID    string
	Demographics Demographics
	Drugs        []Drug
	Reactions    []Reaction
	Outcomes     []OutcomeCode
}

// DrugNames returns the drug names in listing order.
func (c CaseRecord) DrugNames() []string {
	names := make([]string, 0, len(c.Drugs))
	for _, d := range c.Drugs {
		if name := strings.TrimSpace(d.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ReactionTerms returns the reaction terms in listing order.
func (c CaseRecord) ReactionTerms() []string {
	terms := make([]string, 0, len(c.Reactions))
	for _, r := range c.Reactions {
		terms = append(terms, r.Term)
	}
	return terms
}

// Validate checks that every unit code is in the closed tables.
func (c CaseRecord) Validate() error {
	if c.PrimaryID == "" {
		return fmt.Errorf("%w: case without primary id", ErrInvalidInput)
	}
	if !c.Demographics.AgeUnit.IsValid() {
		return fmt.Errorf("case %s: %w: age_cod %q", c.PrimaryID, ErrUnknownUnit, c.Demographics.AgeUnit)
	}
	if !c.Demographics.WeightUnit.IsValid() {
		return fmt.Errorf("case %s: %w: wt_cod %q", c.PrimaryID, ErrUnknownUnit, c.Demographics.WeightUnit)
	}
	return nil
}

// DatasetMetadata describes one exported quarter.
type DatasetMetadata struct {
	Quarter    string
	TotalCases int
	ExportDate time.Time
}

// Dataset is the full case collection, loaded once per process.
type Dataset struct {
	Metadata DatasetMetadata
	Cases    []CaseRecord
}

// Validate checks every case and stops at the first failure.
func (d *Dataset) Validate() error {
	for i := range d.Cases {
		if err := d.Cases[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
