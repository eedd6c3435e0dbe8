// Package jsonfile loads the FAERS case dataset from a quarterly JSON export.
//
// The export is produced by a dataframe pipeline, so numeric columns may be
// numbers, numeric strings, null or bare NaN tokens, and identifiers may be
// numbers or strings. Everything is mapped onto domain.CaseRecord here so the
// core never sees the upstream shape.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.CaseSource = (*Source)(nil)

// Source reads a dataset file from disk.
type Source struct {
	path string
}

// NewSource creates a source for the given file.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path returns the dataset file path.
func (s *Source) Path() string {
	return s.path
}

// Load reads, maps and validates the whole file.
func (s *Source) Load(ctx context.Context) (*domain.Dataset, error) {
	if s.path == "" {
		return nil, fmt.Errorf("%w: no dataset path configured", domain.ErrDatasetUnavailable)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDatasetUnavailable, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes an export held in memory.
func Parse(data []byte) (*domain.Dataset, error) {
	var doc document
	if err := json.Unmarshal(sanitizeNonFinite(data), &doc); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}

	ds := &domain.Dataset{
		Metadata: domain.DatasetMetadata{
			Quarter:    strings.TrimSpace(doc.Metadata.Quarter),
			TotalCases: len(doc.Cases),
			ExportDate: parseExportDate(doc.Metadata.ExportDate),
		},
		Cases: make([]domain.CaseRecord, 0, len(doc.Cases)),
	}
	if declared := doc.Metadata.TotalCases; declared.Valid && int(declared.Value) != len(doc.Cases) {
		logger.Warn("dataset declares %d cases but contains %d", int(declared.Value), len(doc.Cases))
	}

	for _, rc := range doc.Cases {
		ds.Cases = append(ds.Cases, rc.toDomain())
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

type document struct {
	Metadata metadata  `json:"metadata"`
	Cases    []rawCase `json:"cases"`
}

type metadata struct {
	Quarter    string         `json:"quarter"`
	TotalCases domain.Measure `json:"total_cases"`
	ExportDate string         `json:"export_date"`
}

type rawCase struct {
	PrimaryID    flexString      `json:"primaryid"`
	Demographics rawDemographics `json:"demographic_info"`
	Drugs        []rawDrug       `json:"drugs"`
	Reactions    []rawReaction   `json:"reactions"`
	Outcomes     []rawOutcome    `json:"outcomes"`
}

type rawDemographics struct {
	Age             domain.Measure `json:"age"`
	AgeCod          flexString     `json:"age_cod"`
	AgeGrp          flexString     `json:"age_grp"`
	Sex             flexString     `json:"sex"`
	Wt              domain.Measure `json:"wt"`
	WtCod           flexString     `json:"wt_cod"`
	ReporterCountry flexString     `json:"reporter_country"`
	OccrCountry     flexString     `json:"occr_country"`
}

type rawDrug struct {
	DrugName flexString `json:"drugname"`
	RoleCod  flexString `json:"role_cod"`
	Route    flexString `json:"route"`
	DoseVbm  flexString `json:"dose_vbm"`
}

type rawReaction struct {
	PT flexString `json:"pt"`
}

type rawOutcome struct {
	OutcCod flexString `json:"outc_cod"`
}

func (rc rawCase) toDomain() domain.CaseRecord {
	d := rc.Demographics
	rec := domain.CaseRecord{
		PrimaryID: string(rc.PrimaryID),
		Demographics: domain.Demographics{
			Age:             d.Age,
			AgeUnit:         domain.ParseAgeUnit(string(d.AgeCod)),
			AgeGroup:        string(d.AgeGrp),
			Weight:          d.Wt,
			WeightUnit:      domain.ParseWeightUnit(string(d.WtCod)),
			Sex:             domain.ParseSex(string(d.Sex)),
			ReporterCountry: string(d.ReporterCountry),
			OccurCountry:    string(d.OccrCountry),
		},
		Drugs:     make([]domain.Drug, 0, len(rc.Drugs)),
		Reactions: make([]domain.Reaction, 0, len(rc.Reactions)),
	}
	for _, dr := range rc.Drugs {
		rec.Drugs = append(rec.Drugs, domain.Drug{
			Name:  string(dr.DrugName),
			Role:  domain.ParseDrugRole(string(dr.RoleCod)),
			Route: string(dr.Route),
			Dose:  string(dr.DoseVbm),
		})
	}
	for _, r := range rc.Reactions {
		if r.PT == "" {
			continue
		}
		rec.Reactions = append(rec.Reactions, domain.Reaction{Term: string(r.PT)})
	}
	for _, o := range rc.Outcomes {
		if o.OutcCod == "" {
			continue
		}
		rec.Outcomes = append(rec.Outcomes, domain.OutcomeCode(strings.ToUpper(string(o.OutcCod))))
	}
	return rec
}

// flexString accepts strings, numbers and null. Whitespace is trimmed.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

var exportDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseExportDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range exportDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// sanitizeNonFinite rewrites bare NaN, Infinity and -Infinity tokens outside
// string literals to null, which encoding/json otherwise rejects.
func sanitizeNonFinite(data []byte) []byte {
	tokens := [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

	var out []byte
	inString, escaped := false, false
	last := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		for _, tok := range tokens {
			if bytes.HasPrefix(data[i:], tok) {
				if out == nil {
					out = make([]byte, 0, len(data))
				}
				out = append(out, data[last:i]...)
				out = append(out, "null"...)
				i += len(tok) - 1
				last = i + 1
				break
			}
		}
	}
	if out == nil {
		return data
	}
	return append(out, data[last:]...)
}
