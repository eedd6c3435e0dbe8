// Package xlsx writes analysis reports as Excel workbooks.
package xlsx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// Sheet names.
const (
	SheetSummary   = "Summary"
	SheetReactions = "Reactions"
	SheetSimilar   = "Similar Cases"
)

// Ensure Exporter implements the interface.
var _ driven.ReportExporter = (*Exporter)(nil)

var (
	reactionHeader = []string{"Group", "Bucket", "Reaction", "Cases", "Fraction"}
	similarHeader  = []string{
		"Primary ID", "Age (years)", "Sex", "Weight (kg)", "Drugs", "Reactions",
		"Age score", "Weight score", "Sex score", "Medication score", "Total",
	}
)

// Exporter writes one workbook per report.
type Exporter struct{}

// NewExporter creates an exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// Extension returns ".xlsx".
func (e *Exporter) Extension() string {
	return ".xlsx"
}

// Export writes the report to path, replacing any existing file.
func (e *Exporter) Export(ctx context.Context, path string, report *domain.AnalysisReport) error {
	if report == nil {
		return fmt.Errorf("%w: nil report", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := headerStyle(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := writeRows(f, SheetSummary, nil, summaryRows(report), header); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetReactions); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	if err := writeRows(f, SheetReactions, reactionHeader, reactionRows(report), header); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSimilar); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	if err := writeRows(f, SheetSimilar, similarHeader, similarRows(report.Similar), header); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("creating header style: %w", err)
	}
	return style, nil
}

// writeRows writes an optional styled header followed by the rows, starting at A1.
func writeRows(f *excelize.File, sheet string, header []string, rows [][]any, style int) error {
	next := 1
	if len(header) > 0 {
		cells := make([]any, len(header))
		for i, h := range header {
			cells[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
			return fmt.Errorf("writing %s header: %w", sheet, err)
		}
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return fmt.Errorf("styling %s header: %w", sheet, err)
		}
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freezing %s header: %w", sheet, err)
		}
		next = 2
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(r *domain.AnalysisReport) [][]any {
	p := r.Patient
	return [][]any{
		{"Drug", r.Drug},
		{"Generated", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Quarter", r.Stats.Quarter},
		{"Cases", r.Stats.Cases},
		{"Cases with age", r.Stats.WithAge},
		{"Cases with weight", r.Stats.WithWeight},
		{"Cases with sex", r.Stats.WithSex},
		{"Distinct drugs", r.Stats.DistinctDrugs},
		{"Distinct reactions", r.Stats.DistinctTerms},
		{},
		{"Patient age (years)", measureCell(p.Age)},
		{"Patient sex", p.Sex.Description()},
		{"Patient weight (kg)", measureCell(p.Weight)},
		{"Conditions", strings.Join(p.Conditions, ", ")},
		{"Medications", strings.Join(p.Medications, ", ")},
	}
}

func reactionRows(r *domain.AnalysisReport) [][]any {
	var rows [][]any
	add := func(group string, bucket *domain.Interval, freqs []domain.ReactionFrequency) {
		label := ""
		if bucket != nil {
			label = bucket.String()
		}
		for _, f := range freqs {
			rows = append(rows, []any{group, label, f.Term, f.Cases, f.Fraction})
		}
	}
	add("Overall", nil, r.Overall)
	add("Age", r.Profile.AgeBucket, r.Profile.ByAge)
	add("Weight", r.Profile.WeightBucket, r.Profile.ByWeight)
	add("Sex", nil, r.Profile.BySex)
	return rows
}

func similarRows(similar []domain.ScoredCase) [][]any {
	rows := make([][]any, 0, len(similar))
	for _, sc := range similar {
		c := sc.Case
		norm, err := c.Demographics.Normalize()
		if err != nil {
			norm = domain.NormalizedDemographic{Sex: c.Demographics.Sex}
		}
		rows = append(rows, []any{
			c.PrimaryID,
			measureCell(norm.AgeYears),
			norm.Sex.Description(),
			measureCell(norm.WeightKG),
			strings.Join(c.DrugNames(), ", "),
			strings.Join(c.ReactionTerms(), ", "),
			sc.Score.Age,
			sc.Score.Weight,
			sc.Score.Sex,
			sc.Score.Medication,
			sc.Score.Total,
		})
	}
	return rows
}

// measureCell leaves absent values as empty cells.
func measureCell(m domain.Measure) any {
	if !m.Valid {
		return nil
	}
	return m.Value
}
