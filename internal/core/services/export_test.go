package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

type stubExporter struct {
	path   string
	report *domain.AnalysisReport
	err    error
}

func (e *stubExporter) Export(_ context.Context, path string, report *domain.AnalysisReport) error {
	e.path = path
	e.report = report
	return e.err
}

func (e *stubExporter) Extension() string { return ".xlsx" }

func TestExportService_AppendsExtension(t *testing.T) {
	analysis, _ := newTestAnalysis()
	exp := &stubExporter{}
	svc := NewExportService(analysis, exp)

	dir := t.TempDir()
	got, err := svc.Export(context.Background(), "aspirin", testPatient(), filepath.Join(dir, "report"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "report.xlsx"), got)
	assert.Equal(t, got, exp.path)
	require.NotNil(t, exp.report)
	assert.Equal(t, "aspirin", exp.report.Drug)
	assert.Equal(t, fakeClock(), exp.report.GeneratedAt)
}

func TestExportService_KeepsExplicitExtension(t *testing.T) {
	analysis, _ := newTestAnalysis()
	svc := NewExportService(analysis, &stubExporter{})

	got, err := svc.Export(context.Background(), "aspirin", testPatient(), "out.xls")
	require.NoError(t, err)
	assert.Equal(t, "out.xls", got)
}

func TestExportService_Errors(t *testing.T) {
	analysis, _ := newTestAnalysis()

	_, err := NewExportService(analysis, &stubExporter{}).Export(context.Background(), "aspirin", testPatient(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	diskFull := errors.New("disk full")
	_, err = NewExportService(analysis, &stubExporter{err: diskFull}).Export(context.Background(), "aspirin", testPatient(), "r.xlsx")
	assert.ErrorIs(t, err, diskFull)
}
