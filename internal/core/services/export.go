package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/core/ports/driving"
	"github.com/custodia-labs/faersight/internal/logger"
)

// Ensure ExportService implements the interface.
var _ driving.ExportService = (*ExportService)(nil)

// ExportService renders analysis reports through a ReportExporter.
type ExportService struct {
	analysis driving.AnalysisService
	exporter driven.ReportExporter
}

// NewExportService creates an export service.
func NewExportService(analysis driving.AnalysisService, exporter driven.ReportExporter) *ExportService {
	return &ExportService{analysis: analysis, exporter: exporter}
}

// Export builds the report and writes it.
func (s *ExportService) Export(
	ctx context.Context, drug string, patient domain.PatientProfile, path string,
) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: export path is empty", domain.ErrInvalidInput)
	}
	if filepath.Ext(path) == "" {
		path += s.exporter.Extension()
	}

	report, err := s.analysis.Report(ctx, drug, patient)
	if err != nil {
		return "", err
	}
	if err := s.exporter.Export(ctx, path, report); err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	logger.Info("exported report for %s to %s", drug, path)
	return path, nil
}
