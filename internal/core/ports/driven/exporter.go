package driven

import (
	"context"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// ReportExporter writes an analysis report to a file.
type ReportExporter interface {
	// Export writes the report to path, replacing any existing file.
	Export(ctx context.Context, path string, report *domain.AnalysisReport) error

	// Extension returns the file extension produced, including the dot.
	Extension() string
}
