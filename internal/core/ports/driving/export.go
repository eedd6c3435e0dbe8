package driving

import (
	"context"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// ExportService writes analysis reports to files.
type ExportService interface {
	// Export builds the report for drug and patient and writes it to path.
	// The exporter's extension is appended when path has none. Returns the
	// path actually written.
	Export(ctx context.Context, drug string, patient domain.PatientProfile, path string) (string, error)
}
