package driving

import (
	"context"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// InsightService produces the narrative report for a patient and drug.
type InsightService interface {
	// Generate runs the full pipeline and reports progress under sessionID.
	// An empty sessionID starts a new session; an id that has no session
	// yet is started so that callers can poll it while the run is going.
	Generate(ctx context.Context, sessionID, drug string, patient domain.PatientProfile) (*domain.InsightReport, error)
}
