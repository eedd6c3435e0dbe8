package mcp

import (
	"github.com/custodia-labs/faersight/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Analysis selects, ranks and scores cases.
	Analysis driving.AnalysisService

	// Retrieval ranks literature passages. Nil without an embedding provider.
	Retrieval driving.RetrievalService

	// Insight writes narrative reports. Nil without AI providers.
	Insight driving.InsightService

	// Progress tracks insight sessions.
	Progress driving.ProgressService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Analysis == nil {
		return ErrMissingAnalysisService
	}
	// Retrieval, Insight and Progress are optional; their tools are not registered
	return nil
}
