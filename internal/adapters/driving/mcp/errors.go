// Package mcp provides an MCP (Model Context Protocol) server adapter for faersight.
// It lets AI assistants query the adverse-event engine and request insight reports.
package mcp

import "errors"

// ErrMissingAnalysisService is returned when the analysis service is not provided.
var ErrMissingAnalysisService = errors.New("mcp: analysis service is required")
