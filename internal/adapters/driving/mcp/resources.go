package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for faersight resources.
	uriScheme = "faersight://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Summary of the loaded FAERS dataset",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	if s.ports.Progress != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "sessions/{sessionId}/progress",
			Name:        "session-progress",
			Description: "Progress of an insight session",
			MIMEType:    "application/json",
		}, s.handleProgressResource)
	}
}

func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	_, stats, err := s.handleStats(ctx, nil, StatsInput{})
	if err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}
	return jsonResource(req.Params.URI, stats)
}

func (s *Server) handleProgressResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sessionID := extractSessionID(req.Params.URI)
	if sessionID == "" || s.ports.Progress == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	_, progress, err := s.handleInsightProgress(ctx, nil, ProgressInput{SessionID: sessionID})
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, progress)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSessionID extracts the session ID from faersight://sessions/{sessionId}/progress.
func extractSessionID(uri string) string {
	const prefix = uriScheme + "sessions/"
	const suffix = "/progress"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
