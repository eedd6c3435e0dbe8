package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/faersight/internal/logger"
)

// DefaultVersion is reported when NewServer is given an empty version.
const DefaultVersion = "0.1.0"

// Server is the MCP server for faersight.
type Server struct {
	ports  *Ports
	server *mcp.Server
	tools  []string
}

// NewServer creates a new MCP server with the given ports. Tools backed by
// an optional port are only registered when that port is set.
func NewServer(ports *Ports, version string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if version == "" {
		version = DefaultVersion
	}

	impl := &mcp.Implementation{
		Name:    "faersight",
		Version: version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, nil),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Tools lists the registered tool names in registration order.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("MCP server running on stdio with %d tools", len(s.tools))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP HTTP shutdown: %v", err)
		}
	}()

	logger.Info("MCP server listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
