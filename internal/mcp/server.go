// ABOUTME: MCP server setup for the healthsync command surface.
// ABOUTME: Wraps the MCP server around the domain managers and the sync-run log.
package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/healthsync/internal/clock"
	"github.com/harperreed/healthsync/internal/storage"
	"github.com/harperreed/healthsync/internal/tracker"
)

// Server wraps the MCP server with access to every domain.
type Server struct {
	mcpServer *mcp.Server
	set       *tracker.Set
	repo      storage.Repository
	clock     clock.Clock
}

// NewServer creates a new MCP server over set. repo supplies the sync-run log.
func NewServer(set *tracker.Set, repo storage.Repository, clk clock.Clock) (*Server, error) {
	if set == nil || repo == nil {
		return nil, errors.New("mcp server requires domain managers and a repository")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "healthsync",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		set:       set,
		repo:      repo,
		clock:     clk,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
