package mcp

import (
	"github.com/custodia-labs/hask/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers free-text questions. Required.
	Query driving.QueryService

	// Ingest saves and checks pages. The save_url and check_url tools are
	// only registered when it is set.
	Ingest driving.IngestService

	// Pages exposes stored pages as resources.
	Pages driving.PageService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
