// Package tui provides an interactive terminal user interface for hask.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/hask/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
// Only Query is required; views backed by a nil port show it as unavailable.
type Ports struct {
	// Query runs searches.
	Query driving.QueryService

	// Pages lists and reads saved pages.
	Pages driving.PageService

	// Ingest forgets pages.
	Ingest driving.IngestService

	// Settings reads settings and checks providers.
	Settings driving.SettingsService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
