// Package tui provides an interactive terminal user interface for quarry.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
)

// Ports aggregates all port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retriever executes similarity search and question answering.
	Retriever driving.Retriever

	// TagSearcher matches queries against the tag vocabulary. Optional.
	TagSearcher driving.TagSearcher

	// Ledger provides read access to the document corpus. Optional; the
	// documents view is disabled without it.
	Ledger driven.Ledger
}

// NewPorts creates a new Ports aggregate with the given retriever.
func NewPorts(retriever driving.Retriever) *Ports {
	return &Ports{
		Retriever: retriever,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
