package mcp

import (
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
)

// Ports aggregates the interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retriever provides similarity search and grounded answering.
	Retriever driving.Retriever

	// TagSearcher matches queries against the tag vocabulary.
	TagSearcher driving.TagSearcher

	// Ingestor adds documents to the corpus.
	Ingestor driving.Ingestor

	// Ledger backs the document and fragment resources.
	Ledger driven.Ledger
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	// TagSearcher, Ingestor and Ledger are optional; the matching tools
	// and resources degrade when absent.
	return nil
}
