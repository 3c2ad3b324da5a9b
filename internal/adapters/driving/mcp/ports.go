package mcp

import (
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Retrieval answers search queries.
	Retrieval driving.RetrievalService

	// Document manages uploaded documents. Optional.
	Document driving.DocumentService

	// Index reports derived index health. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
