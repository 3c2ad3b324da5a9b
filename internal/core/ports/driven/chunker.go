package driven

import "github.com/custodia-labs/sercha-docs/internal/core/domain"

// Chunker splits a parsed document into retrieval-sized chunks.
type Chunker interface {
	// Process returns the chunks for a parsed document, indexed from 0.
	Process(documentID string, parsed *domain.ParsedDocument) []domain.Chunk
}
