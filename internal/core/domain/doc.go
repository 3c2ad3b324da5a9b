// Package domain defines the core business entities for sercha-docs.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded artefact and its processing state
//   - Page: A logical content unit extracted from a document
//   - Chunk: A retrieval-sized slice of a document's text
//   - ParsedDocument: The output of a parser before persistence
//   - ProcessingError: A coded, user-facing processing failure
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
