package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// Parser turns the raw bytes of a document into pages.
// Failures are returned as *domain.ProcessingError carrying a code;
// a parser never reports success with placeholder content.
type Parser interface {
	// Format returns the parser family this parser handles.
	Format() domain.Format

	// Parse extracts pages and metadata from data.
	Parse(ctx context.Context, data []byte, info domain.FileInfo) (*domain.ParsedDocument, error)
}

// ParserRegistry dispatches parsing to the parser registered for a format.
type ParserRegistry interface {
	// Parse runs the parser for format.
	// Returns domain.ErrUnsupportedType when no parser is registered.
	Parse(ctx context.Context, format domain.Format, data []byte, info domain.FileInfo) (*domain.ParsedDocument, error)

	// Register adds or replaces the parser for its format.
	Register(parser Parser)
}
