// Package pdf extracts pages and metadata from PDF documents.
//
// Extraction prefers a structural page-tree walk. When the walk fails or
// yields no text, a bounded scan for text-showing operators inside BT/ET
// blocks of raw and Flate-decoded streams is used instead, and the text
// is split into pages by form feeds, "Page N" footers or equal slices.
package pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
	"github.com/custodia-labs/sercha-docs/internal/normalisers"
	"github.com/custodia-labs/sercha-docs/internal/signature"
)

// ParserVersion identifies this parser in stored documents.
const ParserVersion = "pdf/1.0"

const (
	// DefaultMaxBytes is the largest PDF accepted for parsing.
	DefaultMaxBytes int64 = 50 << 20

	// DefaultMaxPages is the largest page count accepted for parsing.
	DefaultMaxPages = 2000
)

// Extraction strategies recorded in document metadata.
const (
	StrategyStructural    = "structural"
	StrategyTextOperators = "text-operators"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles PDF documents.
type Parser struct {
	maxBytes int64
	maxPages int
}

// Option configures the parser.
type Option func(*Parser)

// WithMaxBytes sets the byte-size ceiling.
func WithMaxBytes(n int64) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// WithMaxPages sets the page-count ceiling.
func WithMaxPages(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// New creates a PDF parser.
func New(opts ...Option) *Parser {
	p := &Parser{maxBytes: DefaultMaxBytes, maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns domain.FormatPDF.
func (p *Parser) Format() domain.Format {
	return domain.FormatPDF
}

// Parse validates data, extracts metadata and returns sanitised pages.
func (p *Parser) Parse(ctx context.Context, data []byte, info domain.FileInfo) (*domain.ParsedDocument, error) {
	if int64(len(data)) > p.maxBytes {
		return nil, domain.NewProcessingError(domain.CodePDFTooLarge,
			fmt.Sprintf("the PDF is %d bytes; the limit is %d bytes", len(data), p.maxBytes))
	}

	v := signature.ValidatePDF(data)
	switch {
	case v.Version == "":
		return nil, domain.NewProcessingError(domain.CodeInvalidPDF, "the file is not a valid PDF")
	case v.Encrypted:
		return nil, domain.NewProcessingError(domain.CodePDFEncrypted,
			"the PDF is password protected; remove the protection and upload it again")
	case !v.IsValid:
		return nil, &domain.ProcessingError{
			Code:    domain.CodePDFCorrupted,
			Message: "the PDF appears to be truncated or corrupted",
			Detail:  v.Message,
		}
	}

	logger.Debug("pdf: parsing %s (%d bytes, version %s)", info.Filename, len(data), v.Version)

	st, walkErr := extractStructural(ctx, data, p.maxPages)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if walkErr == errTooManyPages || st.pageCount > p.maxPages {
		return nil, domain.NewProcessingError(domain.CodePDFTooLarge,
			fmt.Sprintf("the PDF has %d pages; the limit is %d pages", st.pageCount, p.maxPages))
	}

	meta := st.meta
	if walkErr != nil {
		meta = rawMetadata(data)
	}
	meta.PDFVersion = v.Version

	var raw []string
	strategy := StrategyStructural
	if walkErr == nil && st.hasText() {
		raw = st.pages
	} else {
		if walkErr != nil {
			logger.Debug("pdf: structural walk failed for %s: %v", info.Filename, walkErr)
		}
		fb := extractFallback(ctx, data)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if fb.textObjects == 0 && walkErr != nil {
			return nil, walkFailure(walkErr)
		}
		pageCount := st.pageCount
		if pageCount == 0 {
			pageCount = countPages(data)
		}
		if pageCount > p.maxPages {
			return nil, domain.NewProcessingError(domain.CodePDFTooLarge,
				fmt.Sprintf("the PDF has %d pages; the limit is %d pages", pageCount, p.maxPages))
		}
		raw = splitPages(fb.text, pageCount)
		strategy = StrategyTextOperators
	}
	meta.Extraction = strategy

	parsed := &domain.ParsedDocument{
		Format:        domain.FormatPDF,
		SubFormat:     "pdf",
		Metadata:      meta,
		ParserVersion: ParserVersion,
	}
	for i, text := range raw {
		clean := normalisers.Sanitize(text)
		if clean == "" {
			continue
		}
		parsed.Pages = append(parsed.Pages, domain.ParsedPage{Number: i + 1, Content: clean})
	}
	if parsed.Metadata.PageCount == 0 {
		parsed.Metadata.PageCount = len(raw)
	}
	if len(parsed.Pages) == 0 {
		return nil, domain.NewProcessingError(domain.CodeNoContent,
			"no readable text was found in the PDF; scanned documents are not supported")
	}
	if parsed.Metadata.Title == "" {
		parsed.Metadata.Title = normalisers.TitleFromFilename(info.Filename)
	}
	parsed.Language = normalisers.DetectLanguage(parsed.FullText())

	logger.Debug("pdf: %s -> %d pages via %s", info.Filename, len(parsed.Pages), strategy)
	return parsed, nil
}

// walkFailure maps a failed structural walk with no fallback text to a
// processing error. A file with no readable page tree is corrupted; a
// reader failure after the tree was opened is an extraction error.
func walkFailure(err error) *domain.ProcessingError {
	if errors.Is(err, errNoPageTree) {
		return domain.WrapProcessingError(domain.CodePDFCorrupted,
			"the PDF has no readable pages or text", err)
	}
	return domain.WrapProcessingError(domain.CodePDFParseError,
		"the PDF could not be read", err)
}
