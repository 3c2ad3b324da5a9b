// Package text parses text-family documents into pages.
//
// Content is decoded under an ordered list of strict encodings before a
// lossy fallback, classified into a sub-format (markdown, json, csv, xml,
// html, yaml, txt) and split into pages by format-specific rules.
package text

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
	"github.com/custodia-labs/sercha-docs/internal/normalisers"
)

// ParserVersion identifies this parser in stored documents.
const ParserVersion = "text/1.0"

// Sub-formats.
const (
	SubFormatPlain    = "txt"
	SubFormatMarkdown = "markdown"
	SubFormatJSON     = "json"
	SubFormatCSV      = "csv"
	SubFormatXML      = "xml"
	SubFormatHTML     = "html"
	SubFormatYAML     = "yaml"
)

const (
	// DefaultPageChars is the character budget of a plain-text page.
	DefaultPageChars = 3000

	// DefaultCSVRowsPerPage is the number of data rows per CSV page.
	DefaultCSVRowsPerPage = 50
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles text-family documents.
type Parser struct {
	pageChars      int
	csvRowsPerPage int
}

// Option configures the parser.
type Option func(*Parser)

// WithPageChars sets the plain-text page budget in characters.
func WithPageChars(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.pageChars = n
		}
	}
}

// WithCSVRowsPerPage sets the number of data rows per CSV page.
func WithCSVRowsPerPage(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.csvRowsPerPage = n
		}
	}
}

// New creates a text parser.
func New(opts ...Option) *Parser {
	p := &Parser{pageChars: DefaultPageChars, csvRowsPerPage: DefaultCSVRowsPerPage}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns domain.FormatText.
func (p *Parser) Format() domain.Format {
	return domain.FormatText
}

// section is a page before numbering.
type section struct {
	header  string
	content string
}

// Parse decodes data, detects its sub-format and splits it into pages.
func (p *Parser) Parse(ctx context.Context, data []byte, info domain.FileInfo) (*domain.ParsedDocument, error) {
	dec := decode(data)
	if dec.warning != "" {
		logger.With(logger.Fields{"file": info.Filename, "encoding": dec.encoding}).Warn("text: lossy decode")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := detectSubFormat(info.Filename, info.ContentType, dec.text)
	logger.Debug("text: %s detected as %s (%s)", info.Filename, sub, dec.encoding)

	title := ""
	var sections []section
	var err error
	switch sub {
	case SubFormatMarkdown:
		title = markdownTitle(dec.text)
		sections = splitMarkdown(dec.text)
	case SubFormatJSON:
		sections, err = splitJSON(dec.text)
	case SubFormatCSV:
		sections, err = splitCSV(dec.text, info.Filename, p.csvRowsPerPage)
	case SubFormatYAML:
		sections, err = splitYAML(dec.text)
	case SubFormatHTML:
		title = htmlTitle(dec.text)
		sections = splitHTML(dec.text, p.pageChars)
	case SubFormatXML:
		sections = splitHTML(dec.text, p.pageChars)
	default:
		sections = splitPlain(dec.text, p.pageChars)
	}
	if err != nil {
		return nil, domain.WrapProcessingError(domain.CodeTextParseError,
			fmt.Sprintf("the file could not be read as %s", sub), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed := &domain.ParsedDocument{
		Format:          domain.FormatText,
		SubFormat:       sub,
		EncodingWarning: dec.warning,
		ParserVersion:   ParserVersion,
		Metadata: domain.DocumentMetadata{
			Title:    title,
			Encoding: dec.encoding,
		},
	}
	for _, s := range sections {
		content := normalisers.Clean(s.content)
		if content == "" {
			continue
		}
		pg := domain.ParsedPage{Number: len(parsed.Pages) + 1, Content: content}
		if s.header != "" {
			pg.Headers = []string{s.header}
			parsed.Sections = append(parsed.Sections, s.header)
		}
		parsed.Pages = append(parsed.Pages, pg)
	}
	if len(parsed.Pages) == 0 {
		return nil, domain.NewProcessingError(domain.CodeNoContent, "the file contains no readable text")
	}
	parsed.Metadata.PageCount = len(parsed.Pages)
	if parsed.Metadata.Title == "" {
		parsed.Metadata.Title = normalisers.TitleFromFilename(info.Filename)
	}
	parsed.Language = normalisers.DetectLanguage(parsed.FullText())
	return parsed, nil
}
