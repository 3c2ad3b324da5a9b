package domain

import "time"

// ParsedDocument is the output of a parser, prior to chunking.
type ParsedDocument struct {
	// Format is the parser family that produced this result.
	Format Format

	// SubFormat is "pdf" or one of the text sub-formats.
	SubFormat string

	// Pages holds non-empty pages in order, numbered from 1.
	Pages []ParsedPage

	// Metadata is document-level metadata.
	Metadata DocumentMetadata

	// Sections lists section headings found while splitting.
	Sections []string

	// EncodingWarning is set when the text had to be decoded lossily.
	EncodingWarning string

	// Language is a best-effort language tag.
	Language string

	// ParserVersion identifies the parser.
	ParserVersion string
}

// ParsedPage is a page before it is attached to a stored document.
type ParsedPage struct {
	Number  int
	Content string
	Headers []string
}

// DocumentMetadata is document-level metadata extracted by a parser.
type DocumentMetadata struct {
	Title      string
	Author     string
	Subject    string
	Creator    string
	Producer   string
	Keywords   string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
	PageCount  int
	Encrypted  bool
	PDFVersion string
	Encoding   string
	Extraction string
}

// FullText joins page content with blank lines between pages.
func (p *ParsedDocument) FullText() string {
	n := 0
	for _, pg := range p.Pages {
		n += len(pg.Content) + 2
	}
	buf := make([]byte, 0, n)
	for i, pg := range p.Pages {
		if i > 0 {
			buf = append(buf, '\n', '\n')
		}
		buf = append(buf, pg.Content...)
	}
	return string(buf)
}

// ToMap renders metadata for persistence. Empty fields are omitted.
func (m DocumentMetadata) ToMap() map[string]any {
	out := make(map[string]any)
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("title", m.Title)
	set("author", m.Author)
	set("subject", m.Subject)
	set("creator", m.Creator)
	set("producer", m.Producer)
	set("keywords", m.Keywords)
	set("pdf_version", m.PDFVersion)
	set("encoding", m.Encoding)
	set("extraction", m.Extraction)
	if m.CreatedAt != nil {
		out["created_at"] = m.CreatedAt.UTC().Format(time.RFC3339)
	}
	if m.ModifiedAt != nil {
		out["modified_at"] = m.ModifiedAt.UTC().Format(time.RFC3339)
	}
	if m.PageCount > 0 {
		out["page_count"] = m.PageCount
	}
	if m.Encrypted {
		out["encrypted"] = true
	}
	return out
}
