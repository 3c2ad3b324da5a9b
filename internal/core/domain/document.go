package domain

import "time"

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	// StatusUploaded means the bytes are stored but not yet parsed.
	StatusUploaded DocumentStatus = "uploaded"

	// StatusProcessing means a parse is in flight. It is never persisted;
	// a document is only observed in this state through the service.
	StatusProcessing DocumentStatus = "processing"

	// StatusProcessed means pages and chunks reflect the stored bytes.
	StatusProcessed DocumentStatus = "processed"

	// StatusError means the last processing attempt failed.
	// ParsedMetadata["error"] carries the code and message.
	StatusError DocumentStatus = "error"
)

// IsValid returns true if the status is a known lifecycle state.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusProcessed, StatusError:
		return true
	default:
		return false
	}
}

// Format is the parser family that handles a document.
type Format string

const (
	// FormatUnknown is the zero value before detection has run.
	FormatUnknown Format = ""

	// FormatPDF routes to the PDF parser.
	FormatPDF Format = "pdf"

	// FormatText routes to the text-family parser.
	FormatText Format = "text"
)

// Document represents one uploaded artefact with its metadata.
type Document struct {
	// ID is the unique identifier generated at upload time.
	ID string

	// Filename is the sanitised name used for the blob key.
	Filename string

	// OriginalFilename is the name as supplied by the caller.
	OriginalFilename string

	// ContentType is the caller-declared MIME type.
	ContentType string

	// Size is the byte size of the uploaded content.
	Size int64

	// UploadedAt is when the document was uploaded.
	UploadedAt time.Time

	// Category is a free-form grouping label.
	Category string

	// Tags is an ordered list of labels.
	Tags []string

	// BlobKey is the location of the raw bytes in the blob store.
	BlobKey string

	// Status is the lifecycle state.
	Status DocumentStatus

	// Format is the parser family, set once processed.
	Format Format

	// SubFormat is the text sub-format (markdown, json, csv...) or "pdf".
	SubFormat string

	// Language is a best-effort language tag ("en" or "und").
	Language string

	// WordCount is the number of whitespace-separated words extracted.
	WordCount int

	// CharacterCount is the number of characters extracted.
	CharacterCount int

	// ParserVersion identifies the parser that produced the content.
	ParserVersion string

	// ParsedAt is when the last processing attempt finished.
	ParsedAt *time.Time

	// ParsedMetadata holds parser metadata (title, author, dates) or,
	// when Status is StatusError, the "error" entry.
	ParsedMetadata map[string]any

	// ParsedStructure holds the section list and page count.
	ParsedStructure map[string]any

	// UpdatedAt is when the row was last written.
	UpdatedAt time.Time
}

// ErrorDetail returns the code and message recorded by a failed
// processing attempt. ok is false when none is recorded.
func (d *Document) ErrorDetail() (code ErrorCode, message string, ok bool) {
	if d == nil || d.ParsedMetadata == nil {
		return "", "", false
	}
	raw, found := d.ParsedMetadata["error"]
	if !found {
		return "", "", false
	}
	m, isMap := raw.(map[string]any)
	if !isMap {
		return "", "", false
	}
	c, _ := m["code"].(string)
	msg, _ := m["message"].(string)
	return ErrorCode(c), msg, c != ""
}

// Page is one logical content unit of a document.
type Page struct {
	// DocumentID links to the owning Document.
	DocumentID string

	// PageNumber is 1-based and unique within the document.
	PageNumber int

	// Content is the sanitised text.
	Content string

	// Metadata describes the page.
	Metadata PageMetadata
}

// PageMetadata describes a page's structure.
type PageMetadata struct {
	Headers        []string `json:"headers,omitempty"`
	WordCount      int      `json:"word_count"`
	CharacterCount int      `json:"character_count"`
}

// Chunk is a retrieval-sized slice of a document's full text.
type Chunk struct {
	// DocumentID links to the owning Document.
	DocumentID string

	// Index is the 0-based position within the document.
	Index int

	// PageNumber is the page containing the chunk's first character.
	// Nil when it cannot be attributed.
	PageNumber *int

	// Text is the chunk content.
	Text string
}

// FileInfo describes an uploaded file to a parser.
type FileInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// ListFilter narrows a document listing.
type ListFilter struct {
	// Category filters by exact category when non-empty.
	Category string

	// Statuses filters to any of the given statuses when non-empty.
	Statuses []DocumentStatus

	// Limit caps the number of documents returned. Zero means no limit.
	Limit int
}
