package cli

import (
	"sort"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

// documentView is the JSON shape of a document.
type documentView struct {
	ID             string         `json:"id"`
	Filename       string         `json:"filename"`
	StoredFilename string         `json:"stored_filename"`
	ContentType    string         `json:"content_type"`
	Size           int64          `json:"size"`
	Category       string         `json:"category,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Status         string         `json:"status"`
	Format         string         `json:"format,omitempty"`
	SubFormat      string         `json:"sub_format,omitempty"`
	Language       string         `json:"language,omitempty"`
	WordCount      int            `json:"word_count"`
	CharacterCount int            `json:"character_count"`
	ParserVersion  string         `json:"parser_version,omitempty"`
	UploadedAt     time.Time      `json:"uploaded_at"`
	ParsedAt       *time.Time     `json:"parsed_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Structure      map[string]any `json:"structure,omitempty"`
	Error          *errorView     `json:"error,omitempty"`
}

type errorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type outcomeView struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

type pageView struct {
	PageNumber int                 `json:"page_number"`
	Content    string              `json:"content"`
	Metadata   domain.PageMetadata `json:"metadata"`
}

type chunkView struct {
	Index      int    `json:"index"`
	PageNumber *int   `json:"page_number,omitempty"`
	Text       string `json:"text"`
}

func toDocumentView(d *domain.Document) documentView {
	v := documentView{
		ID:             d.ID,
		Filename:       d.OriginalFilename,
		StoredFilename: d.Filename,
		ContentType:    d.ContentType,
		Size:           d.Size,
		Category:       d.Category,
		Tags:           d.Tags,
		Status:         string(d.Status),
		Format:         string(d.Format),
		SubFormat:      d.SubFormat,
		Language:       d.Language,
		WordCount:      d.WordCount,
		CharacterCount: d.CharacterCount,
		ParserVersion:  d.ParserVersion,
		UploadedAt:     d.UploadedAt,
		ParsedAt:       d.ParsedAt,
		Structure:      d.ParsedStructure,
	}
	if code, msg, ok := d.ErrorDetail(); ok {
		v.Error = &errorView{Code: string(code), Message: msg}
	} else {
		v.Metadata = d.ParsedMetadata
	}
	return v
}

func toDocumentViews(docs []*domain.Document) []documentView {
	views := make([]documentView, len(docs))
	for i, d := range docs {
		views[i] = toDocumentView(d)
	}
	return views
}

func toOutcomeViews(outcomes []driving.ProcessOutcome) []outcomeView {
	views := make([]outcomeView, len(outcomes))
	for i, o := range outcomes {
		views[i] = outcomeView{DocumentID: o.DocumentID, Status: string(o.Status)}
		if o.Err != nil {
			views[i].Error = o.Err.Error()
		}
	}
	return views
}

func toPageViews(pages []domain.Page) []pageView {
	views := make([]pageView, len(pages))
	for i, p := range pages {
		views[i] = pageView{PageNumber: p.PageNumber, Content: p.Content, Metadata: p.Metadata}
	}
	return views
}

func toChunkViews(chunks []domain.Chunk) []chunkView {
	views := make([]chunkView, len(chunks))
	for i, c := range chunks {
		views[i] = chunkView{Index: c.Index, PageNumber: c.PageNumber, Text: c.Text}
	}
	return views
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
