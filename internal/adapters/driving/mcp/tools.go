package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// SearchInput is the input schema for the search_documents tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"free-text question or keywords to look up in uploaded documents"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of excerpts to return (default 10, max 100)"`
}

// SearchOutput is the output schema for the search_documents tool.
type SearchOutput struct {
	Results []domain.RetrievalResult `json:"results"`
	Count   int                      `json:"count"`
}

// DocumentInput identifies a document.
type DocumentInput struct {
	DocumentID   string `json:"document_id" jsonschema:"the document id returned by upload or search"`
	IncludePages bool   `json:"include_pages,omitempty" jsonschema:"include the extracted page text"`
}

// DocumentOutput describes a document and optionally its pages.
type DocumentOutput struct {
	ID           string         `json:"id"`
	Filename     string         `json:"filename"`
	ContentType  string         `json:"content_type"`
	Size         int64          `json:"size"`
	Category     string         `json:"category,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Status       string         `json:"status"`
	Format       string         `json:"format,omitempty"`
	SubFormat    string         `json:"sub_format,omitempty"`
	Language     string         `json:"language,omitempty"`
	WordCount    int            `json:"word_count"`
	UploadedAt   time.Time      `json:"uploaded_at"`
	ParsedAt     *time.Time     `json:"parsed_at,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Pages        []PageOutput   `json:"pages,omitempty"`
}

// PageOutput is one extracted page.
type PageOutput struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

// IndexHealthInput is the empty input of the index_health tool.
type IndexHealthInput struct{}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Retrieve ranked excerpts from uploaded documents, with filename and page attribution",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Show a document's metadata and processing status, optionally with its page text",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process_document",
		Description: "Parse an uploaded document and make it searchable; reports the error code on failure",
	}, s.handleProcessDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_health",
		Description: "Compare search index entries with stored pages and chunks",
	}, s.handleIndexHealth)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if results == nil {
		results = []domain.RetrievalResult{}
	}
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if s.ports.Document == nil {
		return nil, DocumentOutput{}, ErrDocumentsUnavailable
	}

	doc, err := s.ports.Document.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	out := documentOutput(doc)

	if input.IncludePages {
		pages, err := s.ports.Document.Pages(ctx, doc.ID)
		if err != nil {
			return nil, DocumentOutput{}, err
		}
		out.Pages = make([]PageOutput, len(pages))
		for i, p := range pages {
			out.Pages[i] = PageOutput{PageNumber: p.PageNumber, Content: p.Content}
		}
	}
	return nil, out, nil
}

// handleProcessDocument reports processing failures in the output
// rather than as tool errors so the assistant sees the error code.
func (s *Server) handleProcessDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if s.ports.Document == nil {
		return nil, DocumentOutput{}, ErrDocumentsUnavailable
	}

	doc, err := s.ports.Document.Process(ctx, input.DocumentID)
	if err != nil {
		if _, ok := domain.AsProcessingError(err); !ok || doc == nil {
			return nil, DocumentOutput{}, err
		}
	}
	return nil, documentOutput(doc), nil
}

func (s *Server) handleIndexHealth(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ IndexHealthInput,
) (*mcp.CallToolResult, domain.IndexHealth, error) {
	if s.ports.Index == nil {
		return nil, domain.IndexHealth{}, ErrIndexUnavailable
	}
	health, err := s.ports.Index.Health(ctx)
	if err != nil {
		return nil, domain.IndexHealth{}, err
	}
	return nil, *health, nil
}

func documentOutput(doc *domain.Document) DocumentOutput {
	out := DocumentOutput{
		ID:          doc.ID,
		Filename:    doc.OriginalFilename,
		ContentType: doc.ContentType,
		Size:        doc.Size,
		Category:    doc.Category,
		Tags:        doc.Tags,
		Status:      string(doc.Status),
		Format:      string(doc.Format),
		SubFormat:   doc.SubFormat,
		Language:    doc.Language,
		WordCount:   doc.WordCount,
		UploadedAt:  doc.UploadedAt,
		ParsedAt:    doc.ParsedAt,
	}
	if code, msg, ok := doc.ErrorDetail(); ok {
		out.ErrorCode = string(code)
		out.ErrorMessage = msg
		return out
	}
	out.Metadata = doc.ParsedMetadata
	return out
}
