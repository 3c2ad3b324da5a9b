package domain

// RetrievalSource names the index that produced a retrieval result.
type RetrievalSource string

const (
	// SourceVector marks results from the vector index.
	SourceVector RetrievalSource = "vector"

	// SourceLexical marks results from the lexical index.
	SourceLexical RetrievalSource = "lexical"
)

// RetrievalResult is one ranked excerpt with source attribution.
type RetrievalResult struct {
	// Text is the matched chunk (or page) text.
	Text string `json:"text"`

	// DocumentID identifies the owning document.
	DocumentID string `json:"document_id"`

	// PageNumber is the page the excerpt came from, when known.
	PageNumber *int `json:"page_number,omitempty"`

	// ChunkIndex is the chunk position, or -1 for page-level hits.
	ChunkIndex int `json:"chunk_index"`

	// Filename is the document's original filename.
	Filename string `json:"filename"`

	// Category is the document's category.
	Category string `json:"category,omitempty"`

	// Score is the backend relevance score. Higher is better.
	Score float64 `json:"score"`

	// Snippet is a highlighted fragment of Text.
	Snippet string `json:"snippet,omitempty"`

	// Source is the index that produced the result.
	Source RetrievalSource `json:"source"`
}

// LexicalTarget selects which content a lexical query runs against.
type LexicalTarget string

const (
	TargetChunks LexicalTarget = "chunks"
	TargetPages  LexicalTarget = "pages"
)

// LexicalQuery is a keyword query against the lexical index.
type LexicalQuery struct {
	// Keywords are matched any-of.
	Keywords []string

	// Target selects chunk or page content.
	Target LexicalTarget

	// Limit caps the number of hits.
	Limit int
}

// LexicalHit is one match from the lexical index.
type LexicalHit struct {
	DocumentID string
	PageNumber *int
	ChunkIndex int
	Text       string
	Snippet    string
	Score      float64
}

// VectorRecord is a derived vector index entry for one chunk.
type VectorRecord struct {
	// ID is "{documentId}::{chunkIndex}".
	ID         string
	DocumentID string
	ChunkIndex int
	PageNumber *int
	Filename   string
	Category   string
	Text       string
	Embedding  []float32
}

// VectorMatch is one similarity query result.
type VectorMatch struct {
	Record     VectorRecord
	Similarity float64
}

// IndexCounts holds row counts for pages and chunks.
type IndexCounts struct {
	Pages  int `json:"pages"`
	Chunks int `json:"chunks"`
}

// IndexHealth compares lexical index entries with source rows.
type IndexHealth struct {
	Source  IndexCounts `json:"source"`
	Indexed IndexCounts `json:"indexed"`
	Healthy bool        `json:"healthy"`
}

// NewIndexHealth builds an IndexHealth and derives Healthy.
func NewIndexHealth(source, indexed IndexCounts) *IndexHealth {
	return &IndexHealth{
		Source:  source,
		Indexed: indexed,
		Healthy: source == indexed,
	}
}
