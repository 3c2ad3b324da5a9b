// Package vector holds helpers shared by the vector index adapters.
//
// Adapters live in subpackages:
//
//   - chromem: embedded index persisted to a local directory
//   - milvus: remote Milvus collection with an HNSW cosine index
package vector

import (
	"strconv"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// Metadata keys stored alongside each vector.
const (
	KeyDocumentID = "document_id"
	KeyChunkIndex = "chunk_index"
	KeyPageNumber = "page_number"
	KeyFilename   = "filename"
	KeyCategory   = "category"
)

// Metadata flattens a record's attributes into string metadata.
// A missing page number is stored as "0".
func Metadata(r domain.VectorRecord) map[string]string {
	page := 0
	if r.PageNumber != nil {
		page = *r.PageNumber
	}
	return map[string]string{
		KeyDocumentID: r.DocumentID,
		KeyChunkIndex: strconv.Itoa(r.ChunkIndex),
		KeyPageNumber: strconv.Itoa(page),
		KeyFilename:   r.Filename,
		KeyCategory:   r.Category,
	}
}

// RecordFromMetadata rebuilds a record from stored metadata and text.
func RecordFromMetadata(id string, meta map[string]string, text string) domain.VectorRecord {
	r := domain.VectorRecord{
		ID:         id,
		DocumentID: meta[KeyDocumentID],
		Filename:   meta[KeyFilename],
		Category:   meta[KeyCategory],
		Text:       text,
	}
	if n, err := strconv.Atoi(meta[KeyChunkIndex]); err == nil {
		r.ChunkIndex = n
	} else if doc, idx, err := domain.ParseVectorKey(id); err == nil {
		r.DocumentID, r.ChunkIndex = doc, idx
	}
	r.PageNumber = PageFromInt(int64(atoi(meta[KeyPageNumber])))
	return r
}

// PageFromInt maps the stored page number back to a pointer; zero means none.
func PageFromInt(n int64) *int {
	if n <= 0 {
		return nil
	}
	p := int(n)
	return &p
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
