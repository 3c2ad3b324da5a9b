// Package chunker splits document text into overlapping, boundary-aware chunks.
package chunker

import (
	"sort"
	"unicode"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits text into chunks of at most chunkSize characters.
// A window is cut at the last '.' or '\n' inside it when that break lies
// past half the chunk size; consecutive windows overlap by overlap characters.
// Offsets are in runes, never bytes.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Span is a half-open range of rune offsets [Start, End).
type Span struct {
	Start int
	End   int
}

// Spans returns the rune ranges of every non-blank chunk of text.
func (p *Processor) Spans(text string) []Span {
	return p.spans([]rune(text))
}

func (p *Processor) spans(r []rune) []Span {
	n := len(r)
	if n == 0 {
		return nil
	}

	spans := make([]Span, 0, n/(p.chunkSize-p.overlap)+1)
	start := 0
	for start < n {
		end := start + p.chunkSize
		if end > n {
			end = n
		}
		if end < n {
			if bp := lastBreak(r[start:end]); bp > p.chunkSize/2 {
				end = start + bp + 1
			}
		}

		if !blank(r[start:end]) {
			spans = append(spans, Span{Start: start, End: end})
		}
		if end >= n {
			break
		}

		next := end - p.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// Chunk splits text into chunk strings.
func (p *Processor) Chunk(text string) []string {
	r := []rune(text)
	spans := p.spans(r)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = string(r[s.Start:s.End])
	}
	return out
}

// Process chunks the full text of a parsed document and attributes each
// chunk to the page containing its first non-space character.
func (p *Processor) Process(documentID string, parsed *domain.ParsedDocument) []domain.Chunk {
	if parsed == nil || len(parsed.Pages) == 0 {
		return nil
	}

	r := []rune(parsed.FullText())
	pageStarts := make([]int, len(parsed.Pages))
	off := 0
	for i, pg := range parsed.Pages {
		if i > 0 {
			off += 2
		}
		pageStarts[i] = off
		off += len([]rune(pg.Content))
	}

	spans := p.spans(r)
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		first := s.Start
		for first < s.End && unicode.IsSpace(r[first]) {
			first++
		}
		idx := sort.SearchInts(pageStarts, first+1) - 1
		var page *int
		if idx >= 0 {
			n := parsed.Pages[idx].Number
			page = &n
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			Index:      i,
			PageNumber: page,
			Text:       string(r[s.Start:s.End]),
		})
	}
	return chunks
}

func lastBreak(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == '.' || r[i] == '\n' {
			return i
		}
	}
	return -1
}

func blank(r []rune) bool {
	for _, c := range r {
		if !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}
