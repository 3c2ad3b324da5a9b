package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry maps a format to the parser that handles it.
type Registry struct {
	mu      sync.RWMutex
	parsers map[domain.Format]driven.Parser
}

// NewRegistry creates a registry holding the given parsers.
func NewRegistry(parsers ...driven.Parser) *Registry {
	r := &Registry{parsers: make(map[domain.Format]driven.Parser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces the parser for its format.
func (r *Registry) Register(p driven.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.Format()] = p
}

// Parse runs the parser registered for format.
func (r *Registry) Parse(ctx context.Context, format domain.Format, data []byte, info domain.FileInfo) (*domain.ParsedDocument, error) {
	r.mu.RLock()
	p, ok := r.parsers[format]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no parser for format %q", domain.ErrUnsupportedType, format)
	}
	return p.Parse(ctx, data, info)
}

// Formats returns the registered formats in sorted order.
func (r *Registry) Formats() []domain.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Format, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
