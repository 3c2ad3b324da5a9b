package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

type stubParser struct {
	format domain.Format
	calls  int
}

func (s *stubParser) Format() domain.Format { return s.format }

func (s *stubParser) Parse(_ context.Context, data []byte, _ domain.FileInfo) (*domain.ParsedDocument, error) {
	s.calls++
	return &domain.ParsedDocument{
		Format: s.format,
		Pages:  []domain.ParsedPage{{Number: 1, Content: string(data)}},
	}, nil
}

func TestRegistry_Dispatch(t *testing.T) {
	pdf := &stubParser{format: domain.FormatPDF}
	text := &stubParser{format: domain.FormatText}
	r := NewRegistry(pdf, text)

	got, err := r.Parse(context.Background(), domain.FormatText, []byte("hello"), domain.FileInfo{})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatText, got.Format)
	assert.Equal(t, 1, text.calls)
	assert.Equal(t, 0, pdf.calls)

	assert.Equal(t, []domain.Format{domain.FormatPDF, domain.FormatText}, r.Formats())
}

func TestRegistry_UnknownFormat(t *testing.T) {
	r := NewRegistry()
	_, err := r.Parse(context.Background(), domain.FormatPDF, nil, domain.FileInfo{})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	first := &stubParser{format: domain.FormatText}
	second := &stubParser{format: domain.FormatText}
	r := NewRegistry(first)
	r.Register(second)

	_, err := r.Parse(context.Background(), domain.FormatText, []byte("x"), domain.FileInfo{})
	require.NoError(t, err)
	assert.Equal(t, 0, first.calls)
	assert.Equal(t, 1, second.calls)
}
