package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

var (
	errTooManyPages = errors.New("page count exceeds limit")
	errNoPageTree   = errors.New("no readable page tree")
)

type structural struct {
	pageCount  int
	pages      []string
	pageErrors int
	meta       domain.DocumentMetadata
}

func (s structural) hasText() bool {
	for _, p := range s.pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// extractStructural walks the page tree. The reader panics on some
// malformed inputs; panics are returned as errors. Failures before the
// page tree is open wrap errNoPageTree.
func extractStructural(ctx context.Context, data []byte, maxPages int) (res structural, err error) {
	opened := false
	defer func() {
		if r := recover(); r != nil {
			if opened {
				err = fmt.Errorf("pdf reader: %v", r)
			} else {
				err = fmt.Errorf("%w: pdf reader: %v", errNoPageTree, r)
			}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return res, fmt.Errorf("%w: %w", errNoPageTree, err)
	}
	opened = true

	res.pageCount = reader.NumPage()
	if res.pageCount > maxPages {
		return res, errTooManyPages
	}
	res.meta = infoMetadata(reader.Trailer().Key("Info"))
	res.meta.PageCount = res.pageCount

	res.pages = make([]string, 0, res.pageCount)
	for i := 1; i <= res.pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			res.pages = append(res.pages, "")
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			res.pageErrors++
			res.pages = append(res.pages, "")
			continue
		}
		res.pages = append(res.pages, text)
	}
	return res, nil
}

func infoMetadata(info pdf.Value) domain.DocumentMetadata {
	var m domain.DocumentMetadata
	if info.IsNull() {
		return m
	}
	text := func(key string) string {
		return strings.TrimSpace(info.Key(key).Text())
	}
	m.Title = text("Title")
	m.Author = text("Author")
	m.Subject = text("Subject")
	m.Creator = text("Creator")
	m.Producer = text("Producer")
	m.Keywords = text("Keywords")
	if t, ok := ParseDate(text("CreationDate")); ok {
		m.CreatedAt = &t
	}
	if t, ok := ParseDate(text("ModDate")); ok {
		m.ModifiedAt = &t
	}
	return m
}
