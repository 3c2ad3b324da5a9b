package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Snippet highlight markers shared by every lexical backend.
const (
	HighlightStart = "<mark>"
	HighlightEnd   = "</mark>"
)

// ftsIndex implements driven.LexicalIndex over the FTS5 tables.
type ftsIndex struct {
	store *Store
}

var _ driven.LexicalIndex = (*ftsIndex)(nil)

// Index adds entries for the given pages and chunks of a document.
func (f *ftsIndex) Index(ctx context.Context, documentID string, pages []domain.Page, chunks []domain.Chunk) error {
	tx, err := f.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if len(pages) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO pages_fts (content, document_id, page_number) VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()
		for _, p := range pages {
			if _, err := stmt.ExecContext(ctx, p.Content, documentID, p.PageNumber); err != nil {
				return fmt.Errorf("indexing page %d: %w", p.PageNumber, err)
			}
		}
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks_fts (content, document_id, chunk_index, page_number) VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()
		for _, c := range chunks {
			if _, err := stmt.ExecContext(ctx, c.Text, documentID, c.Index, nullInt(c.PageNumber)); err != nil {
				return fmt.Errorf("indexing chunk %d: %w", c.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Remove deletes every entry belonging to a document.
func (f *ftsIndex) Remove(ctx context.Context, documentID string) error {
	tx, err := f.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM pages_fts WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("removing pages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("removing chunks: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Search runs an any-of keyword query ranked by BM25.
func (f *ftsIndex) Search(ctx context.Context, q domain.LexicalQuery) ([]domain.LexicalHit, error) {
	match := matchExpression(q.Keywords)
	if match == "" {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	var query string
	switch q.Target {
	case domain.TargetPages:
		query = `
			SELECT document_id, page_number, -1, content,
				snippet(pages_fts, 0, '` + HighlightStart + `', '` + HighlightEnd + `', '...', 24),
				bm25(pages_fts)
			FROM pages_fts WHERE pages_fts MATCH ?
			ORDER BY bm25(pages_fts) LIMIT ?`
	default:
		query = `
			SELECT document_id, page_number, chunk_index, content,
				snippet(chunks_fts, 0, '` + HighlightStart + `', '` + HighlightEnd + `', '...', 24),
				bm25(chunks_fts)
			FROM chunks_fts WHERE chunks_fts MATCH ?
			ORDER BY bm25(chunks_fts) LIMIT ?`
	}

	rows, err := f.store.db.QueryContext(ctx, query, match, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	defer rows.Close()

	var hits []domain.LexicalHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			h    domain.LexicalHit
			page sql.NullInt64
			rank float64
		)
		if err := rows.Scan(&h.DocumentID, &page, &h.ChunkIndex, &h.Text, &h.Snippet, &rank); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		h.PageNumber = intPtr(page)
		// bm25() is lower-is-better.
		h.Score = -rank
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}
	return hits, nil
}

// Counts returns the number of page and chunk entries.
func (f *ftsIndex) Counts(ctx context.Context) (domain.IndexCounts, error) {
	var counts domain.IndexCounts
	err := f.store.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM pages_fts), (SELECT COUNT(*) FROM chunks_fts)
	`).Scan(&counts.Pages, &counts.Chunks)
	if err != nil {
		return domain.IndexCounts{}, fmt.Errorf("counting index entries: %w", err)
	}
	return counts, nil
}

// Reset removes every entry.
func (f *ftsIndex) Reset(ctx context.Context) error {
	for _, table := range []string{"pages_fts", "chunks_fts"} {
		if _, err := f.store.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("resetting %s: %w", table, err)
		}
	}
	return nil
}

// Close is a no-op; the owning Store closes the database.
func (f *ftsIndex) Close() error {
	return nil
}

// matchExpression quotes each keyword as an FTS5 string and joins them
// with OR.
func matchExpression(keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(kw, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " OR ")
}
