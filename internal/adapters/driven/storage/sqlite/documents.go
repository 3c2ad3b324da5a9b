package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, filename, original_filename, content_type, size, uploaded_at, category, tags,
	blob_key, status, format, sub_format, language, word_count, character_count, parser_version,
	parsed_at, parsed_metadata, parsed_structure, updated_at`

// InsertDocument stores a new document together with its initial pages.
func (s *documentStore) InsertDocument(ctx context.Context, doc *domain.Document, pages []domain.Page) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	tags, metadata, structure, err := encodeDocumentJSON(doc)
	if err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Filename, doc.OriginalFilename, doc.ContentType, doc.Size, doc.UploadedAt.UTC(),
		doc.Category, tags, doc.BlobKey, string(doc.Status), string(doc.Format), doc.SubFormat,
		doc.Language, doc.WordCount, doc.CharacterCount, doc.ParserVersion, nullTime(doc.ParsedAt),
		metadata, structure, doc.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}

	if err := insertPages(ctx, tx, doc.ID, pages); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// UpdateDocument overwrites the document row's mutable columns.
func (s *documentStore) UpdateDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	tags, metadata, structure, err := encodeDocumentJSON(doc)
	if err != nil {
		return err
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET
			filename = ?, original_filename = ?, content_type = ?, size = ?, category = ?, tags = ?,
			blob_key = ?, status = ?, format = ?, sub_format = ?, language = ?, word_count = ?,
			character_count = ?, parser_version = ?, parsed_at = ?, parsed_metadata = ?,
			parsed_structure = ?, updated_at = ?
		WHERE id = ?
	`, doc.Filename, doc.OriginalFilename, doc.ContentType, doc.Size, doc.Category, tags,
		doc.BlobKey, string(doc.Status), string(doc.Format), doc.SubFormat, doc.Language, doc.WordCount,
		doc.CharacterCount, doc.ParserVersion, nullTime(doc.ParsedAt), metadata,
		structure, doc.UpdatedAt.UTC(), doc.ID)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments returns documents matching the filter, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, filter domain.ListFilter) ([]domain.Document, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY uploaded_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// ReplaceContent swaps a document's pages and chunks in one transaction.
func (s *documentStore) ReplaceContent(ctx context.Context, documentID string, pages []domain.Page, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE id = ?", documentID).Scan(&exists); err != nil {
		return fmt.Errorf("checking document: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM pages WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting pages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if err := insertPages(ctx, tx, documentID, pages); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, chunk_index, page_number, content) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, documentID, c.Index, nullInt(c.PageNumber), c.Text); err != nil {
			return fmt.Errorf("saving chunk %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetPages returns a document's pages ordered by page number.
func (s *documentStore) GetPages(ctx context.Context, documentID string) ([]domain.Page, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, page_number, content, metadata
		FROM pages WHERE document_id = ?
		ORDER BY page_number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.Page //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			p            domain.Page
			metadataJSON string
		)
		if err := rows.Scan(&p.DocumentID, &p.PageNumber, &p.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &p.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling page metadata: %w", err)
			}
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pages: %w", err)
	}
	return pages, nil
}

// GetChunks returns a document's chunks ordered by index.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, chunk_index, page_number, content
		FROM chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			c    domain.Chunk
			page sql.NullInt64
		)
		if err := rows.Scan(&c.DocumentID, &c.Index, &page, &c.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.PageNumber = intPtr(page)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// DeleteDocument removes a document; pages and chunks cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountContent returns the total number of page and chunk rows.
func (s *documentStore) CountContent(ctx context.Context) (domain.IndexCounts, error) {
	var counts domain.IndexCounts
	err := s.store.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM pages), (SELECT COUNT(*) FROM chunks)
	`).Scan(&counts.Pages, &counts.Chunks)
	if err != nil {
		return domain.IndexCounts{}, fmt.Errorf("counting content: %w", err)
	}
	return counts, nil
}

func insertPages(ctx context.Context, tx *sql.Tx, documentID string, pages []domain.Page) error {
	if len(pages) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (document_id, page_number, content, metadata) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range pages {
		metadataJSON, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling page metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, documentID, p.PageNumber, p.Content, string(metadataJSON)); err != nil {
			return fmt.Errorf("saving page %d: %w", p.PageNumber, err)
		}
	}
	return nil
}

func encodeDocumentJSON(doc *domain.Document) (tags, metadata, structure string, err error) {
	t := doc.Tags
	if t == nil {
		t = []string{}
	}
	tagsJSON, err := json.Marshal(t)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling tags: %w", err)
	}
	metadataJSON, err := marshalMap(doc.ParsedMetadata)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling parsed metadata: %w", err)
	}
	structureJSON, err := marshalMap(doc.ParsedStructure)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling parsed structure: %w", err)
	}
	return string(tagsJSON), metadataJSON, structureJSON, nil
}

func marshalMap(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc                                domain.Document
		status, format                     string
		tagsJSON, metadataJSON, structJSON string
		parsedAt                           sql.NullTime
	)
	err := row.Scan(&doc.ID, &doc.Filename, &doc.OriginalFilename, &doc.ContentType, &doc.Size,
		&doc.UploadedAt, &doc.Category, &tagsJSON, &doc.BlobKey, &status, &format, &doc.SubFormat,
		&doc.Language, &doc.WordCount, &doc.CharacterCount, &doc.ParserVersion, &parsedAt,
		&metadataJSON, &structJSON, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	doc.Format = domain.Format(format)
	if parsedAt.Valid {
		t := parsedAt.Time
		doc.ParsedAt = &t
	}
	if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshaling tags: %w", err)
	}
	if err := unmarshalMap(metadataJSON, &doc.ParsedMetadata); err != nil {
		return nil, fmt.Errorf("unmarshaling parsed metadata: %w", err)
	}
	if err := unmarshalMap(structJSON, &doc.ParsedStructure); err != nil {
		return nil, fmt.Errorf("unmarshaling parsed structure: %w", err)
	}
	return &doc, nil
}

func unmarshalMap(raw string, dst *map[string]any) error {
	if raw == "" || raw == "{}" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
