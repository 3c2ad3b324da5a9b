package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/logger"
	"github.com/custodia-labs/sercha-docs/internal/normalisers"
	"github.com/custodia-labs/sercha-docs/internal/signature"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// Document lifecycle defaults.
const (
	DefaultMaxUploadBytes int64 = 50 << 20
	DefaultProcessTimeout       = 2 * time.Minute

	// PlaceholderContent is the single page stored for an unprocessed upload.
	PlaceholderContent = "Document uploaded. Processing pending."
)

// DocumentService owns the upload, process and delete lifecycle of
// documents and keeps the derived indexes in step with it.
type DocumentService struct {
	store   driven.DocumentStore
	blobs   driven.BlobStore
	lexical driven.LexicalIndex
	parsers driven.ParserRegistry
	chunker driven.Chunker
	vectors *VectorIndexer
	guard   *sync.RWMutex

	maxUploadBytes int64
	processTimeout time.Duration
	now            func() time.Time
	newID          func() string
}

// DocumentOption configures a DocumentService.
type DocumentOption func(*DocumentService)

// WithMaxUploadBytes sets the upload size ceiling.
func WithMaxUploadBytes(n int64) DocumentOption {
	return func(s *DocumentService) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithProcessTimeout bounds each parse.
func WithProcessTimeout(d time.Duration) DocumentOption {
	return func(s *DocumentService) {
		if d > 0 {
			s.processTimeout = d
		}
	}
}

// WithVectorIndexer enables background vector indexing after processing.
func WithVectorIndexer(v *VectorIndexer) DocumentOption {
	return func(s *DocumentService) {
		s.vectors = v
	}
}

// WithIndexGuard shares the derived-index lock with the index service.
func WithIndexGuard(guard *sync.RWMutex) DocumentOption {
	return func(s *DocumentService) {
		if guard != nil {
			s.guard = guard
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) DocumentOption {
	return func(s *DocumentService) {
		s.now = now
	}
}

// WithIDGenerator overrides document id generation.
func WithIDGenerator(newID func() string) DocumentOption {
	return func(s *DocumentService) {
		s.newID = newID
	}
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	store driven.DocumentStore,
	blobs driven.BlobStore,
	lexical driven.LexicalIndex,
	parsers driven.ParserRegistry,
	chunker driven.Chunker,
	opts ...DocumentOption,
) *DocumentService {
	s := &DocumentService{
		store:          store,
		blobs:          blobs,
		lexical:        lexical,
		parsers:        parsers,
		chunker:        chunker,
		guard:          &sync.RWMutex{},
		maxUploadBytes: DefaultMaxUploadBytes,
		processTimeout: DefaultProcessTimeout,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates and stores a file and creates its document row with
// a single placeholder page.
func (s *DocumentService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
	name := strings.TrimSpace(req.Filename)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	case len(req.Data) == 0:
		return nil, fmt.Errorf("%w: file is empty", domain.ErrInvalidInput)
	case int64(len(req.Data)) > s.maxUploadBytes:
		return nil, fmt.Errorf("%w: file is %d bytes, limit is %d", domain.ErrInvalidInput, len(req.Data), s.maxUploadBytes)
	}

	class, err := signature.Classify(req.Data, req.ContentType, name)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	id := s.newID()
	safe := SafeFilename(name)
	doc := &domain.Document{
		ID:               id,
		Filename:         safe,
		OriginalFilename: name,
		ContentType:      req.ContentType,
		Size:             int64(len(req.Data)),
		UploadedAt:       now,
		Category:         strings.TrimSpace(req.Category),
		Tags:             normaliseTags(req.Tags),
		BlobKey:          BlobKey(id, safe),
		Status:           domain.StatusUploaded,
		ParsedMetadata:   map[string]any{},
		ParsedStructure:  map[string]any{},
		UpdatedAt:        now,
	}
	if class.Signature.DetectedType != signature.TypeUnknown {
		doc.ParsedMetadata["detected_type"] = string(class.Signature.DetectedType)
	}

	contentType := req.ContentType
	switch {
	case contentType != "":
	case class.Format == domain.FormatPDF:
		contentType = "application/pdf"
	default:
		contentType = class.Sniffed.MIME
	}
	if err := s.blobs.Put(ctx, doc.BlobKey, req.Data, contentType); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	pages := []domain.Page{placeholderPage(id)}
	if err := s.store.InsertDocument(ctx, doc, pages); err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), doc.BlobKey); delErr != nil {
			logger.With(logger.Fields{"document_id": id, "stage": "upload"}).
				Warn("orphaned blob %s: %v", doc.BlobKey, delErr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.guard.RLock()
	if err := s.lexical.Index(ctx, id, pages, nil); err != nil {
		logger.With(logger.Fields{"document_id": id, "stage": "lexical"}).Warn("index placeholder: %v", err)
	}
	s.guard.RUnlock()

	logger.With(logger.Fields{"document_id": id}).Info("uploaded %s (%d bytes)", name, doc.Size)
	return doc, nil
}

// Process parses a document and replaces its pages and chunks. It may be
// called any number of times; each call starts from the stored bytes.
func (s *DocumentService) Process(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	log := logger.With(logger.Fields{"document_id": doc.ID})

	data, err := s.blobs.Get(ctx, doc.BlobKey)
	if err != nil {
		if !errors.Is(err, domain.ErrBlobNotFound) {
			return nil, fmt.Errorf("load file: %w", err)
		}
		return s.fail(ctx, doc, domain.WrapProcessingError(domain.CodeParseError,
			"the original file is missing and cannot be processed", err))
	}

	parsed, format, err := s.parse(ctx, doc, data)
	if err != nil {
		pe, ok := domain.AsProcessingError(err)
		if !ok {
			pe = domain.WrapProcessingError(domain.CodeParseError, "the document could not be read", err)
		}
		return s.fail(ctx, doc, pe)
	}

	pages := toPages(doc.ID, parsed.Pages)
	chunks := s.chunker.Process(doc.ID, parsed)

	s.guard.RLock()
	defer s.guard.RUnlock()

	// The lexical entries for the old rows stay until the replace commits.
	if err := s.store.ReplaceContent(ctx, doc.ID, pages, chunks); err != nil {
		return nil, fmt.Errorf("replace content: %w", err)
	}
	if err := s.lexical.Remove(ctx, doc.ID); err != nil {
		log.Warn("lexical remove: %v", err)
	}
	if err := s.lexical.Index(ctx, doc.ID, pages, chunks); err != nil {
		log.Warn("lexical index: %v", err)
	}

	applyParsed(doc, parsed, format, pages, s.now().UTC())
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}

	if s.vectors != nil {
		s.vectors.Enqueue(*doc, chunks)
	}

	log.Info("processed %s: %d pages, %d chunks", doc.OriginalFilename, len(pages), len(chunks))
	return doc, nil
}

// parse classifies and parses data under the process timeout. Panics and
// timeouts become PARSE_ERROR.
func (s *DocumentService) parse(ctx context.Context, doc *domain.Document, data []byte) (*domain.ParsedDocument, domain.Format, error) {
	ctx, cancel := context.WithTimeout(ctx, s.processTimeout)
	defer cancel()

	type outcome struct {
		parsed *domain.ParsedDocument
		format domain.Format
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: domain.NewProcessingError(domain.CodeParseError,
					fmt.Sprintf("the parser failed unexpectedly: %v", r))}
			}
		}()

		class, err := signature.Classify(data, doc.ContentType, doc.OriginalFilename)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		parsed, err := s.parsers.Parse(ctx, class.Format, data, domain.FileInfo{
			Filename:    doc.OriginalFilename,
			ContentType: doc.ContentType,
			Size:        doc.Size,
		})
		if err == nil && (parsed == nil || len(parsed.Pages) == 0) {
			err = domain.NewProcessingError(domain.CodeNoContent, "no readable content was found in the document")
		}
		done <- outcome{parsed: parsed, format: class.Format, err: err}
	}()

	select {
	case o := <-done:
		return o.parsed, o.format, o.err
	case <-ctx.Done():
		return nil, "", domain.WrapProcessingError(domain.CodeParseError,
			"processing took too long and was stopped", ctx.Err())
	}
}

// fail records pe on the document and returns it.
func (s *DocumentService) fail(ctx context.Context, doc *domain.Document, pe *domain.ProcessingError) (*domain.Document, error) {
	ctx = context.WithoutCancel(ctx)
	now := s.now().UTC()

	if doc.ParsedMetadata == nil {
		doc.ParsedMetadata = map[string]any{}
	}
	doc.ParsedMetadata["error"] = pe.ToMap()
	doc.Status = domain.StatusError
	doc.ParsedAt = &now
	doc.UpdatedAt = now

	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		logger.With(logger.Fields{"document_id": doc.ID, "code": string(pe.Code)}).
			Error("record processing failure: %v", err)
		return nil, errors.Join(pe, err)
	}

	logger.With(logger.Fields{"document_id": doc.ID, "code": string(pe.Code)}).
		Warn("processing failed: %s", pe.Message)
	return doc, pe
}

// ProcessPending processes every document that is uploaded or in error.
func (s *DocumentService) ProcessPending(ctx context.Context) ([]driving.ProcessOutcome, error) {
	docs, err := s.store.ListDocuments(ctx, domain.ListFilter{
		Statuses: []domain.DocumentStatus{domain.StatusUploaded, domain.StatusError},
	})
	if err != nil {
		return nil, fmt.Errorf("list pending documents: %w", err)
	}

	outcomes := make([]driving.ProcessOutcome, 0, len(docs))
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome := driving.ProcessOutcome{DocumentID: docs[i].ID}
		doc, err := s.Process(ctx, docs[i].ID)
		outcome.Err = err
		switch {
		case doc != nil:
			outcome.Status = doc.Status
		case err != nil:
			outcome.Status = docs[i].Status
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Delete removes a document, its blob and its derived index entries.
// Blob and index failures are logged; the row is always removed.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	log := logger.With(logger.Fields{"document_id": doc.ID, "stage": "delete"})

	if err := s.blobs.Delete(ctx, doc.BlobKey); err != nil {
		log.Warn("delete blob %s: %v", doc.BlobKey, err)
	}

	s.guard.RLock()
	defer s.guard.RUnlock()

	if err := s.lexical.Remove(ctx, doc.ID); err != nil {
		log.Warn("lexical remove: %v", err)
	}
	if s.vectors != nil {
		if err := s.vectors.Forget(ctx, doc.ID); err != nil {
			log.Warn("vector remove: %v", err)
		}
	}

	if err := s.store.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	log.Info("deleted %s", doc.OriginalFilename)
	return nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.store.GetDocument(ctx, documentID)
}

// List returns documents matching the filter, newest first.
func (s *DocumentService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx, filter)
}

// Pages returns a document's pages in order.
func (s *DocumentService) Pages(ctx context.Context, documentID string) ([]domain.Page, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.store.GetPages(ctx, documentID)
}

// Chunks returns a document's chunks in order.
func (s *DocumentService) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.store.GetChunks(ctx, documentID)
}

// BlobKey returns the blob location for a document's original bytes.
func BlobKey(documentID, safeFilename string) string {
	return path.Join("documents", documentID, safeFilename)
}

// SafeFilename reduces name to a single path element of letters, digits,
// dots, dashes and underscores.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	safe := strings.Trim(b.String(), "._")
	if safe == "" {
		return "file"
	}
	return safe
}

func normaliseTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func placeholderPage(documentID string) domain.Page {
	return domain.Page{
		DocumentID: documentID,
		PageNumber: 1,
		Content:    PlaceholderContent,
		Metadata: domain.PageMetadata{
			WordCount:      normalisers.CountWords(PlaceholderContent),
			CharacterCount: normalisers.CountChars(PlaceholderContent),
		},
	}
}

func toPages(documentID string, parsed []domain.ParsedPage) []domain.Page {
	pages := make([]domain.Page, len(parsed))
	for i, p := range parsed {
		pages[i] = domain.Page{
			DocumentID: documentID,
			PageNumber: p.Number,
			Content:    p.Content,
			Metadata: domain.PageMetadata{
				Headers:        p.Headers,
				WordCount:      normalisers.CountWords(p.Content),
				CharacterCount: normalisers.CountChars(p.Content),
			},
		}
	}
	return pages
}

// applyParsed copies parser output onto doc and marks it processed.
func applyParsed(doc *domain.Document, parsed *domain.ParsedDocument, format domain.Format, pages []domain.Page, now time.Time) {
	words, chars := 0, 0
	for _, p := range pages {
		words += p.Metadata.WordCount
		chars += p.Metadata.CharacterCount
	}

	metadata := parsed.Metadata.ToMap()
	if parsed.EncodingWarning != "" {
		metadata["encoding_warning"] = parsed.EncodingWarning
	}
	if dt, ok := doc.ParsedMetadata["detected_type"]; ok {
		metadata["detected_type"] = dt
	}

	sections := parsed.Sections
	if sections == nil {
		sections = []string{}
	}

	doc.Status = domain.StatusProcessed
	doc.Format = format
	doc.SubFormat = parsed.SubFormat
	doc.Language = parsed.Language
	doc.WordCount = words
	doc.CharacterCount = chars
	doc.ParserVersion = parsed.ParserVersion
	doc.ParsedAt = &now
	doc.ParsedMetadata = metadata
	doc.ParsedStructure = map[string]any{
		"sections":   sections,
		"page_count": len(pages),
	}
	doc.UpdatedAt = now
}
