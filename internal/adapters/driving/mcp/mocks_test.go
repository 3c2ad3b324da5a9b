package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results   []domain.RetrievalResult
	err       error
	lastLimit int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ string, limit int) ([]domain.RetrievalResult, error) {
	m.lastLimit = limit
	return m.results, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents  []domain.Document
	document   *domain.Document
	pages      []domain.Page
	err        error
	processErr error
	lastFilter domain.ListFilter
}

func (m *mockDocumentService) Upload(_ context.Context, _ driving.UploadRequest) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Process(_ context.Context, _ string) (*domain.Document, error) {
	if m.processErr != nil {
		return m.document, m.processErr
	}
	return m.document, m.err
}

func (m *mockDocumentService) ProcessPending(_ context.Context) ([]driving.ProcessOutcome, error) {
	return nil, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context, filter domain.ListFilter) ([]domain.Document, error) {
	m.lastFilter = filter
	return m.documents, m.err
}

func (m *mockDocumentService) Pages(_ context.Context, _ string) ([]domain.Page, error) {
	return m.pages, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return nil, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	health *domain.IndexHealth
	err    error
}

func (m *mockIndexService) Health(_ context.Context) (*domain.IndexHealth, error) {
	return m.health, m.err
}

func (m *mockIndexService) Rebuild(_ context.Context) (*domain.IndexHealth, error) {
	return m.health, m.err
}

func (m *mockIndexService) ReindexVectors(_ context.Context) (int, error) {
	return 0, m.err
}
