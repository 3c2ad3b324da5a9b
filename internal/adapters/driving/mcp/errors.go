// Package mcp provides an MCP (Model Context Protocol) server adapter for sercha-docs.
// It lets AI assistants retrieve excerpts from uploaded documents and manage their processing.
package mcp

import "errors"

var (
	// ErrMissingRetrievalService is returned when the retrieval service is not provided.
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

	// ErrDocumentsUnavailable is returned by document tools when no document service is wired.
	ErrDocumentsUnavailable = errors.New("mcp: document service not configured")

	// ErrIndexUnavailable is returned by index tools when no index service is wired.
	ErrIndexUnavailable = errors.New("mcp: index service not configured")
)
