package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates a file type no parser handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrBlobNotFound indicates the blob store has no object for a key.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSearchUnavailable indicates the lexical index is not configured.
	ErrSearchUnavailable = errors.New("search engine unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	// Semantic similarity search is disabled.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)

// ErrorCode is a machine-readable processing failure code.
type ErrorCode string

// Processing error codes.
const (
	CodeSignatureMismatch ErrorCode = "SIGNATURE_MISMATCH"
	CodeUnsupportedType   ErrorCode = "UNSUPPORTED_FILE_TYPE"
	CodeInvalidPDF        ErrorCode = "INVALID_PDF"
	CodePDFEncrypted      ErrorCode = "PDF_ENCRYPTED"
	CodePDFCorrupted      ErrorCode = "PDF_CORRUPTED"
	CodePDFTooLarge       ErrorCode = "PDF_TOO_LARGE"
	CodePDFParseError     ErrorCode = "PDF_PARSE_ERROR"
	CodeNoContent         ErrorCode = "NO_CONTENT"
	CodeTextParseError    ErrorCode = "TEXT_PARSE_ERROR"
	CodeParseError        ErrorCode = "PARSE_ERROR"
)

// ProcessingError is a coded failure raised while validating or parsing
// a document. Message is meant for end users; Detail is diagnostic.
type ProcessingError struct {
	Code    ErrorCode
	Message string
	Detail  string
	Err     error
}

// NewProcessingError creates a ProcessingError without an underlying cause.
func NewProcessingError(code ErrorCode, message string) *ProcessingError {
	return &ProcessingError{Code: code, Message: message}
}

// WrapProcessingError creates a ProcessingError that wraps err.
func WrapProcessingError(code ErrorCode, message string, err error) *ProcessingError {
	pe := &ProcessingError{Code: code, Message: message, Err: err}
	if err != nil {
		pe.Detail = err.Error()
	}
	return pe
}

func (e *ProcessingError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is matches another ProcessingError by code, so callers can write
// errors.Is(err, &ProcessingError{Code: CodeNoContent}).
func (e *ProcessingError) Is(target error) bool {
	var pe *ProcessingError
	if !errors.As(target, &pe) {
		return false
	}
	return pe.Code == e.Code
}

// ToMap renders the error for persistence in a document's metadata.
func (e *ProcessingError) ToMap() map[string]any {
	m := map[string]any{
		"code":    string(e.Code),
		"message": e.Message,
	}
	if e.Detail != "" {
		m["detail"] = e.Detail
	}
	return m
}

// AsProcessingError extracts a ProcessingError from an error chain.
func AsProcessingError(err error) (*ProcessingError, bool) {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
