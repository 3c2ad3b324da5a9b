package driven

import "context"

// BlobStore holds the raw bytes of uploaded documents.
type BlobStore interface {
	// Put writes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get reads the object at key.
	// Returns domain.ErrBlobNotFound when no object exists.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
