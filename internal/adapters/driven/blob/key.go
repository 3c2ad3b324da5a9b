// Package blob holds helpers shared by the blob store adapters.
//
// Adapters live in subpackages:
//
//   - filesystem: objects as files under a root directory
//   - minio: objects in an S3-compatible bucket
//   - memory: objects in a map, for tests
package blob

import (
	"fmt"
	"path"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// ValidateKey rejects keys that are empty, absolute, or escape the store
// root through "..".
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: invalid blob key %q", domain.ErrInvalidInput, key)
	}
	if cleaned := path.Clean(key); cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return fmt.Errorf("%w: invalid blob key %q", domain.ErrInvalidInput, key)
	}
	return nil
}
