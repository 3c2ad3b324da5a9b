package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// VectorKey builds the vector record identifier for a chunk.
func VectorKey(documentID string, chunkIndex int) string {
	return documentID + "::" + strconv.Itoa(chunkIndex)
}

// ParseVectorKey splits a vector record identifier.
func ParseVectorKey(key string) (documentID string, chunkIndex int, err error) {
	i := strings.LastIndex(key, "::")
	if i <= 0 {
		return "", 0, fmt.Errorf("%w: vector key %q", ErrInvalidInput, key)
	}
	n, err := strconv.Atoi(key[i+2:])
	if err != nil {
		return "", 0, fmt.Errorf("%w: vector key %q", ErrInvalidInput, key)
	}
	return key[:i], n, nil
}
