package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"complete", Config{Endpoint: "localhost:9000", Bucket: "docs"}, false},
		{"missing endpoint", Config{Bucket: "docs"}, true},
		{"missing bucket", Config{Endpoint: "localhost:9000"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
	assert.False(t, isNotFound(nil))
}

func TestStore_MapError(t *testing.T) {
	s := &Store{bucket: "docs"}
	assert.ErrorIs(t, s.mapError("k", minio.ErrorResponse{Code: "NoSuchKey"}), domain.ErrBlobNotFound)
	assert.NotErrorIs(t, s.mapError("k", errors.New("boom")), domain.ErrBlobNotFound)
}

func TestStore_RejectsInvalidKeys(t *testing.T) {
	s := &Store{bucket: "docs"}
	ctx := context.Background()

	assert.ErrorIs(t, s.Put(ctx, "../x", nil, ""), domain.ErrInvalidInput)
	_, err := s.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, s.Delete(ctx, "/abs"), domain.ErrInvalidInput)
}
