// Package storage archives generated documents in S3-compatible object storage.
package storage

import (
	"context"
	"io"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
)

// StorageService defines the object storage operations the service uses.
type StorageService interface {
	// UploadFile stores reader under folder and returns the full file key.
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error
}

// Config defines the configuration interface for storage.
type Config = config.MinIOConfig
