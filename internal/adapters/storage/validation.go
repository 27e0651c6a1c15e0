package storage

import (
	"fmt"
	"strings"
)

// MaxArchiveSize bounds a single archived document (5 MB).
const MaxArchiveSize int64 = 5 << 20

// AllowedContentTypes defines the MIME types the archive accepts.
var AllowedContentTypes = map[string]bool{
	"application/json": true,
	"application/pdf":  true,
	"text/html":        true,
	"text/plain":       true,
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	// Strip parameters such as "; charset=utf-8".
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if !AllowedContentTypes[strings.ToLower(base)] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateFileSize checks if the size is within limits.
func ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be positive")
	}
	if sizeBytes > MaxArchiveSize {
		return fmt.Errorf("file size %d exceeds maximum %d", sizeBytes, MaxArchiveSize)
	}
	return nil
}
