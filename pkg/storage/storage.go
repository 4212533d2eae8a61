// Package storage stores uploaded files (resumes, publication files, images)
// behind a key-based interface with filesystem and S3 backends.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("object not found")

// Storage is a minimal blob store keyed by slash-separated paths.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds a collision-free key under dir that keeps the original
// extension, e.g. "applications/resumes/<uuid>.pdf".
func NewKey(dir, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(dir, uuid.New().String()+ext)
}

// CleanKey rejects keys that would escape the storage root.
func CleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || strings.Contains(key, "..") {
		return "", errors.New("invalid object key")
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}
