package storage

import (
	"context"
	"io"
)

// ObjectStorage is the contract for the poster/backdrop image mirror.
type ObjectStorage interface {
	// Upload stores an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Exists checks whether an object is already mirrored.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the public URL for a mirrored object.
	GetURL(key string) string

	// Delete removes an object.
	Delete(ctx context.Context, key string) error

	// EnsureBucket creates the bucket when it does not exist.
	EnsureBucket(ctx context.Context) error
}
