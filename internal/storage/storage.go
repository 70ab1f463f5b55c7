package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrGalleryNotFound = errors.New("gallery not found")
	ErrImageNotFound   = errors.New("photo not found")
	ErrSlugExists      = errors.New("slug already exists")
	ErrIncompleteImage = errors.New("incomplete photo")
	ErrImagesParams    = errors.New("gallery id or list of image ids required")
	ErrBackend         = errors.New("storage backend failure")
)

var (
	ErrInvalidAttribute = errors.New("invalid gallery attribute")
	ErrWrongPassword    = errors.New("incorrect gallery password")
	ErrCacheMiss        = errors.New("no such key")
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFileType = errors.New("invalid file type")
)

// IsNotFound reports whether err describes a missing gallery, slug or image.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGalleryNotFound) || errors.Is(err, ErrImageNotFound)
}

// Cache is a process-external key/value store with expiry.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or older than lifetime.
	// A zero lifetime accepts entries of any age.
	Get(ctx context.Context, key string, lifetime time.Duration) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Expire(ctx context.Context, key string) error
}
