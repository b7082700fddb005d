package storage

import (
	"context"
	"errors"
)

var (
	// ErrObjectNotFound is returned when the key does not exist in the bucket.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectTooLarge is returned when an object exceeds the configured size cap.
	ErrObjectTooLarge = errors.New("object too large")
)

// ResumeStore fetches resume documents previously uploaded to object storage.
type ResumeStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}
