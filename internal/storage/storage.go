package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/taskhub/apiserver/config"
)

// NewBackend constructs the object-storage backend named by cfg.Backend.
// An empty backend name yields (nil, nil): storage is optional.
func NewBackend(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		return NewMinioClient(cfg.Minio)
	case "gcs":
		return NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	ObjectURL(key string) string
	Bucket() string
}

// Avatars stores user profile pictures in an object-storage backend.
type Avatars struct {
	backend ObjectStorage
}

// NewAvatars constructs an avatar store over the provided backend.
func NewAvatars(backend ObjectStorage) *Avatars {
	return &Avatars{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (a *Avatars) EnsureBucket(ctx context.Context) error {
	return a.backend.EnsureBucket(ctx)
}

// Upload stores an avatar for the user under a fresh key and returns the
// publicly reachable URL of the object.
func (a *Avatars) Upload(ctx context.Context, userID int, r io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), extensionFor(contentType))
	if err := a.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return a.backend.ObjectURL(key), nil
}

// Open returns a reader for a stored avatar object.
func (a *Avatars) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return a.backend.Get(ctx, key)
}

// Remove deletes a stored avatar object.
func (a *Avatars) Remove(ctx context.Context, key string) error {
	return a.backend.Delete(ctx, key)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
