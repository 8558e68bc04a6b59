// Package blob reads and deletes uploaded invoice documents in object
// storage, addressed by storage path.
package blob

import (
	"context"
	"errors"
	"io"

	gcsstorage "cloud.google.com/go/storage"
)

// ObjectStore is the object-storage surface the pipeline needs: download
// bytes with their content type, and delete by path.
type ObjectStore interface {
	Download(ctx context.Context, path string) (data []byte, contentType string, err error)
	Delete(ctx context.Context, path string) error
}

// GCSStore implements ObjectStore on a GCS bucket.
type GCSStore struct {
	bucket *gcsstorage.BucketHandle
}

// NewGCSStore wraps an injected bucket handle.
func NewGCSStore(bucket *gcsstorage.BucketHandle) *GCSStore {
	return &GCSStore{bucket: bucket}
}

func (s *GCSStore) Download(ctx context.Context, path string) ([]byte, string, error) {
	reader, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		return nil, "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", err
	}
	return data, reader.Attrs.ContentType, nil
}

// Delete removes the object; a path that is already gone is not an error.
func (s *GCSStore) Delete(ctx context.Context, path string) error {
	err := s.bucket.Object(path).Delete(ctx)
	if errors.Is(err, gcsstorage.ErrObjectNotExist) {
		return nil
	}
	return err
}
