// Package blob defines the object-store abstraction used for upload
// artifacts and manifests. Drivers live in subpackages; blobstore.Open picks
// one from configuration.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	DriverMemory     Driver = "memory" // in-process, tests and local runs
	DriverFilesystem Driver = "fs"     // local directory
	DriverS3         Driver = "s3"     // AWS S3 or MinIO
	DriverGCS        Driver = "gcs"    // Google Cloud Storage
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("object already exists")
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a minimal create-only object store.
//
// Put never overwrites: it fails with ErrExists when the key is taken.
// Get and Head fail with ErrNotFound for a missing key. Delete reports
// whether the key existed. List returns objects under prefix sorted by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// CloneMetadata copies user metadata so callers cannot alias stored maps.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
