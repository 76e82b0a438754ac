// Package gcs implements blob.Store on a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/JonMunkholm/intake/internal/blob"
)

// Config selects the bucket and credentials. An empty CredentialsJSON uses
// Application Default Credentials.
type Config struct {
	Bucket          string
	CredentialsJSON string
}

// Store keeps objects in one bucket.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// New opens a storage client and verifies the bucket is reachable.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	bucket := client.Bucket(cfg.Bucket)
	if _, err := bucket.Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gcs bucket %q not found or not accessible: %w", cfg.Bucket, err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Driver() blob.Driver { return blob.DriverGCS }

// Put writes a new object under a DoesNotExist precondition.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	obj := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wc := obj.NewWriter(ctx)
	wc.ContentType = opts.ContentType
	wc.Metadata = blob.CloneMetadata(opts.Metadata)

	if _, err := io.Copy(wc, r); err != nil {
		// Cancelling the context aborts the upload before Close commits it.
		cancel()
		_ = wc.Close()
		return blob.Info{}, fmt.Errorf("write %s: %w", key, err)
	}
	if err := wc.Close(); err != nil {
		if apiStatus(err) == http.StatusPreconditionFailed {
			return blob.Info{}, fmt.Errorf("%w: %s", blob.ErrExists, key)
		}
		return blob.Info{}, fmt.Errorf("close writer %s: %w", key, err)
	}
	return toInfo(wc.Attrs()), nil
}

func (s *Store) Get(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	obj := s.bucket.Object(key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return blob.Info{}, nil, mapNotFound(err, key)
	}
	rc, err := obj.Generation(attrs.Generation).NewReader(ctx)
	if err != nil {
		return blob.Info{}, nil, mapNotFound(err, key)
	}
	return toInfo(attrs), rc, nil
}

func (s *Store) Head(ctx context.Context, key string) (blob.Info, error) {
	attrs, err := s.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return blob.Info{}, mapNotFound(err, key)
	}
	return toInfo(attrs), nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]blob.Info, error) {
	var infos []blob.Info
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, toInfo(attrs))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func toInfo(attrs *storage.ObjectAttrs) blob.Info {
	if attrs == nil {
		return blob.Info{}
	}
	return blob.Info{
		Key:          attrs.Name,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		ETag:         attrs.Etag,
		Metadata:     attrs.Metadata,
		LastModified: attrs.Updated,
	}
}

func mapNotFound(err error, key string) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	return err
}

func apiStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
