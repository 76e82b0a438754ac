// Package blobstore opens the blob.Store named by configuration.
package blobstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/intake/internal/blob"
	"github.com/JonMunkholm/intake/internal/blob/fs"
	"github.com/JonMunkholm/intake/internal/blob/gcs"
	"github.com/JonMunkholm/intake/internal/blob/memory"
	"github.com/JonMunkholm/intake/internal/blob/s3"
	"github.com/JonMunkholm/intake/internal/config"
)

// Open returns the driver selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	switch blob.Driver(strings.ToLower(cfg.Driver)) {
	case blob.DriverMemory:
		return memory.New(), nil
	case blob.DriverFilesystem, "":
		return fs.New(cfg.FSRoot)
	case blob.DriverS3:
		return s3.New(ctx, s3.Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PathStyle:       cfg.S3PathStyle,
		})
	case blob.DriverGCS:
		return gcs.New(ctx, gcs.Config{
			Bucket:          cfg.GCSBucket,
			CredentialsJSON: cfg.GCSCredentialsJSON,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
