package blobstore

import (
	"context"
	"testing"

	"github.com/JonMunkholm/intake/internal/blob"
	"github.com/JonMunkholm/intake/internal/config"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    blob.Driver
		wantErr bool
	}{
		{"memory", config.StorageConfig{Driver: "memory"}, blob.DriverMemory, false},
		{"fs", config.StorageConfig{Driver: "fs", FSRoot: t.TempDir()}, blob.DriverFilesystem, false},
		{"upper case", config.StorageConfig{Driver: "MEMORY"}, blob.DriverMemory, false},
		{"s3 without bucket", config.StorageConfig{Driver: "s3"}, "", true},
		{"gcs without bucket", config.StorageConfig{Driver: "gcs"}, "", true},
		{"unknown", config.StorageConfig{Driver: "ftp"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Open(context.Background(), tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Open(%q) error = nil, want error", tt.cfg.Driver)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open(%q) error = %v", tt.cfg.Driver, err)
			}
			if got.Driver() != tt.want {
				t.Errorf("Driver() = %q, want %q", got.Driver(), tt.want)
			}
		})
	}
}
