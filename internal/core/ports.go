package core

import (
	"context"
	"time"
)

// RowStore upserts domain rows by conflict key.
// Implementations apply all rows atomically and reject on constraint violation.
type RowStore interface {
	Upsert(ctx context.Context, table string, rows []Row, conflictKey []string) (int64, error)
}

// AuditLog stores sync audit entries.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	List(ctx context.Context, tenantID string, limit int) ([]AuditEntry, error)
}

// SyncCursors stores the last successful sync per tenant and dataset.
type SyncCursors interface {
	Advance(ctx context.Context, tenantID, datasetKind string, at time.Time) error
	Get(ctx context.Context, tenantID, datasetKind string) (SyncCursor, bool, error)
}

// DigestIndex maps content digests to previously uploaded artifacts.
type DigestIndex interface {
	Lookup(ctx context.Context, tenantID, datasetKind, contentHash string) ([]DigestRecord, error)
	Record(ctx context.Context, rec DigestRecord) error
}

// Store bundles every relational concern the pipeline needs.
type Store interface {
	RowStore
	AuditLog
	SyncCursors
	DigestIndex
}

// Locker serializes ingestions for one tenant and dataset.
// The returned release func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Notifier publishes ingestion events for downstream consumers.
type Notifier interface {
	Publish(ctx context.Context, evt IngestEvent) error
}

// IngestEvent is published after a successful ingestion.
type IngestEvent struct {
	TenantID     string    `json:"tenantId"`
	DatasetKind  string    `json:"datasetKind"`
	ArtifactPath string    `json:"artifactPath"`
	ManifestPath string    `json:"manifestPath"`
	ContentHash  string    `json:"contentHash"`
	RowCount     int       `json:"rowCount"`
	Duplicate    bool      `json:"duplicate"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Recorder receives pipeline measurements. The metrics package provides the
// prometheus implementation; nopRecorder is used when none is configured.
type Recorder interface {
	UploadCompleted(dataset string, duplicate bool, took time.Duration)
	UploadFailed(dataset, kind string)
	BestEffortFailed(op string)
	CompensationFailed(dataset string)
	OrphansFound(n int)
}

type nopRecorder struct{}

func (nopRecorder) UploadCompleted(string, bool, time.Duration) {}
func (nopRecorder) UploadFailed(string, string)                 {}
func (nopRecorder) BestEffortFailed(string)                     {}
func (nopRecorder) CompensationFailed(string)                   {}
func (nopRecorder) OrphansFound(int)                            {}

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, IngestEvent) error { return nil }
