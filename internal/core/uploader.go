package core

// uploader.go persists one parsed upload: domain rows first, then the raw
// artifact, then its manifest. A manifest failure deletes the artifact again
// so no artifact is ever left without a manifest. Domain rows are not rolled
// back; they are idempotent under their conflict keys.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/intake/internal/blob"
	"github.com/JonMunkholm/intake/internal/logging"
)

// maxPathAttempts bounds retries when two uploads land on the same millisecond.
const maxPathAttempts = 3

// Timeouts bounds each external call made during an ingestion.
type Timeouts struct {
	Upsert time.Duration
	Lookup time.Duration
	Put    time.Duration
	Delete time.Duration
	Record time.Duration
	Audit  time.Duration
	Notify time.Duration
	Lock   time.Duration
}

// DefaultTimeouts are used for zero fields.
var DefaultTimeouts = Timeouts{
	Upsert: time.Minute,
	Lookup: 5 * time.Second,
	Put:    30 * time.Second,
	Delete: 10 * time.Second,
	Record: 5 * time.Second,
	Audit:  5 * time.Second,
	Notify: 10 * time.Second,
	Lock:   10 * time.Second,
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Upsert <= 0 {
		t.Upsert = DefaultTimeouts.Upsert
	}
	if t.Lookup <= 0 {
		t.Lookup = DefaultTimeouts.Lookup
	}
	if t.Put <= 0 {
		t.Put = DefaultTimeouts.Put
	}
	if t.Delete <= 0 {
		t.Delete = DefaultTimeouts.Delete
	}
	if t.Record <= 0 {
		t.Record = DefaultTimeouts.Record
	}
	if t.Audit <= 0 {
		t.Audit = DefaultTimeouts.Audit
	}
	if t.Notify <= 0 {
		t.Notify = DefaultTimeouts.Notify
	}
	if t.Lock <= 0 {
		t.Lock = DefaultTimeouts.Lock
	}
	return t
}

// UploadRequest is the input to Upload.
type UploadRequest struct {
	Data        []byte
	TenantID    string `validate:"required,max=128,excludesall=/\\,excludes=.."`
	DatasetKind string `validate:"required"`
	Metadata    UploadMetadata

	// DomainRows are projected records to upsert before the artifact is
	// written. Leave empty for artifact-only uploads.
	DomainRows  []Record
	// SourceLines holds the file line of each DomainRows entry, for errors.
	SourceLines []int
}

// UploadResult reports where an upload landed.
type UploadResult struct {
	ArtifactPath string   `json:"artifactPath"`
	ManifestPath string   `json:"manifestPath"`
	ContentHash  string   `json:"contentHash"`
	Duplicate    bool     `json:"duplicate"`
	RowsUpserted int64    `json:"rowsUpserted"`
	Manifest     Manifest `json:"manifest"`
}

// Uploader writes artifacts and manifests to a blob store and domain rows
// to a relational store.
type Uploader struct {
	blobs    blob.Store
	rows     RowStore
	digests  DigestIndex
	timeouts Timeouts
	recorder Recorder
	now      func() time.Time
	validate *validator.Validate
}

// UploaderOption customizes an Uploader.
type UploaderOption func(*Uploader)

// WithTimeouts overrides per-call deadlines.
func WithTimeouts(t Timeouts) UploaderOption {
	return func(u *Uploader) { u.timeouts = t.withDefaults() }
}

// WithRecorder sends upload measurements to r.
func WithRecorder(r Recorder) UploaderOption {
	return func(u *Uploader) {
		if r != nil {
			u.recorder = r
		}
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) UploaderOption {
	return func(u *Uploader) { u.now = now }
}

// NewUploader creates an Uploader. digests may be nil to disable duplicate
// detection.
func NewUploader(blobs blob.Store, rows RowStore, digests DigestIndex, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		blobs:    blobs,
		rows:     rows,
		digests:  digests,
		timeouts: DefaultTimeouts,
		recorder: nopRecorder{},
		now:      time.Now,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload persists req. The caller must have attached a principal with
// ContextWithPrincipal.
//
// Order of effects: domain rows, artifact, manifest, digest record. A failure
// before the artifact write leaves object storage untouched. A manifest
// failure deletes the artifact before returning.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (result *UploadResult, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			u.recorder.UploadFailed(req.DatasetKind, errorKind(err))
		} else {
			u.recorder.UploadCompleted(req.DatasetKind, result.Duplicate, time.Since(start))
		}
	}()

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, &AuthError{Reason: "no principal on upload"}
	}

	if err := u.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid upload request: %w", err)
	}
	schema, err := Lookup(req.DatasetKind)
	if err != nil {
		return nil, err
	}

	logger := logging.WithFields(ctx,
		"tenant", req.TenantID,
		"dataset", req.DatasetKind,
		"principal", principal,
	)

	var upserted int64
	if len(req.DomainRows) > 0 {
		upserted, err = u.upsertRows(ctx, schema, req)
		if err != nil {
			return nil, err
		}
	}

	hash := ContentDigest(req.Data)
	duplicate := u.isDuplicate(ctx, logger, req.TenantID, req.DatasetKind, hash)

	at := u.now().UTC()
	artifactPath, at, err := u.putArtifact(ctx, req, at)
	if err != nil {
		return nil, err
	}
	manifestPath := ManifestPath(artifactPath)

	manifest := buildManifest(req, principal, hash, artifactPath, at, duplicate)
	if err := u.putManifest(ctx, manifest, manifestPath); err != nil {
		u.compensate(ctx, logger, req.DatasetKind, artifactPath, manifestPath)
		return nil, err
	}

	rec := DigestRecord{
		TenantID:     req.TenantID,
		DatasetKind:  req.DatasetKind,
		ContentHash:  hash,
		ArtifactPath: artifactPath,
		ManifestPath: manifestPath,
		UploadedAt:   at,
	}
	if u.digests != nil {
		err := withDeadline(ctx, "digest_record", u.timeouts.Record, func(ctx context.Context) error {
			return u.digests.Record(ctx, rec)
		})
		if err != nil {
			u.recorder.BestEffortFailed("digest_record")
			logger.Warn("digest record failed", "artifact", artifactPath, "error", err)
		}
	}

	logger.Info("upload stored",
		"artifact", artifactPath,
		"content_hash", hash,
		"duplicate", duplicate,
		"rows_upserted", upserted,
	)

	return &UploadResult{
		ArtifactPath: artifactPath,
		ManifestPath: manifestPath,
		ContentHash:  hash,
		Duplicate:    duplicate,
		RowsUpserted: upserted,
		Manifest:     manifest,
	}, nil
}

// upsertRows converts records with the dataset transform and upserts them
// in one call.
func (u *Uploader) upsertRows(ctx context.Context, schema DatasetSchema, req UploadRequest) (int64, error) {
	if !schema.PersistsRows() {
		return 0, fmt.Errorf("%s: %w", schema.Name, ErrNoRelationalBinding)
	}
	if u.rows == nil {
		return 0, &PersistError{Table: schema.Table, Err: errors.New("no relational store configured")}
	}

	scope := Scope{TenantID: req.TenantID, BranchID: req.Metadata.BranchID}
	rows := make([]Row, 0, len(req.DomainRows))
	for i, rec := range req.DomainRows {
		row, err := schema.Transform(rec, scope, sourceLine(req.SourceLines, i))
		if err != nil {
			return 0, &PersistError{Table: schema.Table, Err: err}
		}
		rows = append(rows, row)
	}

	var n int64
	err := withDeadline(ctx, "upsert", u.timeouts.Upsert, func(ctx context.Context) error {
		var err error
		n, err = u.rows.Upsert(ctx, schema.Table, rows, schema.ConflictKey)
		return err
	})
	if err != nil {
		var te *TimeoutError
		if errors.As(err, &te) {
			return 0, err
		}
		return 0, &PersistError{Table: schema.Table, Err: err}
	}
	return n, nil
}

// isDuplicate consults the digest index. Lookup failures are logged and
// treated as "not seen before"; they never block the upload.
func (u *Uploader) isDuplicate(ctx context.Context, logger *slog.Logger, tenantID, kind, hash string) bool {
	if u.digests == nil {
		return false
	}
	var prior []DigestRecord
	err := withDeadline(ctx, "digest_lookup", u.timeouts.Lookup, func(ctx context.Context) error {
		var err error
		prior, err = u.digests.Lookup(ctx, tenantID, kind, hash)
		return err
	})
	if err != nil {
		u.recorder.BestEffortFailed("digest_lookup")
		logger.Warn("digest lookup failed", "content_hash", hash, "error", err)
		return false
	}
	return len(prior) > 0
}

// putArtifact writes the raw bytes at a fresh time-based path. A path
// collision moves the timestamp forward one millisecond and retries.
func (u *Uploader) putArtifact(ctx context.Context, req UploadRequest, at time.Time) (string, time.Time, error) {
	var lastErr error
	for attempt := 0; attempt < maxPathAttempts; attempt++ {
		path := ArtifactPath(req.TenantID, req.DatasetKind, at, req.Metadata.Filename)
		err := withDeadline(ctx, "artifact_put", u.timeouts.Put, func(ctx context.Context) error {
			_, err := u.blobs.Put(ctx, path, bytes.NewReader(req.Data), blob.PutOptions{
				ContentType: artifactContentType(req.Metadata),
				Metadata:    artifactMetadata(req),
			})
			return err
		})
		if err == nil {
			return path, at, nil
		}

		var te *TimeoutError
		if errors.As(err, &te) {
			return "", at, err
		}
		lastErr = &StorageError{Op: "artifact", Path: path, Err: err}
		if !errors.Is(err, blob.ErrExists) {
			return "", at, lastErr
		}
		at = at.Add(time.Millisecond)
	}
	return "", at, lastErr
}

func artifactMetadata(req UploadRequest) map[string]string {
	md := map[string]string{
		"tenant":  req.TenantID,
		"dataset": req.DatasetKind,
	}
	if req.Metadata.Encoding != "" {
		md["encoding"] = req.Metadata.Encoding
	}
	return md
}

func (u *Uploader) putManifest(ctx context.Context, m Manifest, path string) error {
	body, err := marshalManifest(m)
	if err != nil {
		return &StorageError{Op: "manifest", Path: path, Err: err}
	}
	err = withDeadline(ctx, "manifest_put", u.timeouts.Put, func(ctx context.Context) error {
		_, err := u.blobs.Put(ctx, path, bytes.NewReader(body), blob.PutOptions{ContentType: "application/json"})
		return err
	})
	if err != nil {
		var te *TimeoutError
		if errors.As(err, &te) {
			return err
		}
		return &StorageError{Op: "manifest", Path: path, Err: err}
	}
	return nil
}

// compensate deletes an artifact whose manifest could not be written. It
// runs detached from ctx so a cancelled request still cleans up.
func (u *Uploader) compensate(ctx context.Context, logger *slog.Logger, dataset, artifactPath, manifestPath string) {
	err := withDeadline(context.WithoutCancel(ctx), "artifact_delete", u.timeouts.Delete, func(ctx context.Context) error {
		_, err := u.blobs.Delete(ctx, artifactPath)
		return err
	})
	if err != nil {
		u.recorder.CompensationFailed(dataset)
		logger.Error("artifact rollback failed; orphan left for reconciliation",
			"artifact", artifactPath,
			"manifest", manifestPath,
			"error", err,
		)
	}
}
