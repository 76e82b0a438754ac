package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JonMunkholm/intake/internal/blob"
	"github.com/JonMunkholm/intake/internal/logging"
)

// DefaultSourceKind is recorded when an ingest request names no source.
const DefaultSourceKind = "manual"

// Service composes the parser, uploader, limiter and audit trail into one
// ingestion pipeline. It has no transport dependencies.
type Service struct {
	parser   *Parser
	uploader *Uploader
	limiter  *UploadLimiter
	store    Store
	blobs    blob.Store
	locker   Locker
	notifier Notifier
	recorder Recorder
	timeouts Timeouts
	now      func() time.Time
	validate *validator.Validate
}

// ServiceConfig holds the optional collaborators of a Service.
// Zero fields fall back to English messages, default timeouts, the default
// upload limiter and no-op lock, notifier and recorder.
type ServiceConfig struct {
	Locale   Locale
	Timeouts Timeouts
	Limiter  *UploadLimiter
	Locker   Locker
	Notifier Notifier
	Recorder Recorder
	Now      func() time.Time
}

// NewService creates a Service. store backs domain rows, audit entries,
// sync cursors and the digest index; blobs holds artifacts and manifests.
func NewService(store Store, blobs blob.Store, cfg ServiceConfig) *Service {
	s := &Service{
		parser:   NewParser(cfg.Locale),
		limiter:  cfg.Limiter,
		store:    store,
		blobs:    blobs,
		locker:   cfg.Locker,
		notifier: cfg.Notifier,
		recorder: cfg.Recorder,
		timeouts: cfg.Timeouts.withDefaults(),
		now:      cfg.Now,
		validate: validator.New(),
	}
	if s.parser.Locale == "" {
		s.parser.Locale = LocaleEN
	}
	if s.limiter == nil {
		s.limiter = NewUploadLimiter(0, 0)
	}
	if s.locker == nil {
		s.locker = nopLocker{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	var rows RowStore
	var digests DigestIndex
	if store != nil {
		rows, digests = store, store
	}
	s.uploader = NewUploader(blobs, rows, digests,
		WithTimeouts(s.timeouts),
		WithRecorder(s.recorder),
		WithClock(s.now),
	)
	return s
}

// Uploader returns the uploader used by Ingest.
func (s *Service) Uploader() *Uploader { return s.uploader }

// Limiter returns the upload limiter, for draining on shutdown.
func (s *Service) Limiter() *UploadLimiter { return s.limiter }

// ListDatasets returns every registered dataset.
func (s *Service) ListDatasets() []DatasetSchema {
	return All()
}

// Parse runs the tabular parser without persisting anything.
func (s *Service) Parse(data []byte, dataset string) (*ParseResult, error) {
	return s.parser.Parse(data, dataset)
}

// IngestRequest is one file handed to Ingest.
type IngestRequest struct {
	TenantID    string `validate:"required,max=128,excludesall=/\\,excludes=.."`
	BranchID    string `validate:"max=128"`
	DatasetKind string `validate:"required"`
	Filename    string `validate:"required,max=255"`
	SourceKind  string `validate:"omitempty,max=64"`
	Data        []byte
}

// IngestResult reports a completed ingestion.
type IngestResult struct {
	AuditID string        `json:"auditId"`
	Parse   *ParseResult  `json:"parse"`
	Upload  *UploadResult `json:"upload"`
}

// Ingest parses req.Data, rejects structurally incomplete files and stores
// the rest through the uploader. The audit entry, sync cursor and event are
// written afterwards and never fail the call.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if _, ok := PrincipalFromContext(ctx); !ok {
		err := &AuthError{Reason: "no principal on ingest"}
		s.recorder.UploadFailed(req.DatasetKind, errorKind(err))
		return nil, err
	}
	if req.SourceKind == "" {
		req.SourceKind = DefaultSourceKind
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid ingest request: %w", err)
	}
	if len(req.Data) == 0 {
		return nil, ErrEmptyFile
	}
	schema, err := Lookup(req.DatasetKind)
	if err != nil {
		return nil, err
	}

	started := s.now().UTC()
	logger := logging.WithFields(ctx,
		"tenant", req.TenantID,
		"dataset", req.DatasetKind,
		"filename", req.Filename,
		"source", req.SourceKind,
		"client_ip", GetIPAddressFromContext(ctx),
		"user_agent", GetUserAgentFromContext(ctx),
	)

	parsed, err := s.parser.Parse(req.Data, req.DatasetKind)
	if err != nil {
		return nil, s.reject(ctx, logger, req, started, err)
	}
	if parsed.Blocking() {
		err := &StructuralError{Dataset: req.DatasetKind, Missing: parsed.Missing}
		return nil, s.reject(ctx, logger, req, started, err)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, s.reject(ctx, logger, req, started, err)
	}
	defer s.limiter.Release()

	release, err := s.lock(ctx, req)
	if err != nil {
		return nil, s.reject(ctx, logger, req, started, err)
	}
	defer release()

	upReq := UploadRequest{
		Data:        req.Data,
		TenantID:    req.TenantID,
		DatasetKind: req.DatasetKind,
		Metadata:    uploadMetadata(req, schema, parsed),
	}
	if schema.PersistsRows() && parsed.Matrix == nil {
		upReq.DomainRows = parsed.Data
		upReq.SourceLines = parsed.Lines
	}

	result, err := s.uploader.Upload(ctx, upReq)
	if err != nil {
		s.AppendAuditEntry(ctx, s.auditEntry(req, started, OutcomeError, err.Error(), nil))
		return nil, err
	}

	entry := s.auditEntry(req, started, OutcomeOK, successMessage(parsed, result), result)
	s.AppendAuditEntry(ctx, entry)
	s.AdvanceSyncCursor(ctx, req.TenantID, req.DatasetKind)
	s.publish(ctx, logger, IngestEvent{
		TenantID:     req.TenantID,
		DatasetKind:  req.DatasetKind,
		ArtifactPath: result.ArtifactPath,
		ManifestPath: result.ManifestPath,
		ContentHash:  result.ContentHash,
		RowCount:     parsed.RowCount,
		Duplicate:    result.Duplicate,
		OccurredAt:   s.now().UTC(),
	})

	return &IngestResult{AuditID: entry.ID, Parse: parsed, Upload: result}, nil
}

// reject records a failure that happened before the uploader ran.
func (s *Service) reject(ctx context.Context, logger *slog.Logger, req IngestRequest, started time.Time, err error) error {
	s.recorder.UploadFailed(req.DatasetKind, errorKind(err))
	logger.Warn("ingest rejected", "error", err)
	s.AppendAuditEntry(ctx, s.auditEntry(req, started, OutcomeError, err.Error(), nil))
	return err
}

// lock serializes ingestions of the same tenant and dataset.
func (s *Service) lock(ctx context.Context, req IngestRequest) (func(), error) {
	var release func()
	err := withDeadline(ctx, "lock", s.timeouts.Lock, func(ctx context.Context) error {
		var err error
		release, err = s.locker.Lock(ctx, LockKey(req.TenantID, req.DatasetKind))
		return err
	})
	if err != nil {
		return nil, err
	}
	return release, nil
}

// LockKey is the distributed lock key for one tenant and dataset.
func LockKey(tenantID, datasetKind string) string {
	return "intake:" + tenantID + ":" + datasetKind
}

func (s *Service) publish(ctx context.Context, logger *slog.Logger, evt IngestEvent) {
	err := withDeadline(ctx, "notify", s.timeouts.Notify, func(ctx context.Context) error {
		return s.notifier.Publish(ctx, evt)
	})
	if err != nil {
		s.recorder.BestEffortFailed("notify")
		logger.Warn("ingest event not published", "artifact", evt.ArtifactPath, "error", err)
	}
}

func (s *Service) auditEntry(req IngestRequest, started time.Time, outcome Outcome, msg string, res *UploadResult) AuditEntry {
	finished := s.now().UTC()
	entry := AuditEntry{
		ID:          uuid.NewString(),
		TenantID:    req.TenantID,
		DatasetType: req.DatasetKind,
		SourceKind:  req.SourceKind,
		Outcome:     outcome,
		Message:     msg,
		FinishedAt:  &finished,
		CreatedAt:   started,
	}
	if res != nil {
		entry.ArtifactPath = res.ArtifactPath
		entry.ManifestPath = res.ManifestPath
	}
	return entry
}

func successMessage(parsed *ParseResult, res *UploadResult) string {
	msg := fmt.Sprintf("%d rows ingested", parsed.RowCount)
	if res.RowsUpserted > 0 {
		msg += fmt.Sprintf(", %d upserted", res.RowsUpserted)
	}
	if res.Duplicate {
		msg += ", duplicate content"
	}
	if n := len(parsed.Errors); n > 0 {
		msg += fmt.Sprintf(", %d warnings", n)
	}
	return msg
}

// uploadMetadata derives the manifest fields from a parse.
func uploadMetadata(req IngestRequest, schema DatasetSchema, parsed *ParseResult) UploadMetadata {
	meta := UploadMetadata{
		Filename:    req.Filename,
		SourceKind:  req.SourceKind,
		BranchID:    req.BranchID,
		RowCount:    parsed.RowCount,
		ColumnList:  parsed.Headers,
		Encoding:    parsed.Encoding,
		ContentType: ContentTypeFor(parsed.Encoding),
	}
	if parsed.Matrix != nil {
		meta.Period = MatrixPeriod(parsed.Matrix)
		meta.Totals = MatrixTotals(parsed.Matrix)
		return meta
	}
	if schema.TotalField != "" {
		meta.Totals = RecordTotals(parsed.Data, schema.TotalField)
	}
	if schema.DateField != "" {
		meta.Period = RecordPeriod(parsed.Data, schema.DateField)
	}
	return meta
}

// Drain waits for in-flight ingestions to finish or for ctx to end.
func (s *Service) Drain(ctx context.Context) error {
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("drain: %d uploads still active: %w", s.limiter.ActiveCount(), err)
	}
	return nil
}
