package core

// audit.go writes the sync audit trail and the per-dataset sync cursor.
// Both writes are best-effort: a failure is logged and counted, never
// returned, so a stored artifact is not reported as a failed ingestion.

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/JonMunkholm/intake/internal/logging"
)

// DefaultAuditLimit is used when ListAudit is called with a non-positive limit.
const DefaultAuditLimit = 50

// MaxAuditLimit caps ListAudit.
const MaxAuditLimit = 500

// ErrNoStore is returned by read-back calls on a Service without a
// relational store.
var ErrNoStore = errors.New("no relational store configured")

// AppendAuditEntry appends entry to the audit log. Missing ID and CreatedAt
// are filled in.
func (s *Service) AppendAuditEntry(ctx context.Context, entry AuditEntry) {
	if s.store == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	err := withDeadline(ctx, "audit_append", s.timeouts.Audit, func(ctx context.Context) error {
		return s.store.Append(ctx, entry)
	})
	if err != nil {
		s.recorder.BestEffortFailed("audit")
		logging.FromContext(ctx).Error("audit append failed",
			"tenant", entry.TenantID,
			"dataset", entry.DatasetType,
			"outcome", entry.Outcome,
			"error", err,
		)
	}
}

// AdvanceSyncCursor records now as the last successful sync of the tenant
// and dataset.
func (s *Service) AdvanceSyncCursor(ctx context.Context, tenantID, datasetKind string) {
	if s.store == nil {
		return
	}
	at := s.now().UTC()
	err := withDeadline(ctx, "cursor_advance", s.timeouts.Audit, func(ctx context.Context) error {
		return s.store.Advance(ctx, tenantID, datasetKind, at)
	})
	if err != nil {
		s.recorder.BestEffortFailed("cursor")
		logging.FromContext(ctx).Error("sync cursor advance failed",
			"tenant", tenantID,
			"dataset", datasetKind,
			"error", err,
		)
	}
}

// ListAudit returns the newest audit entries of a tenant.
func (s *Service) ListAudit(ctx context.Context, tenantID string, limit int) ([]AuditEntry, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	switch {
	case limit <= 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}

	var entries []AuditEntry
	err := withDeadline(ctx, "audit_list", s.timeouts.Audit, func(ctx context.Context) error {
		var err error
		entries, err = s.store.List(ctx, tenantID, limit)
		return err
	})
	return entries, err
}

// GetSyncCursor returns the cursor of a tenant and dataset. ok is false when
// the pair has never synced.
func (s *Service) GetSyncCursor(ctx context.Context, tenantID, datasetKind string) (cur SyncCursor, ok bool, err error) {
	if s.store == nil {
		return SyncCursor{}, false, ErrNoStore
	}
	err = withDeadline(ctx, "cursor_get", s.timeouts.Audit, func(ctx context.Context) error {
		var err error
		cur, ok, err = s.store.Get(ctx, tenantID, datasetKind)
		return err
	})
	return cur, ok, err
}
