// Package sqlite implements core.Store on a single SQLite file using the
// pure Go modernc.org/sqlite driver. It suits single-node deployments and
// local runs; multi-instance deployments use postgres.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed width so stored timestamps order correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a core.Store backed by one SQLite database file.
type Store struct {
	db *sql.DB
}

var _ core.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "intake.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL", "PRAGMA foreign_keys = ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database handle, for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Upsert writes rows in one transaction.
func (s *Store) Upsert(ctx context.Context, table string, rows []core.Row, conflictKey []string) (n int64, retErr error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := store.Columns(rows)
	query, err := store.UpsertSQL(store.Question, table, cols, conflictKey)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range rows {
		res, err := stmt.ExecContext(ctx, store.Args(row, cols)...)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Append inserts one audit entry.
func (s *Store) Append(ctx context.Context, e core.AuditEntry) error {
	var finished sql.NullString
	if e.FinishedAt != nil {
		finished = sql.NullString{String: formatTime(*e.FinishedAt), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_audit
			(id, tenant_id, dataset_type, source_kind, outcome, message,
			 artifact_path, manifest_path, finished_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.DatasetType, e.SourceKind, string(e.Outcome), e.Message,
		nullString(e.ArtifactPath), nullString(e.ManifestPath), finished, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns the newest entries of a tenant.
func (s *Store) List(ctx context.Context, tenantID string, limit int) ([]core.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, dataset_type, source_kind, outcome, message,
		       artifact_path, manifest_path, finished_at, created_at
		FROM ingest_audit
		WHERE tenant_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		tenantID, store.AuditLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []core.AuditEntry{}
	for rows.Next() {
		var (
			e                              core.AuditEntry
			outcome, created               string
			artifactPath, manifest, finish sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.DatasetType, &e.SourceKind, &outcome, &e.Message,
			&artifactPath, &manifest, &finish, &created); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Outcome = core.Outcome(outcome)
		e.ArtifactPath = artifactPath.String
		e.ManifestPath = manifest.String
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if finish.Valid {
			t, err := parseTime(finish.String)
			if err != nil {
				return nil, err
			}
			e.FinishedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Advance moves the cursor of a tenant and dataset to at.
func (s *Store) Advance(ctx context.Context, tenantID, datasetKind string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_cursors (tenant_id, dataset_kind, last_synced_at)
		VALUES (?, ?, ?)
		ON CONFLICT (tenant_id, dataset_kind) DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at`,
		tenantID, datasetKind, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	return nil
}

// Get returns the cursor of a tenant and dataset.
func (s *Store) Get(ctx context.Context, tenantID, datasetKind string) (core.SyncCursor, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT last_synced_at FROM sync_cursors
		WHERE tenant_id = ? AND dataset_kind = ?`,
		tenantID, datasetKind,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SyncCursor{}, false, nil
	}
	if err != nil {
		return core.SyncCursor{}, false, fmt.Errorf("get cursor: %w", err)
	}
	at, err := parseTime(raw)
	if err != nil {
		return core.SyncCursor{}, false, err
	}
	return core.SyncCursor{TenantID: tenantID, DatasetKind: datasetKind, LastSyncedAt: at}, true, nil
}

// Lookup returns earlier uploads with the same content digest, oldest first.
func (s *Store) Lookup(ctx context.Context, tenantID, datasetKind, contentHash string) ([]core.DigestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, dataset_kind, content_hash, artifact_path, manifest_path, uploaded_at
		FROM ingest_digests
		WHERE tenant_id = ? AND dataset_kind = ? AND content_hash = ?
		ORDER BY uploaded_at`,
		tenantID, datasetKind, contentHash,
	)
	if err != nil {
		return nil, fmt.Errorf("query digests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.DigestRecord
	for rows.Next() {
		var (
			d        core.DigestRecord
			uploaded string
		)
		if err := rows.Scan(&d.TenantID, &d.DatasetKind, &d.ContentHash, &d.ArtifactPath, &d.ManifestPath, &uploaded); err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		if d.UploadedAt, err = parseTime(uploaded); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Record indexes an artifact by digest. Recording the same artifact twice is a no-op.
func (s *Store) Record(ctx context.Context, d core.DigestRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_digests
			(tenant_id, dataset_kind, content_hash, artifact_path, manifest_path, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		d.TenantID, d.DatasetKind, d.ContentHash, d.ArtifactPath, d.ManifestPath, formatTime(d.UploadedAt),
	)
	if err != nil {
		return fmt.Errorf("record digest: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
