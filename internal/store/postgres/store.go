// Package postgres implements core.Store on PostgreSQL through pgxpool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// batchSize bounds the statements queued per pgx.Batch round trip.
const batchSize = 500

// Store is a core.Store backed by a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// Open parses cfg.URL, applies the pool limits and pings the server.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity, for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the ingestion and domain tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Upsert writes rows in one transaction. Any failing row rolls back all of them.
func (s *Store) Upsert(ctx context.Context, table string, rows []core.Row, conflictKey []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := store.Columns(rows)
	stmt, err := store.UpsertSQL(store.Dollar, table, cols, conflictKey)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	var affected int64
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))

		batch := &pgx.Batch{}
		for _, row := range rows[start:end] {
			batch.Queue(stmt, store.Args(row, cols)...)
		}

		n, err := execBatch(ctx, tx, batch, start)
		if err != nil {
			return 0, err
		}
		affected += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return affected, nil
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, offset int) (int64, error) {
	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	var affected int64
	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", offset+i+1, err)
		}
		affected += tag.RowsAffected()
	}
	return affected, nil
}

// Append inserts one audit entry.
func (s *Store) Append(ctx context.Context, e core.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_audit
			(id, tenant_id, dataset_type, source_kind, outcome, message,
			 artifact_path, manifest_path, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.TenantID, e.DatasetType, e.SourceKind, string(e.Outcome), e.Message,
		nullText(e.ArtifactPath), nullText(e.ManifestPath), e.FinishedAt, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns the newest entries of a tenant.
func (s *Store) List(ctx context.Context, tenantID string, limit int) ([]core.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, dataset_type, source_kind, outcome, message,
		       artifact_path, manifest_path, finished_at, created_at
		FROM ingest_audit
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		tenantID, store.AuditLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	entries := []core.AuditEntry{}
	for rows.Next() {
		var (
			e                      core.AuditEntry
			outcome                string
			artifactPath, manifest pgtype.Text
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.DatasetType, &e.SourceKind, &outcome, &e.Message,
			&artifactPath, &manifest, &e.FinishedAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Outcome = core.Outcome(outcome)
		e.ArtifactPath = artifactPath.String
		e.ManifestPath = manifest.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Advance moves the cursor of a tenant and dataset to at.
func (s *Store) Advance(ctx context.Context, tenantID, datasetKind string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_cursors (tenant_id, dataset_kind, last_synced_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, dataset_kind) DO UPDATE SET last_synced_at = EXCLUDED.last_synced_at`,
		tenantID, datasetKind, at,
	)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	return nil
}

// Get returns the cursor of a tenant and dataset.
func (s *Store) Get(ctx context.Context, tenantID, datasetKind string) (core.SyncCursor, bool, error) {
	cur := core.SyncCursor{TenantID: tenantID, DatasetKind: datasetKind}
	err := s.pool.QueryRow(ctx, `
		SELECT last_synced_at FROM sync_cursors
		WHERE tenant_id = $1 AND dataset_kind = $2`,
		tenantID, datasetKind,
	).Scan(&cur.LastSyncedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.SyncCursor{}, false, nil
	}
	if err != nil {
		return core.SyncCursor{}, false, fmt.Errorf("get cursor: %w", err)
	}
	return cur, true, nil
}

// Lookup returns earlier uploads with the same content digest, oldest first.
func (s *Store) Lookup(ctx context.Context, tenantID, datasetKind, contentHash string) ([]core.DigestRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tenant_id, dataset_kind, content_hash, artifact_path, manifest_path, uploaded_at
		FROM ingest_digests
		WHERE tenant_id = $1 AND dataset_kind = $2 AND content_hash = $3
		ORDER BY uploaded_at`,
		tenantID, datasetKind, contentHash,
	)
	if err != nil {
		return nil, fmt.Errorf("query digests: %w", err)
	}
	defer rows.Close()

	var out []core.DigestRecord
	for rows.Next() {
		var d core.DigestRecord
		if err := rows.Scan(&d.TenantID, &d.DatasetKind, &d.ContentHash, &d.ArtifactPath, &d.ManifestPath, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Record indexes an artifact by digest. Recording the same artifact twice is a no-op.
func (s *Store) Record(ctx context.Context, d core.DigestRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_digests
			(tenant_id, dataset_kind, content_hash, artifact_path, manifest_path, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`,
		d.TenantID, d.DatasetKind, d.ContentHash, d.ArtifactPath, d.ManifestPath, d.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("record digest: %w", err)
	}
	return nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
