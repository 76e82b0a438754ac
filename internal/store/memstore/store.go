// Package memstore implements core.Store in process memory. It backs
// DATABASE_DRIVER=memory and the HTTP tests; nothing survives a restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/store"
)

type cursorKey struct {
	tenant, kind string
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	tables  map[string]map[string]core.Row // table -> conflict key -> row
	audit   []core.AuditEntry
	cursors map[cursorKey]time.Time
	digests []core.DigestRecord
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		tables:  make(map[string]map[string]core.Row),
		cursors: make(map[cursorKey]time.Time),
	}
}

func (s *Store) Upsert(_ context.Context, table string, rows []core.Row, conflictKey []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	// Validate the same way the SQL drivers do.
	if _, err := store.UpsertSQL(store.Dollar, table, store.Columns(rows), conflictKey); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		t = make(map[string]core.Row)
		s.tables[table] = t
	}
	for _, r := range rows {
		cp := make(core.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		t[store.KeyOf(r, conflictKey)] = cp
	}
	return int64(len(rows)), nil
}

// Rows returns a copy of a table's rows in key order.
func (s *Store) Rows(table string) []core.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.tables[table]))
	for k := range s.tables[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]core.Row, len(keys))
	for i, k := range keys {
		out[i] = s.tables[table][k]
	}
	return out
}

func (s *Store) Append(_ context.Context, e core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// List returns the newest entries of a tenant.
func (s *Store) List(_ context.Context, tenantID string, limit int) ([]core.AuditEntry, error) {
	limit = store.AuditLimit(limit)

	s.mu.RLock()
	var matched []core.AuditEntry
	for _, e := range s.audit {
		if e.TenantID == tenantID {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	// Stable keeps insertion order among equal timestamps; reverse after.
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	out := make([]core.AuditEntry, 0, min(limit, len(matched)))
	for i := len(matched) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, matched[i])
	}
	return out, nil
}

func (s *Store) Advance(_ context.Context, tenantID, datasetKind string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[cursorKey{tenantID, datasetKind}] = at
	return nil
}

func (s *Store) Get(_ context.Context, tenantID, datasetKind string) (core.SyncCursor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.cursors[cursorKey{tenantID, datasetKind}]
	if !ok {
		return core.SyncCursor{}, false, nil
	}
	return core.SyncCursor{TenantID: tenantID, DatasetKind: datasetKind, LastSyncedAt: at}, true, nil
}

func (s *Store) Lookup(_ context.Context, tenantID, datasetKind, contentHash string) ([]core.DigestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.DigestRecord
	for _, d := range s.digests {
		if d.TenantID == tenantID && d.DatasetKind == datasetKind && d.ContentHash == contentHash {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *Store) Record(_ context.Context, rec core.DigestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.digests {
		if d.TenantID == rec.TenantID && d.DatasetKind == rec.DatasetKind &&
			d.ContentHash == rec.ContentHash && d.ArtifactPath == rec.ArtifactPath {
			return nil
		}
	}
	s.digests = append(s.digests, rec)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
