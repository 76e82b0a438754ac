package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
	_ "github.com/JonMunkholm/intake/internal/core/datasets"
)

func TestSchemaCoversDatasets(t *testing.T) {
	for _, ds := range core.All() {
		if !ds.PersistsRows() {
			continue
		}
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+ds.Table+" (") {
			t.Errorf("schema.sql has no table for dataset %s (%s)", ds.Name, ds.Table)
		}
	}
	for _, table := range []string{"ingest_audit", "sync_cursors", "ingest_digests"} {
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("schema.sql missing %s", table)
		}
	}
}

// openTestStore connects to INTAKE_TEST_DATABASE_URL or skips.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("INTAKE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("INTAKE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, config.DatabaseConfig{URL: url, MaxConns: 4, MinConns: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return s
}

func TestStore_CursorAndDigests(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tenant := "test-" + time.Now().Format("150405.000000")

	if _, ok, err := s.Get(ctx, tenant, "roster"); err != nil || ok {
		t.Fatalf("Get() before advance = %v, %v", ok, err)
	}
	first := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	for _, at := range []time.Time{first, second} {
		if err := s.Advance(ctx, tenant, "roster", at); err != nil {
			t.Fatalf("Advance() error = %v", err)
		}
	}
	cur, ok, err := s.Get(ctx, tenant, "roster")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if !cur.LastSyncedAt.Equal(second) {
		t.Errorf("LastSyncedAt = %v, want %v", cur.LastSyncedAt, second)
	}

	rec := core.DigestRecord{
		TenantID: tenant, DatasetKind: "roster", ContentHash: "abc",
		ArtifactPath: tenant + "/roster/a.csv", ManifestPath: tenant + "/roster/a.manifest.json",
		UploadedAt: first,
	}
	for i := 0; i < 2; i++ {
		if err := s.Record(ctx, rec); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	got, err := s.Lookup(ctx, tenant, "roster", "abc")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(got) != 1 || got[0].ArtifactPath != rec.ArtifactPath {
		t.Errorf("Lookup() = %+v, want the one recorded artifact", got)
	}
}
