package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/intake/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "intake.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Upsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := []string{"tenant_id", "national_id"}

	row := func(id, first string) core.Row {
		return core.Row{
			"tenant_id":   "t1",
			"national_id": pgtype.Text{String: id, Valid: true},
			"first_name":  pgtype.Text{String: first, Valid: true},
			"last_name":   pgtype.Text{String: "Diaz", Valid: true},
			"active":      pgtype.Bool{Bool: true, Valid: true},
			"hire_date":   pgtype.Date{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Valid: true},
			"email":       pgtype.Text{},
		}
	}

	n, err := s.Upsert(ctx, "roster", []core.Row{row("1", "Ana"), row("2", "Bo")}, key)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Upsert() = %d, want 2", n)
	}

	// Same keys again: updated in place, not duplicated.
	if _, err := s.Upsert(ctx, "roster", []core.Row{row("1", "Anabel")}, key); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roster`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}
	var first string
	if err := s.db.QueryRowContext(ctx, `SELECT first_name FROM roster WHERE national_id = '1'`).Scan(&first); err != nil {
		t.Fatal(err)
	}
	if first != "Anabel" {
		t.Errorf("first_name = %q, want Anabel", first)
	}
}

func TestStore_UpsertIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []core.Row{
		{"tenant_id": "t1", "branch_id": "b1", "sale_date": "2025-08-01", "total": "10"},
		{"tenant_id": "t1", "branch_id": "b1", "sale_date": "2025-08-02", "total": nil}, // NOT NULL violation
	}
	if _, err := s.Upsert(ctx, "sales_daily", rows, []string{"tenant_id", "branch_id", "sale_date"}); err == nil {
		t.Fatal("Upsert() error = nil, want constraint violation")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales_daily`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("row count = %d, want 0 after rollback", count)
	}
}

func TestStore_Audit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	finished := base.Add(2 * time.Second)
	entries := []core.AuditEntry{
		{ID: "a", TenantID: "t1", DatasetType: "roster", SourceKind: "manual", Outcome: core.OutcomeOK, CreatedAt: base, FinishedAt: &finished, ArtifactPath: "t1/roster/x.csv"},
		{ID: "b", TenantID: "t1", DatasetType: "roster", SourceKind: "manual", Outcome: core.OutcomeError, Message: "boom", CreatedAt: base.Add(time.Minute)},
		{ID: "c", TenantID: "t2", DatasetType: "sales", SourceKind: "api", Outcome: core.OutcomeOK, CreatedAt: base},
	}
	for _, e := range entries {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s) error = %v", e.ID, err)
		}
	}

	got, err := s.List(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(List) = %d, want 2", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("order = %s, %s; want newest first", got[0].ID, got[1].ID)
	}
	if got[0].FinishedAt != nil || got[0].Message != "boom" || got[0].Outcome != core.OutcomeError {
		t.Errorf("entry b = %+v", got[0])
	}
	if got[1].FinishedAt == nil || !got[1].FinishedAt.Equal(finished) {
		t.Errorf("entry a FinishedAt = %v, want %v", got[1].FinishedAt, finished)
	}
	if got[1].ArtifactPath != "t1/roster/x.csv" || !got[1].CreatedAt.Equal(base) {
		t.Errorf("entry a = %+v", got[1])
	}

	limited, _ := s.List(ctx, "t1", 1)
	if len(limited) != 1 {
		t.Errorf("len(List limit 1) = %d, want 1", len(limited))
	}
}

func TestStore_Cursor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "t1", "roster"); err != nil || ok {
		t.Fatalf("Get() before advance = %v, %v", ok, err)
	}

	at := time.Date(2025, 8, 1, 12, 0, 0, 123, time.UTC)
	later := at.Add(time.Hour)
	if err := s.Advance(ctx, "t1", "roster", at); err != nil {
		t.Fatal(err)
	}
	if err := s.Advance(ctx, "t1", "roster", later); err != nil {
		t.Fatal(err)
	}

	cur, ok, err := s.Get(ctx, "t1", "roster")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if !cur.LastSyncedAt.Equal(later) {
		t.Errorf("LastSyncedAt = %v, want %v", cur.LastSyncedAt, later)
	}
}

func TestStore_Digests(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	recs := []core.DigestRecord{
		{TenantID: "t1", DatasetKind: "sales", ContentHash: "h", ArtifactPath: "p2", ManifestPath: "m2", UploadedAt: at.Add(time.Second)},
		{TenantID: "t1", DatasetKind: "sales", ContentHash: "h", ArtifactPath: "p1", ManifestPath: "m1", UploadedAt: at},
		{TenantID: "t1", DatasetKind: "sales", ContentHash: "h", ArtifactPath: "p1", ManifestPath: "m1", UploadedAt: at},
		{TenantID: "t2", DatasetKind: "sales", ContentHash: "h", ArtifactPath: "p3", ManifestPath: "m3", UploadedAt: at},
	}
	for _, r := range recs {
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := s.Lookup(ctx, "t1", "sales", "h")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(got) != 2 || got[0].ArtifactPath != "p1" || got[1].ArtifactPath != "p2" {
		t.Errorf("Lookup() = %+v, want p1 then p2", got)
	}

	none, err := s.Lookup(ctx, "t1", "sales", "other")
	if err != nil || len(none) != 0 {
		t.Errorf("Lookup(other) = %v, %v; want empty", none, err)
	}
}
