package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/intake/internal/blob"
	"github.com/JonMunkholm/intake/internal/blob/memory"
)

// ----------------------------------------------------------------------------
// Test datasets
// ----------------------------------------------------------------------------

// registerTestDatasets replaces the registry with three small datasets:
// "people" (archive only), "ledger" (persists rows) and "grid" (matrix).
func registerTestDatasets(t *testing.T) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)

	Register(DatasetSchema{
		Name:     "people",
		Required: []string{"national_id", "first_name", "last_name"},
		Optional: []string{"email"},
		Aliases: map[string][]string{
			"national_id": {"id", "dni", "national id"},
			"first_name":  {"name", "nombre"},
			"last_name":   {"last name", "apellido"},
			"email":       {"email", "correo"},
		},
	})

	Register(DatasetSchema{
		Name:     "ledger",
		Required: []string{"ref", "date", "amount"},
		Aliases: map[string][]string{
			"ref":    {"ref", "reference"},
			"date":   {"date", "fecha"},
			"amount": {"amount", "importe"},
		},
		Table:       "ledger",
		ConflictKey: []string{"tenant_id", "ref"},
		Transform: func(rec Record, scope Scope, line int) (Row, error) {
			amount := ToPgNumeric(rec["amount"])
			if !amount.Valid {
				return nil, ValidationError{Line: line, Field: "amount", Value: rec["amount"], Message: "invalid number"}
			}
			return Row{
				"tenant_id": scope.TenantID,
				"branch_id": scope.BranchID,
				"ref":       rec["ref"],
				"amount":    amount,
			}, nil
		},
		TotalField: "amount",
		DateField:  "date",
	})

	Register(DatasetSchema{
		Name:     "grid",
		Required: []string{"employee", "date", "hours"},
		Aliases: map[string][]string{
			"employee": {"employee", "empleado"},
			"date":     {"date", "fecha"},
			"hours":    {"hours", "horas"},
		},
		AcceptsMatrix: true,
	})
}

// ----------------------------------------------------------------------------
// fakeStore
// ----------------------------------------------------------------------------

// fakeStore implements Store in memory with injectable failures.
type fakeStore struct {
	mu sync.Mutex

	rows    map[string][]Row
	audit   []AuditEntry
	cursors map[string]SyncCursor
	digests []DigestRecord

	upsertErr  error
	appendErr  error
	advanceErr error
	lookupErr  error
	recordErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:    make(map[string][]Row),
		cursors: make(map[string]SyncCursor),
	}
}

func (f *fakeStore) Upsert(_ context.Context, table string, rows []Row, _ []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.rows[table] = append(f.rows[table], rows...)
	return int64(len(rows)), nil
}

func (f *fakeStore) Append(_ context.Context, entry AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.audit = append(f.audit, entry)
	return nil
}

func (f *fakeStore) List(_ context.Context, tenantID string, limit int) ([]AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AuditEntry
	for i := len(f.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if f.audit[i].TenantID == tenantID {
			out = append(out, f.audit[i])
		}
	}
	return out, nil
}

func (f *fakeStore) Advance(_ context.Context, tenantID, kind string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.advanceErr != nil {
		return f.advanceErr
	}
	f.cursors[tenantID+"/"+kind] = SyncCursor{TenantID: tenantID, DatasetKind: kind, LastSyncedAt: at}
	return nil
}

func (f *fakeStore) Get(_ context.Context, tenantID, kind string) (SyncCursor, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cursors[tenantID+"/"+kind]
	return c, ok, nil
}

func (f *fakeStore) Lookup(ctx context.Context, tenantID, kind, hash string) ([]DigestRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var out []DigestRecord
	for _, d := range f.digests {
		if d.TenantID == tenantID && d.DatasetKind == kind && d.ContentHash == hash {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) Record(_ context.Context, rec DigestRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.digests = append(f.digests, rec)
	return nil
}

func (f *fakeStore) auditEntries() []AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AuditEntry(nil), f.audit...)
}

// ----------------------------------------------------------------------------
// flakyBlobs
// ----------------------------------------------------------------------------

var errInjected = errors.New("injected failure")

// flakyBlobs wraps an in-memory store and fails selected operations.
type flakyBlobs struct {
	*memory.Store

	failArtifact bool // Put of *.csv fails
	failManifest bool // Put of *.manifest.json fails
	failDelete   bool
	blockPut     bool // Put waits for ctx to end
}

func newFlakyBlobs() *flakyBlobs {
	return &flakyBlobs{Store: memory.New()}
}

func (b *flakyBlobs) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	if b.blockPut {
		<-ctx.Done()
		return blob.Info{}, ctx.Err()
	}
	if b.failManifest && strings.HasSuffix(key, ".manifest.json") {
		return blob.Info{}, fmt.Errorf("put %s: %w", key, errInjected)
	}
	if b.failArtifact && strings.HasSuffix(key, ".csv") {
		return blob.Info{}, fmt.Errorf("put %s: %w", key, errInjected)
	}
	return b.Store.Put(ctx, key, r, opts)
}

func (b *flakyBlobs) Delete(ctx context.Context, key string) (bool, error) {
	if b.failDelete {
		return false, fmt.Errorf("delete %s: %w", key, errInjected)
	}
	return b.Store.Delete(ctx, key)
}

// ----------------------------------------------------------------------------
// Recorder, locker and notifier fakes
// ----------------------------------------------------------------------------

type fakeRecorder struct {
	mu           sync.Mutex
	completed    int
	duplicates   int
	failed       map[string]int // by error kind
	bestEffort   map[string]int // by op
	compensation int
	orphans      int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{failed: make(map[string]int), bestEffort: make(map[string]int)}
}

func (r *fakeRecorder) UploadCompleted(_ string, duplicate bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
	if duplicate {
		r.duplicates++
	}
}

func (r *fakeRecorder) UploadFailed(_ string, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[kind]++
}

func (r *fakeRecorder) BestEffortFailed(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bestEffort[op]++
}

func (r *fakeRecorder) CompensationFailed(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compensation++
}

func (r *fakeRecorder) OrphansFound(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orphans += n
}

type fakeLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
	err      error
}

func (l *fakeLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []IngestEvent
	err    error
}

func (n *fakeNotifier) Publish(_ context.Context, evt IngestEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, evt)
	return nil
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// steppingClock returns a clock that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}

func principalCtx() context.Context {
	return ContextWithPrincipal(context.Background(), "ops")
}
