package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"duplicate key", errors.New("ERROR: duplicate key value violates unique constraint"), "DB001"},
		{"unique constraint", errors.New("ERROR: unique constraint violated"), "DB002"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"case insensitive matching", errors.New("DUPLICATE KEY value violates"), "DB001"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},

		{"structural error", &StructuralError{Dataset: "roster", Missing: []string{"national_id"}}, "VAL004"},
		{"parse error", &ParseError{Reason: "tokenize", Err: errors.New("boom")}, "FILE002"},
		{"encoding error wins over invalid csv", &ParseError{Reason: "encoding error: binary content (NUL bytes)"}, "FILE003"},
		{"auth error", &AuthError{}, "AUTH001"},
		{"persist error with constraint", &PersistError{Table: "sales_daily", Err: errors.New("duplicate key value")}, "DB001"},
		{"persist error with transform failure", &PersistError{Table: "sales_daily", Err: errors.New("row 3: invalid date for 'date': \"x\"")}, "VAL001"},
		{"persist error generic", &PersistError{Table: "roster", Err: errors.New("boom")}, "DB008"},
		{"artifact storage error", &StorageError{Op: "artifact", Path: "a.csv", Err: errors.New("boom")}, "STO001"},
		{"manifest storage error", &StorageError{Op: "manifest", Path: "a.manifest.json", Err: errors.New("boom")}, "STO002"},
		{"timeout error", &TimeoutError{Op: "upsert", Err: context.DeadlineExceeded}, "UPL005"},
		{"wrapped timeout", fmt.Errorf("ingest: %w", &TimeoutError{Op: "artifact", Err: context.DeadlineExceeded}), "UPL005"},
		{"busy", ErrTooManyUploads, "UPL002"},
		{"locked", fmt.Errorf("lock intake:t1:roster: %w", ErrIngestInProgress), "UPL003"},
		{"unknown dataset", fmt.Errorf("%w: %q", ErrUnknownDataset, "invoices"), "DS001"},
		{"no relational binding", ErrNoRelationalBinding, "DS002"},
		{"empty file", ErrEmptyFile, "FILE005"},
		{"not a matrix", ErrNotMatrix, "FILE006"},
		{"missing tenant", errors.New("missing tenant: set the X-Tenant-ID header"), "REQ001"},
		{"invalid tenant", errors.New("invalid tenant: X-Tenant-ID must not contain '/', '\\' or '..'"), "REQ004"},
		{"invalid ingest request", fmt.Errorf("invalid ingest request: %w", errors.New("Filename failed on the max tag")), "REQ003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(&AuthError{})
	want := "You are not signed in (Code: AUTH001). Provide a valid API key and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("something odd"), false},
		{ErrEmptyFile, true},
		{&StorageError{Op: "manifest", Err: errors.New("x")}, true},
	}
	for _, tt := range tests {
		if got := IsUserFacing(tt.err); got != tt.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&TimeoutError{Op: "artifact", Err: context.DeadlineExceeded}, "timeout"},
		{&StructuralError{Dataset: "sales", Missing: []string{"total"}}, "structural"},
		{&ParseError{Reason: "x"}, "parse"},
		{&AuthError{}, "auth"},
		{&PersistError{Table: "t", Err: errors.New("x")}, "persist"},
		{&StorageError{Op: "manifest", Err: errors.New("x")}, "storage_manifest"},
		{fmt.Errorf("wrap: %w", ErrTooManyUploads), "busy"},
		{errors.New("x"), "other"},
	}
	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.want {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
