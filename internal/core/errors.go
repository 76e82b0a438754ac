package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownDataset is returned when a dataset name is not registered.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrNoRelationalBinding is returned when domain rows are supplied for a
	// dataset that only archives artifacts.
	ErrNoRelationalBinding = errors.New("dataset has no relational binding")

	// ErrEmptyFile is returned when an upload carries no bytes.
	ErrEmptyFile = errors.New("empty file")

	// ErrIngestInProgress is returned by a Locker when another ingestion of
	// the same tenant and dataset holds the lock.
	ErrIngestInProgress = errors.New("ingestion already in progress")
)

// StructuralError reports required fields that no header could satisfy.
// It always blocks persistence.
type StructuralError struct {
	Dataset string
	Missing []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Dataset, strings.Join(e.Missing, ", "))
}

// ParseError is returned when the file cannot be decoded or tokenized.
// It is fatal for the attempt; no partial result accompanies it.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid csv: %s: %v", e.Reason, e.Err)
	}
	return "invalid csv: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// AuthError is returned before any side effect when no principal is present.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "unauthenticated: no principal"
	}
	return "unauthenticated: " + e.Reason
}

// PersistError is returned when the relational upsert is rejected.
// No artifact has been written when it is returned.
type PersistError struct {
	Table string
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Table, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// StorageError is returned when an object-store write fails.
// Op is "artifact" or "manifest".
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s write %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TimeoutError is returned when an external call exceeds its deadline.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: deadline exceeded: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// withDeadline runs fn under a timeout derived from ctx. A deadline hit is
// reported as *TimeoutError so callers can tell it apart from other failures.
func withDeadline(ctx context.Context, op string, d time.Duration, fn func(context.Context) error) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	return err
}

// errorKind classifies an error for metrics labels.
func errorKind(err error) string {
	var (
		se *StructuralError
		pe *ParseError
		ae *AuthError
		de *PersistError
		oe *StorageError
		te *TimeoutError
	)
	switch {
	case errors.As(err, &te):
		return "timeout"
	case errors.As(err, &se):
		return "structural"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &ae):
		return "auth"
	case errors.As(err, &de):
		return "persist"
	case errors.As(err, &oe):
		return "storage_" + oe.Op
	case errors.Is(err, ErrTooManyUploads), errors.Is(err, ErrIngestInProgress):
		return "busy"
	default:
		return "other"
	}
}
