// Package core provides the business logic for spreadsheet ingestion.
//
// This package is the heart of the intake service, containing all domain
// logic independent of any transport or storage backend. Web handlers, CLI
// tools and tests drive it through the same API.
//
// # Dataset Registry
//
// Datasets are registered at init time using [Register]. Each
// [DatasetSchema] lists its required and optional canonical fields, the
// aliases that identify them in third-party exports and, for datasets that
// persist domain rows, a table, conflict key and transform:
//
//	core.Register(core.DatasetSchema{
//	    Name:     "sales",
//	    Required: []string{"date", "total"},
//	    Aliases:  map[string][]string{"date": {"fecha"}, "total": {"importe total"}},
//	    Table:       "sales_daily",
//	    ConflictKey: []string{"tenant_id", "branch_id", "sale_date"},
//	    Transform:   salesRow,
//	})
//
// # Parsing
//
// [ParseTabular] decodes raw bytes (UTF-8, UTF-16, Windows-1252 or .xlsx),
// guesses the delimiter, maps headers onto the schema with [MapColumns] and
// validates a sample of rows. Entity-by-date exports are detected with
// [IsTransposedMatrix] and melted by [MeltTransposedMatrix]. Nothing is
// coerced to a type until a dataset transform runs.
//
// # Upload
//
// [Uploader.Upload] persists one file in a fixed order:
//
//  1. Domain rows are upserted by conflict key
//  2. The raw bytes are written create-only at a time-based artifact path
//  3. A JSON manifest carrying the SHA-256 content digest is written beside it
//  4. The digest is recorded so later uploads of the same bytes are flagged
//
// A failed manifest write deletes the artifact again. Every external call
// runs under its own deadline and reports [TimeoutError] when it expires.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB008: Database errors (duplicates, constraints, rejected upserts)
//   - VAL001-VAL004: Validation errors (formats, missing columns)
//   - FILE001-FILE006: File errors (size, encoding, format)
//   - STO001-STO003: Object storage errors
//   - UPL002-UPL005: Upload errors (busy, locked, cancelled, timeout)
//   - REQ001-REQ004: Request errors (tenant, body, metadata)
//
// # Audit Trail
//
// [Service.Ingest] appends one audit entry per attempt and advances the
// per-dataset sync cursor on success. These writes are best-effort; their
// failures go to the log and the metrics recorder.
package core
