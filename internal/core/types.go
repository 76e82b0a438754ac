package core

import "time"

// Record is one parsed spreadsheet row keyed by column name.
// Values stay strings until a dataset transform converts them.
type Record map[string]string

// Row is one domain row ready for upsert, keyed by database column.
type Row map[string]any

// Scope identifies who an ingestion belongs to.
type Scope struct {
	TenantID string
	BranchID string
}

// TransformFunc converts a projected record into a domain row.
// line is the 1-indexed source line, used in error messages.
type TransformFunc func(rec Record, scope Scope, line int) (Row, error)

// DatasetSchema describes one ingestible document type.
type DatasetSchema struct {
	Name     string              // Dataset kind: "roster", "sales", ...
	Label    string              // Display name
	Required []string            // Canonical fields that must map to a header
	Optional []string            // Canonical fields mapped when present
	Aliases  map[string][]string // Alternate spellings per canonical field

	// Relational binding. Datasets without a Table only archive artifacts.
	Table       string
	ConflictKey []string
	Transform   TransformFunc

	// TotalField names the numeric field summed into the manifest totals.
	TotalField string
	// DateField names the date field whose range becomes the manifest period.
	DateField string

	// AcceptsMatrix lets the dataset arrive as an entity-by-date grid. Only
	// such datasets are melted, and only their melted files skip the
	// required-column gate.
	AcceptsMatrix bool
}

// PersistsRows reports whether the dataset upserts domain rows.
func (d DatasetSchema) PersistsRows() bool {
	return d.Table != "" && d.Transform != nil && len(d.ConflictKey) > 0
}

// Fields returns required then optional fields in declaration order.
func (d DatasetSchema) Fields() []string {
	out := make([]string, 0, len(d.Required)+len(d.Optional))
	out = append(out, d.Required...)
	return append(out, d.Optional...)
}

// ColumnMapping binds one raw header to one canonical field.
type ColumnMapping struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// MappingResult is the output of MapColumns.
type MappingResult struct {
	Mappings []ColumnMapping `json:"mappings"`
	Unmapped []string        `json:"unmapped"`
	Missing  []string        `json:"missing"`
}

// ParseResult is the uniform output of the tabular parser.
// A non-empty Missing means the file must not be persisted.
type ParseResult struct {
	Data            []Record        `json:"data"`
	OriginalData    []Record        `json:"originalData"`
	Headers         []string        `json:"headers"`
	OriginalHeaders []string        `json:"originalHeaders"`
	Mappings        []ColumnMapping `json:"mappings"`
	Unmapped        []string        `json:"unmapped"`
	Missing         []string        `json:"missing"`
	RowCount        int             `json:"rowCount"`
	Errors          []string        `json:"errors"`

	Delimiter string        `json:"delimiter"`
	Encoding  string        `json:"encoding"`
	Matrix    *MatrixResult `json:"matrix,omitempty"`

	// Lines holds the source line of each Data row.
	Lines []int `json:"-"`
}

// Blocking reports whether structural problems prevent persistence.
// A melted matrix of a dataset that accepts one is positional and has no
// required-column gate.
func (p *ParseResult) Blocking() bool {
	return p.Matrix == nil && len(p.Missing) > 0
}

// EntityTotals is one melted row of a transposed matrix.
type EntityTotals struct {
	EntityID     string             `json:"entityId"`
	Values       map[string]float64 `json:"valuesByColumnKey"`
	Total        float64            `json:"total"`
	CountNonZero int                `json:"countNonZero"`
}

// MatrixResult is the melted form of an entity-by-date matrix export.
type MatrixResult struct {
	PerEntity      []EntityTotals `json:"perEntity"`
	ColumnKeys     []string       `json:"columnKeys"`
	PeriodStart    string         `json:"periodStart"`
	PeriodEnd      string         `json:"periodEnd"`
	AggregateTotal float64        `json:"aggregateTotal"`
	AggregateCount int            `json:"aggregateCount"`
}

// AverageTotal returns AggregateTotal per counted cell, or 0 when nothing was counted.
func (m *MatrixResult) AverageTotal() float64 {
	if m == nil || m.AggregateCount == 0 {
		return 0
	}
	return m.AggregateTotal / float64(m.AggregateCount)
}

// Period is an inclusive date range carried in manifests.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Manifest is the JSON side-record written next to every artifact.
type Manifest struct {
	TenantID     string             `json:"tenantId"`
	DatasetType  string             `json:"datasetType"`
	Filename     string             `json:"filename"`
	RowCount     int                `json:"rowCount"`
	ColumnList   []string           `json:"columnList"`
	ContentHash  string             `json:"contentHash"`
	UploadedBy   string             `json:"uploadedBy"`
	UploadedAt   time.Time          `json:"uploadedAt"`
	Period       *Period            `json:"period,omitempty"`
	Totals       map[string]float64 `json:"totals,omitempty"`
	SourceKind   string             `json:"sourceKind"`
	Encoding     string             `json:"encoding,omitempty"`
	ContentType  string             `json:"contentType"`
	ArtifactPath string             `json:"artifactPath"`
	Duplicate    bool               `json:"duplicate,omitempty"`
}

// Outcome is the result recorded in a sync audit entry.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeError   Outcome = "error"
	OutcomePending Outcome = "pending"
)

// AuditEntry is one append-only sync audit record.
type AuditEntry struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenantId"`
	DatasetType  string     `json:"datasetType"`
	SourceKind   string     `json:"sourceKind"`
	Outcome      Outcome    `json:"outcome"`
	Message      string     `json:"message"`
	ArtifactPath string     `json:"artifactPath,omitempty"`
	ManifestPath string     `json:"manifestPath,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// SyncCursor tracks the last successful ingestion per tenant and dataset.
type SyncCursor struct {
	TenantID     string    `json:"tenantId"`
	DatasetKind  string    `json:"datasetKind"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
}

// DigestRecord indexes an uploaded artifact by content digest.
type DigestRecord struct {
	TenantID     string    `json:"tenantId"`
	DatasetKind  string    `json:"datasetKind"`
	ContentHash  string    `json:"contentHash"`
	ArtifactPath string    `json:"artifactPath"`
	ManifestPath string    `json:"manifestPath"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
