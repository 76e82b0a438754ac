package core

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// UploadMetadata describes an upload for its manifest.
type UploadMetadata struct {
	Filename   string             `json:"filename" validate:"required,max=255"`
	SourceKind string             `json:"sourceKind" validate:"required,max=64"`
	BranchID   string             `json:"branchId,omitempty" validate:"max=128"`
	RowCount   int                `json:"rowCount" validate:"gte=0"`
	ColumnList []string           `json:"columnList"`
	Period     *Period            `json:"period,omitempty"`
	Totals     map[string]float64 `json:"totals,omitempty"`

	// Encoding and ContentType describe the stored bytes. Workbooks keep
	// the .csv artifact name, so these are the only record of the format.
	Encoding    string `json:"encoding,omitempty" validate:"max=32"`
	ContentType string `json:"contentType,omitempty" validate:"max=128"`
}

func buildManifest(req UploadRequest, principal, hash, artifactPath string, at time.Time, duplicate bool) Manifest {
	cols := req.Metadata.ColumnList
	if cols == nil {
		cols = []string{}
	}
	return Manifest{
		TenantID:     req.TenantID,
		DatasetType:  req.DatasetKind,
		Filename:     req.Metadata.Filename,
		RowCount:     req.Metadata.RowCount,
		ColumnList:   cols,
		ContentHash:  hash,
		UploadedBy:   principal,
		UploadedAt:   at.UTC(),
		Period:       req.Metadata.Period,
		Totals:       req.Metadata.Totals,
		SourceKind:   req.Metadata.SourceKind,
		Encoding:     req.Metadata.Encoding,
		ContentType:  artifactContentType(req.Metadata),
		ArtifactPath: artifactPath,
		Duplicate:    duplicate,
	}
}

func marshalManifest(m Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// RecordTotals sums the named numeric fields across records.
// Unparseable and empty cells are skipped. Fields with no parseable value are omitted.
func RecordTotals(rows []Record, fields ...string) map[string]float64 {
	sums := make(map[string]decimal.Decimal, len(fields))
	for _, rec := range rows {
		for _, f := range fields {
			d, ok := ToDecimal(rec[f])
			if !ok {
				continue
			}
			sums[f] = sums[f].Add(d)
		}
	}
	if len(sums) == 0 {
		return nil
	}
	out := make(map[string]float64, len(sums))
	for f, d := range sums {
		out[f] = d.Round(2).InexactFloat64()
	}
	return out
}

// RecordPeriod returns the earliest and latest parseable date in field,
// formatted YYYY-MM-DD, or nil when no cell parses.
func RecordPeriod(rows []Record, field string) *Period {
	var dates []string
	for _, rec := range rows {
		if t, ok := ParseDate(rec[field]); ok {
			dates = append(dates, t.Format("2006-01-02"))
		}
	}
	if len(dates) == 0 {
		return nil
	}
	sort.Strings(dates)
	return &Period{Start: dates[0], End: dates[len(dates)-1]}
}

// MatrixTotals condenses a melted matrix into manifest totals.
func MatrixTotals(m *MatrixResult) map[string]float64 {
	if m == nil {
		return nil
	}
	return map[string]float64{
		"aggregateTotal": m.AggregateTotal,
		"aggregateCount": float64(m.AggregateCount),
		"averageTotal":   decimal.NewFromFloat(m.AverageTotal()).Round(2).InexactFloat64(),
		"entities":       float64(len(m.PerEntity)),
	}
}

// MatrixPeriod returns the matrix date range, or nil when it has no date columns.
func MatrixPeriod(m *MatrixResult) *Period {
	if m == nil || m.PeriodStart == "" {
		return nil
	}
	return &Period{Start: m.PeriodStart, End: m.PeriodEnd}
}
