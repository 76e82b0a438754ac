package core

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRecordTotals(t *testing.T) {
	rows := []Record{
		{"amount": "1.234,50", "qty": "2"},
		{"amount": "100", "qty": ""},
		{"amount": "abc", "qty": "3"},
		{"amount": "0,25"},
	}

	got := RecordTotals(rows, "amount", "qty", "missing")
	want := map[string]float64{"amount": 1334.75, "qty": 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RecordTotals() = %v, want %v", got, want)
	}
}

func TestRecordTotals_NothingParseable(t *testing.T) {
	rows := []Record{{"amount": ""}, {"amount": "n/a"}}
	if got := RecordTotals(rows, "amount"); got != nil {
		t.Errorf("RecordTotals() = %v, want nil", got)
	}
}

func TestRecordPeriod(t *testing.T) {
	rows := []Record{
		{"date": "15/08/2025"},
		{"date": "2025-08-02"},
		{"date": ""},
		{"date": "not a date"},
		{"date": "31/07/2025"},
	}

	got := RecordPeriod(rows, "date")
	if got == nil {
		t.Fatal("RecordPeriod() = nil, want a period")
	}
	if got.Start != "2025-07-31" || got.End != "2025-08-15" {
		t.Errorf("RecordPeriod() = %+v, want 2025-07-31..2025-08-15", *got)
	}

	if p := RecordPeriod([]Record{{"date": "x"}}, "date"); p != nil {
		t.Errorf("RecordPeriod(no dates) = %+v, want nil", *p)
	}
}

func TestMatrixTotalsAndPeriod(t *testing.T) {
	m := &MatrixResult{
		PerEntity:      []EntityTotals{{EntityID: "A"}, {EntityID: "B"}},
		PeriodStart:    "2025-08-01",
		PeriodEnd:      "2025-08-03",
		AggregateTotal: 10,
		AggregateCount: 3,
	}

	totals := MatrixTotals(m)
	want := map[string]float64{
		"aggregateTotal": 10,
		"aggregateCount": 3,
		"averageTotal":   3.33,
		"entities":       2,
	}
	if !reflect.DeepEqual(totals, want) {
		t.Errorf("MatrixTotals() = %v, want %v", totals, want)
	}

	p := MatrixPeriod(m)
	if p == nil || p.Start != "2025-08-01" || p.End != "2025-08-03" {
		t.Errorf("MatrixPeriod() = %v, want 2025-08-01..2025-08-03", p)
	}

	if MatrixTotals(nil) != nil {
		t.Error("MatrixTotals(nil) should be nil")
	}
	if MatrixPeriod(&MatrixResult{}) != nil {
		t.Error("MatrixPeriod(no columns) should be nil")
	}
}

func TestBuildManifest(t *testing.T) {
	at := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	req := UploadRequest{
		TenantID:    "t1",
		DatasetKind: "sales",
		Metadata: UploadMetadata{
			Filename:   "ventas.csv",
			SourceKind: "manual",
			RowCount:   3,
		},
	}

	m := buildManifest(req, "ops", "abc123", "t1/sales/2025/08/1-ventas.csv", at, false)

	if m.ColumnList == nil || len(m.ColumnList) != 0 {
		t.Errorf("ColumnList = %#v, want empty non-nil slice", m.ColumnList)
	}
	if m.UploadedBy != "ops" || m.ContentHash != "abc123" || m.TenantID != "t1" {
		t.Errorf("buildManifest() = %+v", m)
	}

	data, err := marshalManifest(m)
	if err != nil {
		t.Fatalf("marshalManifest() error = %v", err)
	}
	for _, key := range []string{`"tenantId"`, `"datasetType"`, `"rowCount"`, `"columnList": []`, `"contentHash"`, `"uploadedBy"`, `"uploadedAt"`, `"sourceKind"`, `"artifactPath"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("manifest JSON missing %s:\n%s", key, data)
		}
	}
	for _, key := range []string{`"period"`, `"totals"`, `"duplicate"`} {
		if strings.Contains(string(data), key) {
			t.Errorf("manifest JSON should omit %s:\n%s", key, data)
		}
	}

	var back Manifest
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !back.UploadedAt.Equal(at) {
		t.Errorf("UploadedAt = %v, want %v", back.UploadedAt, at)
	}
}
