package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestIsTransposedMatrix(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    bool
	}{
		{"all date columns", []string{"empleado", "2025-08-01", "2025-08-02", "2025_08_05"}, true},
		{"day first slashes", []string{"id", "01/08/2025", "02/08/2025"}, true},
		{"day first dashes", []string{"id", "01-08-2025", "02-08-2025", "total"}, true},
		{"exactly half", []string{"id", "2025-08-01", "total"}, false},
		{"no dates", []string{"id", "name", "amount"}, false},
		{"year first slashes not accepted", []string{"id", "2025/08/01", "2025/08/02"}, false},
		{"whitespace around dates", []string{"id", " 2025-08-01 ", "2025-08-02"}, true},
		{"single header", []string{"2025-08-01"}, false},
		{"no headers", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransposedMatrix(tt.headers); got != tt.want {
				t.Errorf("IsTransposedMatrix(%v) = %v, want %v", tt.headers, got, tt.want)
			}
		})
	}
}

func TestMeltTransposedMatrix_SingleEntity(t *testing.T) {
	headers := []string{"empleado", "2025-08-01", "2025-08-02", "2025-08-03"}
	rows := [][]string{{"Ana", "8:30", "0", "7.25"}}

	got := MeltTransposedMatrix(rows, headers)

	if len(got.PerEntity) != 1 {
		t.Fatalf("len(PerEntity) = %d, want 1", len(got.PerEntity))
	}
	ana := got.PerEntity[0]
	if ana.EntityID != "Ana" {
		t.Errorf("EntityID = %q, want Ana", ana.EntityID)
	}
	if ana.Total != 15.75 {
		t.Errorf("Total = %v, want 15.75", ana.Total)
	}
	if ana.CountNonZero != 2 {
		t.Errorf("CountNonZero = %d, want 2", ana.CountNonZero)
	}
	wantValues := map[string]float64{"2025-08-01": 8.5, "2025-08-03": 7.25}
	if !reflect.DeepEqual(ana.Values, wantValues) {
		t.Errorf("Values = %v, want %v", ana.Values, wantValues)
	}
	if got.PeriodStart != "2025-08-01" || got.PeriodEnd != "2025-08-03" {
		t.Errorf("Period = %s..%s, want 2025-08-01..2025-08-03", got.PeriodStart, got.PeriodEnd)
	}
	if got.AggregateTotal != 15.75 || got.AggregateCount != 2 {
		t.Errorf("Aggregate = %v/%d, want 15.75/2", got.AggregateTotal, got.AggregateCount)
	}
}

func TestMeltTransposedMatrix_SortsKeysAndIgnoresOtherColumns(t *testing.T) {
	headers := []string{"id", "2025-08-03", "notes", "2025-08-01", "2025-08-02"}
	rows := [][]string{{"E1", "1", "hello", "2", "3"}}

	got := MeltTransposedMatrix(rows, headers)

	wantKeys := []string{"2025-08-01", "2025-08-02", "2025-08-03"}
	if !reflect.DeepEqual(got.ColumnKeys, wantKeys) {
		t.Errorf("ColumnKeys = %v, want %v", got.ColumnKeys, wantKeys)
	}
	if got.PerEntity[0].Total != 6 {
		t.Errorf("Total = %v, want 6", got.PerEntity[0].Total)
	}
}

func TestMeltTransposedMatrix_SkipsBadCellsAndZeroEntities(t *testing.T) {
	headers := []string{"id", "2025-08-01", "2025-08-02"}
	rows := [][]string{
		{"A", "x", "7,5"},
		{"B", "0", ""},
		{"C", "0:00", "abc"},
		{"D"},
		{},
	}

	got := MeltTransposedMatrix(rows, headers)

	if len(got.PerEntity) != 1 {
		t.Fatalf("PerEntity = %+v, want only A", got.PerEntity)
	}
	if got.PerEntity[0].EntityID != "A" || got.PerEntity[0].Total != 7.5 {
		t.Errorf("PerEntity[0] = %+v, want A with 7.5", got.PerEntity[0])
	}
}

func TestMeltTransposedMatrix_AggregateIdentity(t *testing.T) {
	headers := []string{"id", "2025-08-01", "2025-08-02", "2025-08-03"}
	rows := [][]string{
		{"A", "8:15", "7.33", "0.1"},
		{"B", "0.2", "", "9:45"},
		{"C", "1.005", "2.005", "3.005"},
		{"D", "0", "0", "0"},
	}

	got := MeltTransposedMatrix(rows, headers)

	sum := decimal.Zero
	count := 0
	for _, e := range got.PerEntity {
		sum = sum.Add(decimal.NewFromFloat(e.Total))
		count += e.CountNonZero
	}
	if !sum.Equal(decimal.NewFromFloat(got.AggregateTotal)) {
		t.Errorf("sum(PerEntity.Total) = %s, AggregateTotal = %v", sum, got.AggregateTotal)
	}
	if count != got.AggregateCount {
		t.Errorf("sum(CountNonZero) = %d, AggregateCount = %d", count, got.AggregateCount)
	}
}

func TestMeltTransposedMatrix_Empty(t *testing.T) {
	got := MeltTransposedMatrix(nil, []string{"id", "name"})

	if len(got.PerEntity) != 0 || len(got.ColumnKeys) != 0 {
		t.Errorf("MeltTransposedMatrix() = %+v, want empty", got)
	}
	if got.PeriodStart != "" || got.PeriodEnd != "" {
		t.Errorf("Period = %q..%q, want empty", got.PeriodStart, got.PeriodEnd)
	}
	if got.AverageTotal() != 0 {
		t.Errorf("AverageTotal() = %v, want 0", got.AverageTotal())
	}
}

func TestMatrixResult_AverageTotal(t *testing.T) {
	m := &MatrixResult{AggregateTotal: 15, AggregateCount: 4}
	if got := m.AverageTotal(); got != 3.75 {
		t.Errorf("AverageTotal() = %v, want 3.75", got)
	}

	var nilMatrix *MatrixResult
	if got := nilMatrix.AverageTotal(); got != 0 {
		t.Errorf("nil AverageTotal() = %v, want 0", got)
	}
}

func TestMeltFile(t *testing.T) {
	got, err := MeltFile([]byte("empleado;2025-08-01;2025-08-02\nAna;8:30;7,25\nBo;0;1\n"))
	if err != nil {
		t.Fatalf("MeltFile() error = %v", err)
	}
	if len(got.PerEntity) != 2 {
		t.Fatalf("len(PerEntity) = %d, want 2", len(got.PerEntity))
	}
	if got.PerEntity[0].EntityID != "Ana" || got.PerEntity[0].Total != 15.75 {
		t.Errorf("PerEntity[0] = %+v, want Ana with 15.75", got.PerEntity[0])
	}
	if got.PeriodStart != "2025-08-01" || got.PeriodEnd != "2025-08-02" {
		t.Errorf("period = %s..%s, want 2025-08-01..2025-08-02", got.PeriodStart, got.PeriodEnd)
	}

	if _, err := MeltFile([]byte("id,name\n1,Ana\n")); !errors.Is(err, ErrNotMatrix) {
		t.Errorf("MeltFile(plain csv) error = %v, want ErrNotMatrix", err)
	}
}
