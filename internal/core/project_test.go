package core

import (
	"reflect"
	"testing"
)

func TestProjectRows(t *testing.T) {
	mappings := []ColumnMapping{
		{Source: "Nombre", Target: "first_name"},
		{Source: "DNI", Target: "national_id"},
	}
	rows := []Record{
		{"Nombre": "Ana", "DNI": "123", "Notas": "vip"},
		{"Nombre": "Bo", "DNI": "456"},
	}

	got := ProjectRows(rows, mappings)

	want := []Record{
		{"first_name": "Ana", "national_id": "123", "Notas": "vip"},
		{"first_name": "Bo", "national_id": "456"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ProjectRows() = %v, want %v", got, want)
	}
}

func TestProjectRows_TargetWinsOverPassThrough(t *testing.T) {
	mappings := []ColumnMapping{{Source: "Nombre", Target: "first_name"}}
	rows := []Record{{"Nombre": "Ana", "first_name": "stale"}}

	got := ProjectRows(rows, mappings)

	if got[0]["first_name"] != "Ana" {
		t.Errorf("first_name = %q, want %q", got[0]["first_name"], "Ana")
	}
	if _, ok := got[0]["Nombre"]; ok {
		t.Error("consumed source Nombre should not pass through")
	}
}

func TestProjectRows_Empty(t *testing.T) {
	got := ProjectRows(nil, nil)
	if len(got) != 0 {
		t.Errorf("ProjectRows(nil) = %v, want empty", got)
	}
}
