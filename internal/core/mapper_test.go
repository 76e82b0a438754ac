package core

import (
	"reflect"
	"testing"
)

func peopleSchema() DatasetSchema {
	return DatasetSchema{
		Name:     "people",
		Required: []string{"national_id", "first_name", "last_name"},
		Optional: []string{"role", "active"},
		Aliases: map[string][]string{
			"national_id": {"personal identification number", "dni"},
			"first_name":  {"name", "nombre"},
			"last_name":   {"lastname", "last name", "apellido"},
			"role":        {"employee rol", "rol"},
			"active":      {"active? (yes/no)", "activo"},
		},
	}
}

func TestMapColumns_ExactTier(t *testing.T) {
	headers := []string{"Personal identification number", "Name", "Lastname", "Employee Rol", "Active? (Yes/No)"}

	got := MapColumns(headers, peopleSchema())

	want := []ColumnMapping{
		{Source: "Personal identification number", Target: "national_id"},
		{Source: "Name", Target: "first_name"},
		{Source: "Lastname", Target: "last_name"},
		{Source: "Employee Rol", Target: "role"},
		{Source: "Active? (Yes/No)", Target: "active"},
	}
	if !reflect.DeepEqual(got.Mappings, want) {
		t.Errorf("Mappings = %v, want %v", got.Mappings, want)
	}
	if len(got.Missing) != 0 {
		t.Errorf("Missing = %v, want []", got.Missing)
	}
	if len(got.Unmapped) != 0 {
		t.Errorf("Unmapped = %v, want []", got.Unmapped)
	}
}

func TestMapColumns_ExactBeatsEarlierPartial(t *testing.T) {
	schema := DatasetSchema{
		Name:     "s",
		Required: []string{"first_name"},
		Aliases:  map[string][]string{"first_name": {"name"}},
	}

	got := MapColumns([]string{"Full Name", "Name"}, schema)

	if len(got.Mappings) != 1 || got.Mappings[0].Source != "Name" {
		t.Errorf("Mappings = %v, want Name -> first_name", got.Mappings)
	}
	if !reflect.DeepEqual(got.Unmapped, []string{"Full Name"}) {
		t.Errorf("Unmapped = %v, want [Full Name]", got.Unmapped)
	}
}

func TestMapColumns_PartialTier(t *testing.T) {
	schema := DatasetSchema{
		Name:     "s",
		Required: []string{"amount", "date"},
		Aliases: map[string][]string{
			"amount": {"amount"},
			"date":   {"business date"},
		},
	}

	got := MapColumns([]string{"Total Amount (USD)", "Date"}, schema)

	want := []ColumnMapping{
		{Source: "Total Amount (USD)", Target: "amount"},
		{Source: "Date", Target: "date"},
	}
	if !reflect.DeepEqual(got.Mappings, want) {
		t.Errorf("Mappings = %v, want %v", got.Mappings, want)
	}
}

func TestMapColumns_ExclusiveBinding(t *testing.T) {
	schema := DatasetSchema{
		Name:     "s",
		Required: []string{"first_name", "last_name"},
		Aliases: map[string][]string{
			"first_name": {"name"},
			"last_name":  {"last name", "name"},
		},
	}

	got := MapColumns([]string{"Name"}, schema)

	if len(got.Mappings) != 1 || got.Mappings[0].Target != "first_name" {
		t.Errorf("Mappings = %v, want only first_name", got.Mappings)
	}
	if !reflect.DeepEqual(got.Missing, []string{"last_name"}) {
		t.Errorf("Missing = %v, want [last_name]", got.Missing)
	}
}

func TestMapColumns_MissingAndUnmapped(t *testing.T) {
	got := MapColumns([]string{"foo", "Name", "bar"}, peopleSchema())

	if !reflect.DeepEqual(got.Missing, []string{"national_id", "last_name"}) {
		t.Errorf("Missing = %v, want [national_id last_name]", got.Missing)
	}
	if !reflect.DeepEqual(got.Unmapped, []string{"foo", "bar"}) {
		t.Errorf("Unmapped = %v, want [foo bar]", got.Unmapped)
	}
}

func TestMapColumns_OptionalNeverMissing(t *testing.T) {
	got := MapColumns([]string{"DNI", "Nombre", "Apellido"}, peopleSchema())

	if len(got.Missing) != 0 {
		t.Errorf("Missing = %v, want []", got.Missing)
	}
	if len(got.Mappings) != 3 {
		t.Errorf("len(Mappings) = %d, want 3", len(got.Mappings))
	}
}

func TestMapColumns_EmptyNormalizedHeaderNeverMatches(t *testing.T) {
	schema := DatasetSchema{
		Name:     "s",
		Required: []string{"name"},
		Aliases:  map[string][]string{"name": {"name"}},
	}

	got := MapColumns([]string{"???", ""}, schema)

	if len(got.Mappings) != 0 {
		t.Errorf("Mappings = %v, want none", got.Mappings)
	}
	if !reflect.DeepEqual(got.Missing, []string{"name"}) {
		t.Errorf("Missing = %v, want [name]", got.Missing)
	}
}

func TestMapColumns_FieldNameUsedWithoutAliases(t *testing.T) {
	schema := DatasetSchema{Name: "s", Optional: []string{"payment_method"}}

	got := MapColumns([]string{"Payment Method"}, schema)

	if len(got.Mappings) != 1 || got.Mappings[0].Target != "payment_method" {
		t.Errorf("Mappings = %v, want Payment Method -> payment_method", got.Mappings)
	}
}

func TestMapColumns_CoverageInvariant(t *testing.T) {
	headerSets := [][]string{
		{},
		{"Name"},
		{"Name", "Nombre", "Apellido", "DNI", "extra"},
		{"Personal identification number", "Name", "Lastname", "Employee Rol", "Active? (Yes/No)", "notes"},
		{"a", "b", "c"},
		{"name", "name_2", "last name"},
	}

	for _, headers := range headerSets {
		got := MapColumns(headers, peopleSchema())
		if n := len(got.Mappings) + len(got.Unmapped); n != len(headers) {
			t.Errorf("headers %v: len(Mappings)+len(Unmapped) = %d, want %d", headers, n, len(headers))
		}

		seenSource := make(map[string]bool)
		seenTarget := make(map[string]bool)
		for _, m := range got.Mappings {
			if seenSource[m.Source] {
				t.Errorf("headers %v: source %q bound twice", headers, m.Source)
			}
			if seenTarget[m.Target] {
				t.Errorf("headers %v: target %q bound twice", headers, m.Target)
			}
			seenSource[m.Source] = true
			seenTarget[m.Target] = true
		}
	}
}

func TestMapColumns_Deterministic(t *testing.T) {
	headers := []string{"Nombre", "Name", "Apellido", "Last Name", "DNI", "Rol"}
	first := MapColumns(headers, peopleSchema())
	for i := 0; i < 20; i++ {
		if got := MapColumns(headers, peopleSchema()); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: MapColumns = %+v, want %+v", i, got, first)
		}
	}
}

func TestMapColumns_RequiredFieldGate(t *testing.T) {
	schema := peopleSchema()
	tests := []struct {
		name        string
		headers     []string
		wantMissing bool
	}{
		{"all required present", []string{"DNI", "Nombre", "Apellido"}, false},
		{"one required absent", []string{"DNI", "Nombre"}, true},
		{"only optional", []string{"Rol", "Activo"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapColumns(tt.headers, schema)
			if (len(got.Missing) > 0) != tt.wantMissing {
				t.Errorf("Missing = %v, want missing=%v", got.Missing, tt.wantMissing)
			}
		})
	}
}
