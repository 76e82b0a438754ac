package core

import "testing"

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Active? (Yes/No)", "active_yes_no"},
		{"Personal identification number", "personal_identification_number"},
		{"  First   Name ", "first_name"},
		{"Employee_ID", "employee_id"},
		{"Período", "periodo"},
		{"Año 2024", "ano_2024"},
		{"ÉXITO", "exito"},
		{"--total--", "total"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeHeader(tt.input); got != tt.want {
				t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeHeader_Idempotent(t *testing.T) {
	inputs := []string{"Active? (Yes/No)", "Período", "Employee Rol", "a__b", "  "}
	for _, in := range inputs {
		once := NormalizeHeader(in)
		if twice := NormalizeHeader(once); twice != once {
			t.Errorf("NormalizeHeader(NormalizeHeader(%q)) = %q, want %q", in, twice, once)
		}
	}
}
