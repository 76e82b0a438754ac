package core

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateSample_EmptyRows(t *testing.T) {
	tests := []struct {
		locale Locale
		want   []string
	}{
		{LocaleES, []string{"El archivo está vacío"}},
		{LocaleEN, []string{"file is empty"}},
		{Locale("fr"), []string{"file is empty"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.locale), func(t *testing.T) {
			got := ValidateSample(nil, peopleSchema(), tt.locale)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ValidateSample(nil) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateSample_ReportsEmptyRequired(t *testing.T) {
	rows := []Record{
		{"national_id": "1", "first_name": "Ana", "last_name": "Diaz"},
		{"national_id": "", "first_name": "Bo", "last_name": "Cruz"},
		{"national_id": "3", "first_name": " ", "last_name": "Lee"},
	}

	got := ValidateSample(rows, peopleSchema(), LocaleEN)

	want := []string{
		"Row 3: required field 'national_id' is empty",
		"Row 4: required field 'first_name' is empty",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ValidateSample() = %v, want %v", got, want)
	}
}

func TestValidateSample_RollsUpAfterThree(t *testing.T) {
	rows := make([]Record, 6)
	for i := range rows {
		rows[i] = Record{"national_id": "", "first_name": "x", "last_name": "y"}
	}

	got := ValidateSample(rows, peopleSchema(), LocaleEN)

	if len(got) != 4 {
		t.Fatalf("len(issues) = %d, want 4: %v", len(got), got)
	}
	if got[3] != "...and 3 more rows with 'national_id' empty" {
		t.Errorf("rollup = %q, want %q", got[3], "...and 3 more rows with 'national_id' empty")
	}
}

func TestValidateSample_OnlyInspectsSample(t *testing.T) {
	rows := make([]Record, SampleSize+5)
	for i := range rows {
		rows[i] = Record{"national_id": "1", "first_name": "x", "last_name": "y"}
	}
	for i := SampleSize; i < len(rows); i++ {
		rows[i]["last_name"] = ""
	}

	if got := ValidateSample(rows, peopleSchema(), LocaleEN); len(got) != 0 {
		t.Errorf("ValidateSample() = %v, want no issues beyond the sample", got)
	}
}

func TestValidateSample_Spanish(t *testing.T) {
	rows := []Record{{"national_id": "1", "first_name": "", "last_name": "y"}}

	got := ValidateSample(rows, peopleSchema(), LocaleES)

	if len(got) != 1 || !strings.HasPrefix(got[0], "Fila 2:") {
		t.Errorf("ValidateSample() = %v, want one Spanish issue for row 2", got)
	}
}

func TestParseLocale(t *testing.T) {
	tests := []struct {
		input string
		want  Locale
	}{
		{"es", LocaleES},
		{" ES ", LocaleES},
		{"en", LocaleEN},
		{"", LocaleEN},
		{"pt", LocaleEN},
	}

	for _, tt := range tests {
		if got := ParseLocale(tt.input); got != tt.want {
			t.Errorf("ParseLocale(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  ValidationError
		want string
	}{
		{"with line and field", ValidationError{Line: 4, Field: "date", Value: "x", Message: "invalid date"}, `row 4: invalid date for 'date': "x"`},
		{"field only", ValidationError{Field: "total", Message: "required field is empty"}, "required field is empty for 'total'"},
		{"message only", ValidationError{Message: "bad"}, "bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
