package core

import "strings"

// MapColumns binds raw headers to the schema's canonical fields.
//
// Fields are processed required first, then optional, in declaration order.
// For each field an exact alias match is preferred; failing that, the first
// header whose normalized form contains, or is contained in, an alias wins.
// A header bound to one field is not offered to later fields. Required fields
// with no match are reported in Missing; headers left unbound in Unmapped.
func MapColumns(headers []string, schema DatasetSchema) MappingResult {
	normHeaders := normalizeAll(headers)
	consumed := make([]bool, len(headers))

	result := MappingResult{
		Mappings: []ColumnMapping{},
		Unmapped: []string{},
		Missing:  []string{},
	}

	bind := func(field string, required bool) {
		aliases := normalizeAll(schema.Aliases[field])
		if len(aliases) == 0 {
			aliases = []string{NormalizeHeader(field)}
		}

		idx := exactMatch(normHeaders, consumed, aliases)
		if idx < 0 {
			idx = partialMatch(normHeaders, consumed, aliases)
		}
		if idx < 0 {
			if required {
				result.Missing = append(result.Missing, field)
			}
			return
		}

		consumed[idx] = true
		result.Mappings = append(result.Mappings, ColumnMapping{Source: headers[idx], Target: field})
	}

	for _, field := range schema.Required {
		bind(field, true)
	}
	for _, field := range schema.Optional {
		bind(field, false)
	}

	for i, h := range headers {
		if !consumed[i] {
			result.Unmapped = append(result.Unmapped, h)
		}
	}

	return result
}

func exactMatch(headers []string, consumed []bool, aliases []string) int {
	for i, h := range headers {
		if consumed[i] || h == "" {
			continue
		}
		for _, a := range aliases {
			if h == a {
				return i
			}
		}
	}
	return -1
}

func partialMatch(headers []string, consumed []bool, aliases []string) int {
	for i, h := range headers {
		if consumed[i] || h == "" {
			continue
		}
		for _, a := range aliases {
			if a == "" {
				continue
			}
			if strings.Contains(a, h) || strings.Contains(h, a) {
				return i
			}
		}
	}
	return -1
}
