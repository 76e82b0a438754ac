package core

// ProjectRows re-keys raw records through the mappings. Each output record
// holds every mapped target plus any raw column no mapping consumed.
// Target keys win over pass-through keys with the same name.
func ProjectRows(rows []Record, mappings []ColumnMapping) []Record {
	consumed := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		consumed[m.Source] = true
	}

	out := make([]Record, len(rows))
	for i, raw := range rows {
		rec := make(Record, len(raw))
		for _, m := range mappings {
			rec[m.Target] = raw[m.Source]
		}
		for k, v := range raw {
			if consumed[k] {
				continue
			}
			if _, taken := rec[k]; taken {
				continue
			}
			rec[k] = v
		}
		out[i] = rec
	}
	return out
}
