package domain

import "sort"

// FieldErrorMap maps a form field name to one human-readable message. A new validation pass
// or submission response always replaces the whole map.
type FieldErrorMap map[string]string

// FieldErrorMapFrom builds a map from a collaborator's field error list. The first message
// reported for a path wins.
func FieldErrorMapFrom(list []FieldError) FieldErrorMap {
	out := make(FieldErrorMap, len(list))
	for _, fe := range list {
		if fe.Path == "" {
			continue
		}
		if _, ok := out[fe.Path]; ok {
			continue
		}
		out[fe.Path] = fe.Message
	}
	return out
}

// Summary lists the messages ordered by field name, for the aggregated error banner.
func (m FieldErrorMap) Summary() []string {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, m[f])
	}
	return out
}

// Clone returns an independent copy of m.
func (m FieldErrorMap) Clone() FieldErrorMap {
	out := make(FieldErrorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
