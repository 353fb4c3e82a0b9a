package domain

import "encoding/json"

// IsValid reports whether p is structurally well-formed: id, name and model
// are non-empty strings, and measures, rowGroupBys and domain are arrays.
// Missing fields are a false result, never a failure.
func IsValid(p Pivot) bool {
	if p.Opaque() {
		return false
	}
	if !nonEmpty(p, KeyID, p.ID) || !nonEmpty(p, KeyName, p.Name) || !nonEmpty(p, KeyModel, p.Model) {
		return false
	}
	return isSequence(p, KeyMeasures, p.Measures != nil) &&
		isSequence(p, KeyRowGroupBys, p.RowGroupBys != nil) &&
		isSequence(p, KeyDomain, isArray(p.Domain))
}

// Validate checks every pivot of doc and returns a *ValidationError naming
// the invalid ones, in iteration order.
func Validate(doc Document) error {
	var bad []string
	for _, e := range doc.List() {
		if !IsValid(e.Pivot) {
			bad = append(bad, e.ID)
		}
	}
	if len(bad) > 0 {
		return &ValidationError{IDs: bad}
	}
	return nil
}

// nonEmpty treats a value kept verbatim in Extra as not a string.
func nonEmpty(p Pivot, key, typed string) bool {
	if _, odd := p.Extra[key]; odd {
		return false
	}
	return typed != ""
}

func isSequence(p Pivot, key string, typed bool) bool {
	if raw, odd := p.Extra[key]; odd {
		return isArray(raw) && json.Valid(raw)
	}
	return typed
}
