package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Field keys of a pivot definition as they appear in the document.
const (
	KeyID           = "id"
	KeyName         = "name"
	KeyModel        = "model"
	KeyModelName    = "modelName"
	KeyDomain       = "domain"
	KeyRowGroupBys  = "rowGroupBys"
	KeyMeasures     = "measures"
	KeySortedColumn = "sortedColumn"
)

// knownKeys is also the order in which fields are written.
var knownKeys = []string{KeyID, KeyName, KeyModel, KeyDomain, KeyRowGroupBys, KeyMeasures, KeySortedColumn}

// Measure names an aggregated field. Keys other than "field" are kept verbatim.
type Measure struct {
	Field string
	Extra map[string]json.RawMessage
}

// Pivot is one declarative report definition.
//
// Known fields are typed. Anything else, including a known key whose value
// does not have the expected JSON type, is kept in Extra and written back
// unchanged. A nil slice means the key is absent; an empty slice is "[]".
type Pivot struct {
	ID           string
	Name         string
	Model        string
	Domain       json.RawMessage
	RowGroupBys  []string
	Measures     []Measure
	SortedColumn json.RawMessage
	Extra        map[string]json.RawMessage

	// opaque holds an entry that is not a JSON object at all.
	opaque json.RawMessage
}

// Opaque reports whether the entry was not a JSON object and is carried as-is.
func (p Pivot) Opaque() bool {
	return p.opaque != nil
}

// DisplayName is the label shown in lists.
func (p Pivot) DisplayName() string {
	if p.Name == "" {
		return "unnamed"
	}
	return p.Name
}

// DisplayModel returns model, falling back to the legacy modelName key.
func (p Pivot) DisplayModel() string {
	if p.Model != "" {
		return p.Model
	}
	var legacy string
	if raw, ok := p.Extra[KeyModelName]; ok && json.Unmarshal(raw, &legacy) == nil {
		return legacy
	}
	return ""
}

// Clone returns a deep copy.
func (p Pivot) Clone() Pivot {
	c := Pivot{
		ID:           p.ID,
		Name:         p.Name,
		Model:        p.Model,
		Domain:       cloneRaw(p.Domain),
		RowGroupBys:  slices.Clone(p.RowGroupBys),
		SortedColumn: cloneRaw(p.SortedColumn),
		Extra:        cloneRawMap(p.Extra),
		opaque:       cloneRaw(p.opaque),
	}
	if p.Measures != nil {
		c.Measures = make([]Measure, len(p.Measures))
		for i, m := range p.Measures {
			c.Measures[i] = Measure{Field: m.Field, Extra: cloneRawMap(m.Extra)}
		}
	}
	return c
}

// Equal reports structural equality. Empty and absent extra maps compare
// equal, as do JSON values that differ only in whitespace.
func (p Pivot) Equal(o Pivot) bool {
	return reflect.DeepEqual(p.normalized(), o.normalized())
}

func (p Pivot) normalized() Pivot {
	n := p.Clone()
	n.Domain = normalizeRaw(n.Domain)
	n.SortedColumn = normalizeRaw(n.SortedColumn)
	n.Extra = normalizeRawMap(n.Extra)
	n.opaque = normalizeRaw(n.opaque)
	for i := range n.Measures {
		n.Measures[i].Extra = normalizeRawMap(n.Measures[i].Extra)
	}
	return n
}

// MarshalJSON writes the pivot as a JSON object.
func (p Pivot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a pivot, keeping unrecognized data verbatim.
func (p *Pivot) UnmarshalJSON(data []byte) error {
	parsed, err := parsePivot(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON writes a measure as {"field": ...} plus its extra keys.
func (m Measure) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	w := newObjectWriter(&buf)
	w.str("field", m.Field)
	for _, k := range sortedKeys(m.Extra) {
		w.raw(k, m.Extra[k])
	}
	if err := w.close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a measure object. A missing field is an empty name.
func (m *Measure) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode measure: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("decode measure: not an object")
	}
	if _, ok := fields["field"]; !ok {
		fields["field"] = json.RawMessage(`""`)
		data, _ = json.Marshal(fields)
	}
	parsed, ok := decodeMeasure(data)
	if !ok {
		return fmt.Errorf("decode measure: field must be a string")
	}
	*m = parsed
	return nil
}

func (p Pivot) writeTo(buf *bytes.Buffer) error {
	if p.opaque != nil {
		buf.Write(p.opaque)
		return nil
	}
	w := newObjectWriter(buf)
	for _, key := range knownKeys {
		if raw, ok := p.Extra[key]; ok {
			w.raw(key, raw)
			continue
		}
		switch key {
		case KeyID:
			w.str(key, p.ID)
		case KeyName:
			w.str(key, p.Name)
		case KeyModel:
			w.str(key, p.Model)
		case KeyDomain:
			if p.Domain != nil {
				w.raw(key, p.Domain)
			}
		case KeyRowGroupBys:
			if p.RowGroupBys != nil {
				w.value(key, p.RowGroupBys)
			}
		case KeyMeasures:
			if p.Measures != nil {
				w.measures(key, p.Measures)
			}
		case KeySortedColumn:
			if p.SortedColumn != nil {
				w.raw(key, p.SortedColumn)
			}
		}
	}
	for _, key := range sortedKeys(p.Extra) {
		if !slices.Contains(knownKeys, key) {
			w.raw(key, p.Extra[key])
		}
	}
	return w.close()
}

func parsePivot(data []byte) (Pivot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		compacted, cerr := compactRaw(data)
		if cerr != nil {
			return Pivot{}, fmt.Errorf("decode pivot: %w", cerr)
		}
		return Pivot{opaque: compacted}, nil
	}

	var p Pivot
	extra := make(map[string]json.RawMessage)
	for key, value := range fields {
		raw, err := compactRaw(value)
		if err != nil {
			return Pivot{}, fmt.Errorf("decode pivot field %s: %w", key, err)
		}
		ok := true
		switch key {
		case KeyID:
			ok = decodeString(raw, &p.ID)
		case KeyName:
			ok = decodeString(raw, &p.Name)
		case KeyModel:
			ok = decodeString(raw, &p.Model)
		case KeyDomain:
			p.Domain = raw
		case KeyRowGroupBys:
			ok = decodeStrings(raw, &p.RowGroupBys)
		case KeyMeasures:
			ok = decodeMeasures(raw, &p.Measures)
		case KeySortedColumn:
			p.SortedColumn = raw
		default:
			ok = false
		}
		if !ok {
			extra[key] = raw
		}
	}
	if len(extra) > 0 {
		p.Extra = extra
	}
	return p, nil
}

func decodeString(raw json.RawMessage, dst *string) bool {
	if len(raw) == 0 || raw[0] != '"' {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func decodeStrings(raw json.RawMessage, dst *[]string) bool {
	if !isArray(raw) {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return false
	}
	out := make([]string, len(items))
	for i, item := range items {
		if !decodeString(item, &out[i]) {
			return false
		}
	}
	*dst = out
	return true
}

func decodeMeasures(raw json.RawMessage, dst *[]Measure) bool {
	if !isArray(raw) {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return false
	}
	out := make([]Measure, len(items))
	for i, item := range items {
		m, ok := decodeMeasure(item)
		if !ok {
			return false
		}
		out[i] = m
	}
	*dst = out
	return true
}

func decodeMeasure(raw json.RawMessage) (Measure, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Measure{}, false
	}
	var m Measure
	f, ok := fields["field"]
	if !ok || !decodeString(f, &m.Field) {
		return Measure{}, false
	}
	delete(fields, "field")
	if len(fields) > 0 {
		m.Extra = make(map[string]json.RawMessage, len(fields))
		for k, v := range fields {
			c, err := compactRaw(v)
			if err != nil {
				return Measure{}, false
			}
			m.Extra[k] = c
		}
	}
	return m, true
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return bytes.Clone(raw)
}

func cloneRawMap(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = cloneRaw(v)
	}
	return out
}

// compactRaw normalizes a JSON value so equal values compare equal byte-wise.
func compactRaw(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
