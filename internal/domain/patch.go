package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// DefaultModel is used for new pivots when no model is configured.
const DefaultModel = "crm.lead"

// NewPivot returns the skeleton created by "Add pivot".
func NewPivot(id, model string) Pivot {
	if model == "" {
		model = DefaultModel
	}
	return Pivot{
		ID:          id,
		Name:        "new pivot",
		Model:       model,
		Domain:      json.RawMessage("[]"),
		RowGroupBys: []string{},
		Measures:    []Measure{},
	}
}

// PivotPatch is a partial update of the top-level fields of a pivot. Nil
// fields are left alone; to clear a list send an empty one.
type PivotPatch struct {
	ID           *string         `json:"id,omitempty"`
	Name         *string         `json:"name,omitempty"`
	Model        *string         `json:"model,omitempty"`
	Domain       json.RawMessage `json:"domain,omitempty"`
	RowGroupBys  []string        `json:"rowGroupBys,omitempty"`
	Measures     []Measure       `json:"measures,omitempty"`
	SortedColumn json.RawMessage `json:"sortedColumn,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (pp PivotPatch) Empty() bool {
	return pp.ID == nil && pp.Name == nil && pp.Model == nil && pp.Domain == nil &&
		pp.RowGroupBys == nil && pp.Measures == nil && pp.SortedColumn == nil
}

// Apply returns a copy of p with the patch merged on top. It fails only when
// a free-form field is not valid JSON.
func (pp PivotPatch) Apply(p Pivot) (Pivot, error) {
	out := p.Clone()
	if out.Opaque() {
		out = Pivot{}
	}
	if pp.ID != nil {
		out.ID = *pp.ID
		delete(out.Extra, KeyID)
	}
	if pp.Name != nil {
		out.Name = *pp.Name
		delete(out.Extra, KeyName)
	}
	if pp.Model != nil {
		out.Model = *pp.Model
		delete(out.Extra, KeyModel)
	}
	if pp.Domain != nil {
		raw, err := compactRaw(pp.Domain)
		if err != nil {
			return Pivot{}, fmt.Errorf("domain: %w", ErrInvalidJSON)
		}
		out.Domain = raw
		delete(out.Extra, KeyDomain)
	}
	if pp.RowGroupBys != nil {
		out.RowGroupBys = slices.Clone(pp.RowGroupBys)
		delete(out.Extra, KeyRowGroupBys)
	}
	if pp.Measures != nil {
		out.Measures = Pivot{Measures: pp.Measures}.Clone().Measures
		delete(out.Extra, KeyMeasures)
	}
	if pp.SortedColumn != nil {
		raw, err := compactRaw(pp.SortedColumn)
		if err != nil {
			return Pivot{}, fmt.Errorf("sortedColumn: %w", ErrInvalidJSON)
		}
		out.SortedColumn = raw
		delete(out.Extra, KeySortedColumn)
	}
	if len(out.Extra) == 0 {
		out.Extra = nil
	}
	return out, nil
}

// EditableKeys are the fields a PivotPatch can set, in display order.
var EditableKeys = []string{KeyID, KeyName, KeyModel, KeyDomain, KeyRowGroupBys, KeyMeasures, KeySortedColumn}

// FieldPatch builds a patch setting one field from its text form. id, name
// and model take the text as-is; the other fields take JSON.
func FieldPatch(key, text string) (PivotPatch, error) {
	var pp PivotPatch
	switch key {
	case KeyID:
		pp.ID = &text
	case KeyName:
		pp.Name = &text
	case KeyModel:
		pp.Model = &text
	case KeyDomain, KeySortedColumn:
		if !json.Valid([]byte(text)) {
			return PivotPatch{}, fmt.Errorf("%s: %w", key, ErrInvalidJSON)
		}
		if key == KeyDomain {
			pp.Domain = json.RawMessage(text)
		} else {
			pp.SortedColumn = json.RawMessage(text)
		}
	case KeyRowGroupBys:
		var groups []string
		if err := json.Unmarshal([]byte(text), &groups); err != nil || groups == nil {
			return PivotPatch{}, fmt.Errorf("%s: expected a list of field names: %w", key, ErrInvalidJSON)
		}
		pp.RowGroupBys = groups
	case KeyMeasures:
		var measures []Measure
		if err := json.Unmarshal([]byte(text), &measures); err != nil || measures == nil {
			return PivotPatch{}, fmt.Errorf("%s: expected a list of measures: %w", key, ErrInvalidJSON)
		}
		pp.Measures = measures
	default:
		return PivotPatch{}, fmt.Errorf("unknown field %q", key)
	}
	return pp, nil
}

// FieldText renders one field of p in the text form FieldPatch accepts. A
// known key holding a value of the wrong type is shown verbatim.
func FieldText(p Pivot, key string) string {
	if raw, ok := p.Extra[key]; ok {
		return string(raw)
	}
	switch key {
	case KeyID:
		return p.ID
	case KeyName:
		return p.Name
	case KeyModel:
		return p.Model
	case KeyDomain:
		return string(p.Domain)
	case KeySortedColumn:
		return string(p.SortedColumn)
	case KeyRowGroupBys:
		if p.RowGroupBys == nil {
			return ""
		}
		data, _ := json.Marshal(p.RowGroupBys)
		return string(data)
	case KeyMeasures:
		if p.Measures == nil {
			return ""
		}
		data, _ := json.Marshal(p.Measures)
		return string(data)
	}
	return ""
}
