package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivoteditor/internal/domain"
)

func validPivot() domain.Pivot {
	return domain.Pivot{
		ID:          "1",
		Name:        "n",
		Model:       "m",
		Measures:    []domain.Measure{},
		RowGroupBys: []string{},
		Domain:      json.RawMessage("[]"),
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, domain.IsValid(validPivot()))
	assert.True(t, domain.IsValid(domain.NewPivot("3", "")))

	tests := []struct {
		name   string
		mutate func(p *domain.Pivot)
	}{
		{"no id", func(p *domain.Pivot) { p.ID = "" }},
		{"no name", func(p *domain.Pivot) { p.Name = "" }},
		{"no model", func(p *domain.Pivot) { p.Model = "" }},
		{"no measures", func(p *domain.Pivot) { p.Measures = nil }},
		{"no rowGroupBys", func(p *domain.Pivot) { p.RowGroupBys = nil }},
		{"no domain", func(p *domain.Pivot) { p.Domain = nil }},
		{"domain object", func(p *domain.Pivot) { p.Domain = json.RawMessage(`{"a":1}`) }},
		{"measures not a sequence", func(p *domain.Pivot) {
			p.Measures = nil
			p.Extra = map[string]json.RawMessage{"measures": json.RawMessage(`"sum"`)}
		}},
		{"id not a string", func(p *domain.Pivot) {
			p.Extra = map[string]json.RawMessage{"id": json.RawMessage(`1`)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPivot()
			tt.mutate(&p)
			assert.False(t, domain.IsValid(p))
		})
	}
}

func TestIsValid_OddSequencesStillCount(t *testing.T) {
	doc := mustParse(t, `{"pivots":{"1":{"id":"1","name":"n","model":"m","domain":[],"rowGroupBys":[1,2],"measures":["x"]}}}`)
	p, _ := doc.Get("1")
	assert.True(t, domain.IsValid(p), "arrays with unexpected items are still sequences")
}

func TestValidate(t *testing.T) {
	doc := mustParse(t, sample)
	err := domain.Validate(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"2"}, verr.IDs)

	assert.NoError(t, domain.Validate(domain.NewDocument(map[string]domain.Pivot{"1": validPivot()})))
}

func TestMerge_RenumbersAfterMaxNumericID(t *testing.T) {
	base := domain.NewDocument(map[string]domain.Pivot{
		"2": {ID: "2", Name: "two"},
		"5": {ID: "5", Name: "five"},
		"x": {ID: "x", Name: "ex"},
	})
	incoming := domain.NewDocument(map[string]domain.Pivot{
		"1": {ID: "1", Name: "a", Model: "m1"},
		"2": {ID: "2", Name: "b", Model: "m2"},
		"3": {ID: "3", Name: "c", Model: "m3", Extra: map[string]json.RawMessage{"colGroupBys": json.RawMessage(`["date"]`)}},
	})

	merged, res := domain.Merge(base, incoming)

	assert.Equal(t, 3, res.Count)
	assert.Equal(t, "6", res.FirstID)
	assert.Equal(t, []string{"6", "7", "8"}, res.IDs)
	assert.Equal(t, []string{"2", "5", "6", "7", "8", "x"}, merged.IDs())

	for i, id := range res.IDs {
		p, ok := merged.Get(id)
		require.True(t, ok)
		assert.Equal(t, id, p.ID)
		assert.Equal(t, domain.ImportedName, p.Name)
		assert.Equal(t, []string{"m1", "m2", "m3"}[i], p.Model)
	}
	p8, _ := merged.Get("8")
	assert.JSONEq(t, `["date"]`, string(p8.Extra["colGroupBys"]))

	two, _ := merged.Get("2")
	assert.Equal(t, "two", two.Name, "base pivots are untouched")
	assert.Equal(t, 3, base.Len(), "base document is not modified")
}

func TestMerge_RepeatedImportsPastInt64(t *testing.T) {
	base := domain.NewDocument(map[string]domain.Pivot{
		"9223372036854775807": {ID: "9223372036854775807", Name: "max", Model: "m"},
	})
	first := domain.NewDocument(map[string]domain.Pivot{"1": {ID: "1", Name: "a", Model: "A"}})
	second := domain.NewDocument(map[string]domain.Pivot{"1": {ID: "1", Name: "b", Model: "B"}})

	merged, res := domain.Merge(base, first)
	assert.Equal(t, []string{"9223372036854775808"}, res.IDs)
	merged, res = domain.Merge(merged, second)
	assert.Equal(t, []string{"9223372036854775809"}, res.IDs)

	require.Equal(t, 3, merged.Len())
	a, ok := merged.Get("9223372036854775808")
	require.True(t, ok)
	assert.Equal(t, "A", a.Model)
	b, ok := merged.Get("9223372036854775809")
	require.True(t, ok)
	assert.Equal(t, "B", b.Model)
}

func TestMerge_EmptyBase(t *testing.T) {
	base := mustParse(t, `{"pivots": {}}`)
	incoming := mustParse(t, `{"pivots": {"a": {"id": "a", "name": "A"}, "b": {"id": "b", "name": "B"}}}`)

	merged, res := domain.Merge(base, incoming)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, []string{"1", "2"}, merged.IDs())
}

func TestMerge_EmptyIncomingIsNoop(t *testing.T) {
	base := mustParse(t, sample)
	for _, text := range []string{`{"pivots": {}}`, `{}`, `{"pivots": "nothing"}`} {
		merged, res := domain.Merge(base, mustParse(t, text))
		assert.Equal(t, 0, res.Count)
		assert.Empty(t, res.FirstID)
		assert.True(t, base.Equal(merged))
	}
}

func TestMerge_MalformedEntriesAreKept(t *testing.T) {
	base := mustParse(t, `{"pivots": {"1": {"id": "1"}}}`)
	incoming := mustParse(t, `{"pivots": {"a": {"measures": 5}, "b": "garbage"}}`)

	merged, res := domain.Merge(base, incoming)
	require.Equal(t, 2, res.Count)

	p2, _ := merged.Get("2")
	assert.Equal(t, "2", p2.ID)
	assert.JSONEq(t, `5`, string(p2.Extra["measures"]))

	p3, _ := merged.Get("3")
	assert.True(t, p3.Opaque())
}

func TestPatch_Apply(t *testing.T) {
	doc := mustParse(t, sample)
	legacy, _ := doc.Get("2")

	name := "Renamed"
	patch := domain.PivotPatch{
		Name:     &name,
		Measures: []domain.Measure{{Field: "amount_total"}},
		Domain:   json.RawMessage(`[ ["state", "=", "sale"] ]`),
	}
	out, err := patch.Apply(legacy)
	require.NoError(t, err)

	assert.Equal(t, "Renamed", out.Name)
	assert.Equal(t, []domain.Measure{{Field: "amount_total"}}, out.Measures)
	assert.Equal(t, `[["state","=","sale"]]`, string(out.Domain))
	_, stale := out.Extra["measures"]
	assert.False(t, stale, "typed value replaces the verbatim one")
	assert.Equal(t, "Legacy", legacy.Name, "input is not modified")

	_, err = domain.PivotPatch{Domain: json.RawMessage(`[`)}.Apply(legacy)
	assert.True(t, errors.Is(err, domain.ErrInvalidJSON))

	assert.True(t, domain.PivotPatch{}.Empty())
	assert.False(t, patch.Empty())
}

func TestFieldPatch(t *testing.T) {
	doc := mustParse(t, sample)
	p, _ := doc.Get("10")

	for _, key := range domain.EditableKeys {
		text := domain.FieldText(p, key)
		patch, err := domain.FieldPatch(key, text)
		require.NoError(t, err, key)
		out, err := patch.Apply(p)
		require.NoError(t, err, key)
		assert.True(t, out.Equal(p), "%s survives a text round trip", key)
	}

	patch, err := domain.FieldPatch(domain.KeyRowGroupBys, `["partner_id"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"partner_id"}, patch.RowGroupBys)

	_, err = domain.FieldPatch(domain.KeyRowGroupBys, `"partner_id"`)
	assert.True(t, errors.Is(err, domain.ErrInvalidJSON))
	_, err = domain.FieldPatch(domain.KeyMeasures, `null`)
	assert.True(t, errors.Is(err, domain.ErrInvalidJSON))
	_, err = domain.FieldPatch(domain.KeyDomain, `[`)
	assert.True(t, errors.Is(err, domain.ErrInvalidJSON))
	_, err = domain.FieldPatch("colGroupBys", `[]`)
	assert.Error(t, err)

	legacy, _ := doc.Get("2")
	assert.Equal(t, `"oops"`, domain.FieldText(legacy, domain.KeyMeasures), "mistyped value shown verbatim")
	assert.Equal(t, "", domain.FieldText(legacy, domain.KeySortedColumn))
}
