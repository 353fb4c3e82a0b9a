package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivoteditor/internal/domain"
)

const sample = `{
  "version": 3,
  "pivots": {
    "10": {"id": "10", "name": "Pipeline", "model": "crm.lead", "domain": [["stage", "=", "won"]],
           "rowGroupBys": ["user_id", "stage_id"], "measures": [{"field": "expected_revenue", "aggregator": "sum"}],
           "sortedColumn": {"measure": "expected_revenue", "order": "desc"}, "colGroupBys": ["date:month"]},
    "2": {"id": "2", "name": "Legacy", "modelName": "sale.order", "measures": "oops", "rowGroupBys": [], "domain": []},
    "x": {"id": "x", "name": "Odd key", "model": "account.move", "measures": [], "rowGroupBys": [], "domain": []}
  },
  "lists": {"1": {"id": 1}}
}`

func mustParse(t *testing.T, text string) domain.Document {
	t.Helper()
	doc, err := domain.Parse([]byte(text))
	require.NoError(t, err)
	return doc
}

func TestParse_RoundTripPreservesUnknownFields(t *testing.T) {
	doc := mustParse(t, sample)

	out, err := domain.Serialize(doc)
	require.NoError(t, err)

	again, err := domain.Parse(out)
	require.NoError(t, err)
	assert.True(t, doc.Equal(again), "round trip changed the document:\n%s", out)

	assert.Contains(t, string(out), `"colGroupBys": [`)
	assert.Contains(t, string(out), `"aggregator": "sum"`)
	assert.Contains(t, string(out), `"measures": "oops"`)
	assert.Contains(t, string(out), `"modelName": "sale.order"`)
	assert.Contains(t, string(out), `"lists": {`)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"malformed", `{"pivots": `},
		{"empty", ``},
		{"array", `[1, 2]`},
		{"string", `"pivots"`},
		{"null", `null`},
		{"trailing", `{} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.Parse([]byte(tt.text))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrParse))
			var perr *domain.ParseError
			assert.True(t, errors.As(err, &perr))
		})
	}
}

func TestParse_NoPivotsKeyStaysAbsent(t *testing.T) {
	doc := mustParse(t, `{"title": "x"}`)
	assert.Equal(t, 0, doc.Len())

	out, err := domain.Serialize(doc)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"title\": \"x\"\n}\n", string(out))

	out, err = domain.Serialize(doc.Insert("1", domain.NewPivot("1", "")))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"pivots": {`)
}

func TestParse_PivotsNotAnObject(t *testing.T) {
	doc := mustParse(t, `{"pivots": [1, 2]}`)
	assert.Equal(t, 0, doc.Len())

	out, err := domain.Serialize(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pivots": [1, 2]}`, string(out))
}

func TestParse_NonObjectPivotIsCarried(t *testing.T) {
	doc := mustParse(t, `{"pivots": {"1": 42}}`)
	p, ok := doc.Get("1")
	require.True(t, ok)
	assert.True(t, p.Opaque())
	assert.False(t, domain.IsValid(p))

	out, err := domain.Serialize(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pivots": {"1": 42}}`, string(out))
}

func TestSerialize_Format(t *testing.T) {
	doc := mustParse(t, `{"version":2,"pivots":{"1":{"measures":[],"rowGroupBys":[],"domain":[],"model":"m","name":"a<b","id":"1"}}}`)

	out, err := domain.Serialize(doc)
	require.NoError(t, err)

	want := `{
  "pivots": {
    "1": {
      "id": "1",
      "name": "a<b",
      "model": "m",
      "domain": [],
      "rowGroupBys": [],
      "measures": []
    }
  },
  "version": 2
}
`
	assert.Equal(t, want, string(out))

	second, err := domain.Serialize(mustParse(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, string(out), string(second), "serialization must be stable")
}

func TestSerialize_KeepsNumberPrecision(t *testing.T) {
	doc := mustParse(t, `{"pivots":{"1":{"id":"1","domain":[["amount",">",12345678901234567890]]}},"n":1.50}`)
	out, err := domain.Serialize(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "12345678901234567890")
	assert.Contains(t, string(out), "1.50")
}

func TestDocument_ListOrder(t *testing.T) {
	doc := domain.NewDocument(map[string]domain.Pivot{
		"10": {ID: "10"},
		"2":  {ID: "2"},
		"b":  {ID: "b"},
		"a":  {ID: "a"},
		"01": {ID: "01"},
	})
	assert.Equal(t, []string{"2", "10", "01", "a", "b"}, doc.IDs())
	assert.Equal(t, "2", doc.First())
	assert.Equal(t, "", domain.Document{}.First())
}

func TestDocument_ValueSemantics(t *testing.T) {
	base := mustParse(t, sample)
	before, err := domain.Serialize(base)
	require.NoError(t, err)

	p, ok := base.Get("10")
	require.True(t, ok)
	p.Name = "changed"
	p.RowGroupBys[0] = "changed"

	inserted := base.Insert("11", p)
	removed := base.Remove("2")
	renamed := base.Rename("10", "12", p)
	replaced := base.ReplaceAll(nil)

	after, err := domain.Serialize(base)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "base document must not change")

	assert.Equal(t, 4, inserted.Len())
	assert.False(t, removed.Has("2"))
	assert.True(t, renamed.Has("12"))
	assert.False(t, renamed.Has("10"))
	assert.Equal(t, 0, replaced.Len())
	assert.Equal(t, base.Extra(), replaced.Extra())
}

func TestDocument_RemoveMissingIsNoop(t *testing.T) {
	doc := mustParse(t, sample)
	assert.True(t, doc.Equal(doc.Remove("nope")))
}

func TestDocument_NextID(t *testing.T) {
	assert.Equal(t, "1", domain.Document{}.NextID())
	doc := domain.NewDocument(map[string]domain.Pivot{"2": {}, "5": {}, "x": {}, "-3": {}})
	assert.Equal(t, "5", doc.MaxNumericID().String())
	assert.Equal(t, "6", doc.NextID())
}

func TestDocument_NextIDPastInt64(t *testing.T) {
	doc := domain.NewDocument(map[string]domain.Pivot{"9223372036854775807": {}, "3": {}})
	assert.Equal(t, "9223372036854775808", doc.NextID())

	doc = domain.NewDocument(map[string]domain.Pivot{"123456789012345678901234567890": {}})
	assert.Equal(t, "123456789012345678901234567891", doc.NextID())
}

func TestPivot_Display(t *testing.T) {
	doc := mustParse(t, sample)
	legacy, _ := doc.Get("2")
	assert.Equal(t, "sale.order", legacy.DisplayModel())
	assert.Equal(t, "unnamed", domain.Pivot{}.DisplayName())
	assert.Equal(t, "Legacy", legacy.DisplayName())
}

func TestPivot_JSON(t *testing.T) {
	p := domain.NewPivot("7", "")
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7","name":"new pivot","model":"crm.lead","domain":[],"rowGroupBys":[],"measures":[]}`, string(data))

	var back domain.Pivot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, p.Equal(back))
}

func TestExportName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "Pipeline.1700000000123.osheet.json", domain.ExportName("Pipeline.osheet.json", now))
	assert.Equal(t, "File.1700000000123.osheet.json", domain.ExportName("pivots.json", now))
	assert.Equal(t, "File.1700000000123.osheet.json", domain.ExportName("", now))
}
