package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivoteditor/internal/config"
	"pivoteditor/internal/domain"
	"pivoteditor/internal/session"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.History.Autosnapshot = ""

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.env.Close() })
	return a
}

func TestDecisionFromButton(t *testing.T) {
	assert.Equal(t, session.DecisionSave, decisionFromButton("Save"))
	assert.Equal(t, session.DecisionSave, decisionFromButton("Yes"))
	assert.Equal(t, session.DecisionDiscard, decisionFromButton("Discard"))
	assert.Equal(t, session.DecisionDiscard, decisionFromButton("No"))
	assert.Equal(t, session.DecisionCancel, decisionFromButton("Cancel"))
	assert.Equal(t, session.DecisionCancel, decisionFromButton(""))
}

func TestLoadEditExport(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.LoadDocument("Pipeline.osheet.json", `{"pivots": {"3": {"id": "3", "name": "Leads"}}}`))
	assert.Equal(t, []string{"3"}, a.ValidateDocument())

	model := "crm.lead"
	require.NoError(t, a.EditPivot(domain.PivotPatch{
		Model:       &model,
		Domain:      []byte(`[]`),
		RowGroupBys: []string{},
		Measures:    []domain.Measure{},
	}))
	assert.True(t, a.GetSession().Dirty)

	exported, err := a.ExportDocument()
	require.NoError(t, err)
	assert.NotContains(t, exported.Contents, "crm.lead", "uncommitted edits are not exported")

	require.NoError(t, a.CommitPivot())
	assert.Empty(t, a.ValidateDocument())

	exported, err = a.ExportDocument()
	require.NoError(t, err)
	assert.Regexp(t, `^Pipeline\.\d+\.osheet\.json$`, exported.FileName)
	assert.Contains(t, exported.Contents, `"model": "crm.lead"`)

	history, err := a.History()
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestAddPivotAndSelect(t *testing.T) {
	a := newTestApp(t)

	id, err := a.AddPivot()
	require.NoError(t, err)
	assert.Equal(t, "1", id)
	assert.Equal(t, "1", a.GetSession().Selected)

	require.NoError(t, a.SelectPivot(""))
	assert.Equal(t, session.StateEmpty, a.GetSession().State)
	assert.Len(t, a.GetDocument().Pivots, 1)
}

func TestWindowSizeDefaults(t *testing.T) {
	a := newTestApp(t)
	size := a.WindowSize()
	assert.Equal(t, 1280, size.Width)
	assert.Equal(t, 800, size.Height)
}
