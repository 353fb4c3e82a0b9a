package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivoteditor/internal/config"
	"pivoteditor/internal/domain"
	"pivoteditor/internal/service"
)

const validDoc = `{
  "version": 3,
  "pivots": {
    "1": {"id": "1", "name": "Sales", "model": "sale.order", "domain": [], "rowGroupBys": ["partner_id"], "measures": [{"field": "amount_total"}]},
    "2": {"id": "2", "name": "Moves", "model": "account.move", "domain": [], "rowGroupBys": [], "measures": []}
  }
}`

const invalidDoc = `{
  "pivots": {
    "7": {"id": "7", "name": "Broken", "model": "", "domain": [], "rowGroupBys": [], "measures": []}
  }
}`

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

// run executes pivotctl with args and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2024-01-01")
	defer SetVersion("dev", "", "")

	assert.Equal(t, "1.0.0", version)
	assert.Equal(t, "abc123", commit)
	assert.Equal(t, "2024-01-01", date)

	out, _, err := run(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "pivotctl 1.0.0")
	assert.Contains(t, out, "commit: abc123")
}

func TestValidate(t *testing.T) {
	good := writeFile(t, "good.json", validDoc)
	bad := writeFile(t, "bad.json", invalidDoc)

	out, _, err := run(t, "", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "2 pivot(s) valid")

	out, _, err = run(t, "", "validate", good, bad)
	require.Error(t, err)
	assert.Equal(t, "1 of 2 file(s) failed validation", err.Error())
	assert.Contains(t, out, "1 of 1 pivot(s) invalid")
	assert.Contains(t, out, "7 — Broken")
}

func TestValidate_ParseError(t *testing.T) {
	path := writeFile(t, "broken.json", `{"pivots": `)

	out, _, err := run(t, "", "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "broken.json")
}

func TestValidate_Stdin(t *testing.T) {
	out, _, err := run(t, validDoc, "validate", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "-: 2 pivot(s) valid")
}

func TestList(t *testing.T) {
	path := writeFile(t, "doc.json", validDoc)

	out, _, err := run(t, "", "list", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "account.move")
	assert.Contains(t, out, "Measures")
}

func TestList_JSON(t *testing.T) {
	path := writeFile(t, "doc.json", validDoc)

	out, _, err := run(t, "", "list", "--json", path)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0]["id"])
	assert.Equal(t, "Sales", rows[0]["name"])
	assert.EqualValues(t, 1, rows[0]["rowGroupBys"])
	assert.EqualValues(t, 1, rows[0]["measures"])
	assert.Equal(t, true, rows[1]["valid"])
}

func TestList_Empty(t *testing.T) {
	path := writeFile(t, "empty.json", `{"pivots": {}}`)

	out, _, err := run(t, "", "list", "--json", path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	out, _, err = run(t, "", "list", path)
	require.NoError(t, err)
	assert.Contains(t, out, "has no pivots")
}

func TestFmt(t *testing.T) {
	path := writeFile(t, "doc.json", `{"pivots":{"1":{"model":"m","name":"a","id":"1","domain":[],"rowGroupBys":[],"measures":[],"custom":true}},"a":1}`)

	out, _, err := run(t, "", "fmt", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{\n  \"a\": 1,"), out)
	assert.Contains(t, out, `"custom": true`)

	// Without -w the file is untouched.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, out, string(data))

	_, _, err = run(t, "", "fmt", "-w", path)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestMerge(t *testing.T) {
	base := writeFile(t, "base.json", validDoc)
	other := writeFile(t, "other.json", invalidDoc)
	empty := writeFile(t, "empty.json", `{}`)
	target := filepath.Join(t.TempDir(), "merged.json")

	_, stderr, err := run(t, "", "merge", base, other, empty, "-o", target)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Imported 1 pivot(s)")
	assert.Contains(t, stderr, "starting at id 3")
	assert.Contains(t, stderr, "No pivots found")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	doc, err := domain.Parse(data)
	require.NoError(t, err)
	require.Equal(t, 3, doc.Len())

	p, ok := doc.Get("3")
	require.True(t, ok)
	assert.Equal(t, "3", p.ID)
	assert.Equal(t, domain.ImportedName, p.Name)
}

func TestMerge_Stdout(t *testing.T) {
	base := writeFile(t, "base.json", validDoc)
	other := writeFile(t, "other.json", validDoc)

	out, _, err := run(t, "", "merge", base, other)
	require.NoError(t, err)
	doc, err := domain.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Len())
}

func TestHistory(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := writeFile(t, "config.yaml", "data_dir: "+dataDir+"\n")
	docPath := writeFile(t, "doc.json", validDoc)

	out, _, err := run(t, "", "--config", cfgPath, "history", docPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No snapshots")

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	env, err := service.Open(cfg, service.NoopEmitter{}, charmlog.New(io.Discard))
	require.NoError(t, err)
	require.NoError(t, env.Documents.LoadFile(context.Background(), docPath))
	require.NoError(t, env.Close())

	out, _, err = run(t, "", "--config", cfgPath, "history", docPath)
	require.NoError(t, err)
	assert.Contains(t, out, "open doc.json")
	assert.Contains(t, out, "(2 pivots,")

	out, _, err = run(t, "", "--config", cfgPath, "history", "--clear", docPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 snapshot(s)")

	out, _, err = run(t, "", "--config", cfgPath, "history", docPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No snapshots")
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := run(t, "", "frobnicate")
	assert.Error(t, err)
}
