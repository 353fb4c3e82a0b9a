package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivoteditor/internal/session"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Editor.UnsavedSwitch != session.SwitchDiscard {
		t.Errorf("expected discard policy, got %s", cfg.Editor.UnsavedSwitch)
	}
	if cfg.Editor.DefaultModel != "crm.lead" {
		t.Errorf("expected default model crm.lead, got %s", cfg.Editor.DefaultModel)
	}
	if cfg.History.Limit != 40 {
		t.Errorf("expected history limit 40, got %d", cfg.History.Limit)
	}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: /tmp/pivots
editor:
  unsaved_switch: prompt
  enforce_validation: true
history:
  autosnapshot: ""
mcp:
  listen: 127.0.0.1:7421
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pivots", cfg.DataDir)
	assert.Equal(t, session.SwitchPrompt, cfg.Editor.UnsavedSwitch)
	assert.True(t, cfg.Editor.EnforceValidation)
	assert.Equal(t, "crm.lead", cfg.Editor.DefaultModel, "unset keys keep their default")
	assert.Equal(t, 40, cfg.History.Limit)
	assert.Empty(t, cfg.History.Autosnapshot)
	assert.Equal(t, "/tmp/pivots/pivoteditor.db", cfg.DBPath())
	assert.Equal(t, "127.0.0.1:7421", cfg.MCP.Listen)
	assert.False(t, cfg.MCP.AutoApprove)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "editor: [\n"},
		{"bad policy", "editor:\n  unsaved_switch: ask\n"},
		{"bad limit", "history:\n  limit: 0\n"},
		{"bad cron", "history:\n  autosnapshot: sometimes\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Recent.Limit = 3
	cfg.Editor.UnsavedSwitch = session.SwitchBlock

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data"), expandHome("~/data"))
	assert.Equal(t, "/abs", expandHome("/abs"))
}
