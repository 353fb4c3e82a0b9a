// Package config loads the editor settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"pivoteditor/internal/domain"
	"pivoteditor/internal/session"
)

// Config represents config.yaml.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	Editor  EditorConfig  `yaml:"editor"`
	History HistoryConfig `yaml:"history"`
	Recent  RecentConfig  `yaml:"recent"`
	MCP     MCPConfig     `yaml:"mcp"`
}

// EditorConfig holds edit session settings.
type EditorConfig struct {
	// discard | block | prompt
	UnsavedSwitch     session.SwitchPolicy `yaml:"unsaved_switch"`
	EnforceValidation bool                 `yaml:"enforce_validation"`
	DefaultModel      string               `yaml:"default_model"`
}

// HistoryConfig holds snapshot history settings.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
	// Cron spec for periodic snapshots of the committed document. Empty disables.
	Autosnapshot string `yaml:"autosnapshot"`
}

// RecentConfig holds recent file list settings.
type RecentConfig struct {
	Limit int `yaml:"limit"`
}

// MCPConfig holds settings for the MCP endpoint the desktop app serves.
type MCPConfig struct {
	// Listen is a host:port for the streamable HTTP endpoint. Empty disables it.
	Listen string `yaml:"listen"`
	// AutoApprove skips the confirmation of destructive tools.
	AutoApprove bool `yaml:"auto_approve"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Editor: EditorConfig{
			UnsavedSwitch: session.SwitchDiscard,
			DefaultModel:  domain.DefaultModel,
		},
		History: HistoryConfig{
			Limit:        40,
			Autosnapshot: "@every 5m",
		},
		Recent: RecentConfig{
			Limit: 10,
		},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if cfg.Editor.DefaultModel == "" {
		cfg.Editor.DefaultModel = domain.DefaultModel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	policy, err := session.ParseSwitchPolicy(string(c.Editor.UnsavedSwitch))
	if err != nil {
		return fmt.Errorf("editor.unsaved_switch: %w", err)
	}
	c.Editor.UnsavedSwitch = policy

	if c.History.Limit < 1 {
		return fmt.Errorf("history.limit must be at least 1, got %d", c.History.Limit)
	}
	if c.Recent.Limit < 0 {
		return fmt.Errorf("recent.limit must not be negative, got %d", c.Recent.Limit)
	}
	if c.History.Autosnapshot != "" {
		if _, err := cron.ParseStandard(c.History.Autosnapshot); err != nil {
			return fmt.Errorf("history.autosnapshot: %w", err)
		}
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
