package config

import (
	"os"
	"path/filepath"
)

const (
	// AppName names the config and data directories.
	AppName = "pivoteditor"
)

// Dir returns the config directory (~/.config/pivoteditor).
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// Path returns the config file path (~/.config/pivoteditor/config.yaml).
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultDataDir returns the data directory (~/.local/share/pivoteditor).
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", AppName)
}

// DBPath returns the SQLite database path inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, AppName+".db")
}
