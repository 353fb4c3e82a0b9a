package service

import (
	"fmt"
	"strconv"

	"pivoteditor/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Window Size Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the main Wails window size between sessions, plus the
// last opened document so it can be reopened on startup. Stored in the
// app_settings table.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSettingsService persists window size between sessions.
type WindowSettingsService struct {
	settings *storage.SettingsStore
}

// NewWindowSettingsService creates a WindowSettingsService. A nil store
// yields defaults and refuses to save.
func NewWindowSettingsService(settings *storage.SettingsStore) *WindowSettingsService {
	return &WindowSettingsService{settings: settings}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	settingLastFile     = "last_file"
	defaultWindowWidth  = 1280
	defaultWindowHeight = 800
	minWindowWidth      = 800
	minWindowHeight     = 600
)

// LoadWindowSize returns the saved window dimensions, or sensible defaults.
func (s *WindowSettingsService) LoadWindowSize() WindowSize {
	size := WindowSize{Width: defaultWindowWidth, Height: defaultWindowHeight}
	if s.settings == nil {
		return size
	}
	if w := s.intSetting(settingWindowWidth); w >= minWindowWidth {
		size.Width = w
	}
	if h := s.intSetting(settingWindowHeight); h >= minWindowHeight {
		size.Height = h
	}
	return size
}

// SaveWindowSize persists the current window dimensions.
func (s *WindowSettingsService) SaveWindowSize(width, height int) error {
	if s.settings == nil {
		return fmt.Errorf("window settings: no db")
	}
	if err := s.settings.Set(settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.settings.Set(settingWindowHeight, strconv.Itoa(height))
}

// LastFile returns the document opened most recently, or "".
func (s *WindowSettingsService) LastFile() string {
	if s.settings == nil {
		return ""
	}
	path, _, _ := s.settings.Get(settingLastFile)
	return path
}

// SetLastFile remembers the opened document.
func (s *WindowSettingsService) SetLastFile(path string) error {
	if s.settings == nil {
		return fmt.Errorf("window settings: no db")
	}
	return s.settings.Set(settingLastFile, path)
}

func (s *WindowSettingsService) intSetting(key string) int {
	value, ok, err := s.settings.Get(key)
	if err != nil || !ok {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
