package app

import (
	"errors"
	"os"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"pivoteditor/internal/domain"
	"pivoteditor/internal/service"
	"pivoteditor/internal/storage"
)

// ============================================================
// Document files
// ============================================================

var jsonFilters = []wailsRuntime.FileFilter{
	{DisplayName: "Pivot Documents", Pattern: "*.json"},
	{DisplayName: "All Files", Pattern: "*.*"},
}

// OpenFile asks for a document and loads it. Returns "" when cancelled.
func (a *App) OpenFile() (string, error) {
	path, err := wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:   "Open Pivot Document",
		Filters: jsonFilters,
	})
	if err != nil || path == "" {
		return "", err
	}
	return path, a.openPath(path)
}

// OpenRecent reopens an entry of the recent files list. Files that are gone
// are dropped from the list.
func (a *App) OpenRecent(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		a.docs.ForgetRecent(path)
		return err
	}
	return a.openPath(path)
}

// LoadDocument loads contents supplied by the frontend (drag and drop or a
// browser file input). The document is not tied to a file on disk.
func (a *App) LoadDocument(name, contents string) error {
	if err := a.docs.Load(a.ctx, name, []byte(contents)); err != nil {
		return err
	}
	a.follow("")
	return nil
}

// ReloadDocument re-reads the opened file, dropping unsaved edits.
func (a *App) ReloadDocument() error {
	return a.docs.Reload(a.ctx)
}

// ImportFile asks for a document and merges its pivots into the open one.
func (a *App) ImportFile() (domain.ImportResult, error) {
	path, err := wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:   "Import Pivots",
		Filters: jsonFilters,
	})
	if err != nil || path == "" {
		return domain.ImportResult{}, err
	}
	return a.docs.ImportFile(a.ctx, path)
}

// ImportDocument merges pivots from contents supplied by the frontend.
func (a *App) ImportDocument(name, contents string) (domain.ImportResult, error) {
	return a.docs.Import(a.ctx, name, []byte(contents))
}

// SaveFile asks where to save the committed document. Returns "" without
// writing anything when cancelled.
func (a *App) SaveFile() (string, error) {
	path, err := wailsRuntime.SaveFileDialog(a.ctx, wailsRuntime.SaveDialogOptions{
		Title:           "Save Pivot Document",
		DefaultFilename: a.docs.SaveName(),
		Filters:         jsonFilters,
	})
	if err != nil || path == "" {
		return "", err
	}
	if a.watcher != nil {
		a.watcher.Suppress(path, time.Second)
	}
	if err := a.docs.SaveTo(a.ctx, path); err != nil {
		wailsRuntime.LogErrorf(a.ctx, "Failed to save %s: %v", path, err)
		return "", err
	}
	wailsRuntime.LogInfof(a.ctx, "Saved document to %s", path)
	return path, nil
}

// ExportDocument returns the committed document for a download performed by
// the frontend.
func (a *App) ExportDocument() (ExportedFile, error) {
	name, data, err := a.docs.Export()
	if err != nil {
		return ExportedFile{}, err
	}
	return ExportedFile{FileName: name, Contents: string(data)}, nil
}

// GetDocument returns the pivot list of the committed document.
func (a *App) GetDocument() service.DocumentView {
	return a.docs.Document()
}

// ValidateDocument lists the ids of invalid pivots.
func (a *App) ValidateDocument() []string {
	var verr *domain.ValidationError
	if errors.As(a.docs.Validate(), &verr) {
		return verr.IDs
	}
	return []string{}
}

// RecentFiles lists recently opened and saved documents.
func (a *App) RecentFiles() ([]storage.RecentFile, error) {
	return a.docs.RecentFiles()
}

func (a *App) openPath(path string) error {
	if err := a.docs.LoadFile(a.ctx, path); err != nil {
		wailsRuntime.LogErrorf(a.ctx, "Failed to open %s: %v", path, err)
		return err
	}
	wailsRuntime.LogInfof(a.ctx, "Opened %s", path)
	a.follow(path)
	if err := a.window.SetLastFile(path); err != nil {
		wailsRuntime.LogErrorf(a.ctx, "Failed to remember last file: %v", err)
	}
	return nil
}

// follow moves the file watcher to path. An empty path stops watching.
func (a *App) follow(path string) {
	if a.watcher == nil || path == a.watchedPath {
		return
	}
	if a.watchedPath != "" {
		a.watcher.Unwatch(a.watchedPath)
	}
	a.watchedPath = ""
	if path == "" {
		return
	}
	if err := a.watcher.Watch(path); err != nil {
		wailsRuntime.LogErrorf(a.ctx, "Failed to watch %s: %v", path, err)
		return
	}
	a.watchedPath = path
}
