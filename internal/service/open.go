package service

import (
	"fmt"

	"github.com/charmbracelet/log"

	"pivoteditor/internal/config"
	"pivoteditor/internal/storage"
)

// Env is the storage and services a host runs on.
type Env struct {
	DB        *storage.DB
	Documents *DocumentService
	Window    *WindowSettingsService
}

// Open opens the application database under cfg.DataDir and creates the
// document service configured by cfg.
func Open(cfg *config.Config, emitter EventEmitter, logger *log.Logger) (*Env, error) {
	db, err := storage.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	docs := NewDocumentService(emitter, DocumentOptions{
		History:           storage.NewHistoryStore(db, cfg.History.Limit),
		Recent:            storage.NewRecentFileStore(db, cfg.Recent.Limit),
		Logger:            logger,
		DefaultModel:      cfg.Editor.DefaultModel,
		SwitchPolicy:      cfg.Editor.UnsavedSwitch,
		EnforceValidation: cfg.Editor.EnforceValidation,
	})

	return &Env{
		DB:        db,
		Documents: docs,
		Window:    NewWindowSettingsService(storage.NewSettingsStore(db)),
	}, nil
}

// Close stops background work and closes the database.
func (e *Env) Close() error {
	e.Documents.StopAutosnapshot()
	return e.DB.Close()
}
