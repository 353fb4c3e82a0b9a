package app

import (
	"errors"
	"fmt"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"pivoteditor/internal/domain"
	"pivoteditor/internal/service"
	"pivoteditor/internal/session"
)

// ============================================================
// Pivots and the edit session
// ============================================================

// GetSession returns the edit buffer and its state.
func (a *App) GetSession() service.SessionView {
	return a.docs.Session()
}

// GetPivot returns a committed pivot.
func (a *App) GetPivot(id string) (domain.Pivot, error) {
	return a.docs.Pivot(id)
}

// SelectPivot checks out a pivot for editing. Under the block policy a dirty
// buffer makes this fail with a message the frontend can show.
func (a *App) SelectPivot(id string) error {
	err := a.docs.Select(a.ctx, id)
	if errors.Is(err, session.ErrUnsavedChanges) {
		return fmt.Errorf("save or discard your changes first: %w", err)
	}
	return err
}

// EditPivot merges patch into the edit buffer.
func (a *App) EditPivot(patch domain.PivotPatch) error {
	return a.docs.Edit(a.ctx, patch)
}

// CommitPivot saves the edit buffer into the document.
func (a *App) CommitPivot() error {
	if err := a.docs.Commit(a.ctx); err != nil {
		wailsRuntime.LogErrorf(a.ctx, "Commit failed: %v", err)
		return err
	}
	return nil
}

// DiscardChanges reloads the edit buffer from the document.
func (a *App) DiscardChanges() {
	a.docs.Discard(a.ctx)
}

// AddPivot adds a skeleton pivot and returns its id.
func (a *App) AddPivot() (string, error) {
	return a.docs.AddPivot(a.ctx)
}

// DeletePivot removes a pivot after a native confirmation. Returns false
// when the user cancels.
func (a *App) DeletePivot(id string) (bool, error) {
	p, err := a.docs.Pivot(id)
	if err != nil {
		return false, err
	}
	if !a.confirm("Delete pivot", fmt.Sprintf("Delete %s?", service.Label(id, p))) {
		return false, nil
	}
	if err := a.docs.DeletePivot(a.ctx, id); err != nil {
		return false, err
	}
	return true, nil
}
