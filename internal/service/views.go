package service

import (
	"fmt"

	"pivoteditor/internal/domain"
	"pivoteditor/internal/session"
)

// Notice levels.
const (
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is a user-facing message.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// PivotSummary is one line of the pivot list.
type PivotSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
	Label string `json:"label"`
	Valid bool   `json:"valid"`
}

// DocumentView is the committed document as shown in the sidebar.
type DocumentView struct {
	FileName string         `json:"fileName"`
	FilePath string         `json:"filePath"`
	Pivots   []PivotSummary `json:"pivots"`
	Invalid  []string       `json:"invalid"`
}

// SessionView is the edit buffer state.
type SessionView struct {
	State    session.State `json:"state"`
	Selected string        `json:"selected"`
	Dirty    bool          `json:"dirty"`
	Buffer   *domain.Pivot `json:"buffer"`
}

// SessionChanged is the payload of EventSessionChanged.
type SessionChanged struct {
	session.Transition
	Buffer *domain.Pivot `json:"buffer"`
}

// FileChanged is the payload of EventDocumentFileChanged.
type FileChanged struct {
	Path string `json:"path"`
}

// Label formats a pivot for list rows as id and display name.
func Label(id string, p domain.Pivot) string {
	return fmt.Sprintf("%s — %s", id, p.DisplayName())
}

func summarize(doc domain.Document) []PivotSummary {
	entries := doc.List()
	out := make([]PivotSummary, len(entries))
	for i, e := range entries {
		out[i] = PivotSummary{
			ID:    e.ID,
			Name:  e.Pivot.Name,
			Model: e.Pivot.DisplayModel(),
			Label: Label(e.ID, e.Pivot),
			Valid: domain.IsValid(e.Pivot),
		}
	}
	return out
}

func invalidIDs(doc domain.Document) []string {
	ids := []string{}
	for _, e := range doc.List() {
		if !domain.IsValid(e.Pivot) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
