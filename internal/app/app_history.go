package app

import (
	"fmt"

	"pivoteditor/internal/storage"
)

// ============================================================
// Snapshot history
// ============================================================

// History lists the snapshots of the open document, newest first.
func (a *App) History() ([]storage.Snapshot, error) {
	return a.docs.History()
}

// TakeSnapshot stores the committed document now.
func (a *App) TakeSnapshot(label string) bool {
	if label == "" {
		label = "manual"
	}
	return a.docs.Snapshot(label)
}

// RestoreSnapshot replaces the committed document with a snapshot.
func (a *App) RestoreSnapshot(id string) error {
	return a.docs.Restore(a.ctx, id)
}

// ClearHistory deletes the snapshots of the open document after a native
// confirmation. Returns -1 when the user cancels.
func (a *App) ClearHistory() (int, error) {
	snaps, err := a.docs.History()
	if err != nil {
		return 0, err
	}
	if len(snaps) == 0 {
		return 0, nil
	}
	if !a.confirm("Clear history", fmt.Sprintf("Delete %d snapshot(s) of this document?", len(snaps))) {
		return -1, nil
	}
	return a.docs.ClearHistory(a.ctx)
}

// ============================================================
// MCP approvals
// ============================================================

// ApproveMCPAction lets a pending destructive MCP tool call proceed.
func (a *App) ApproveMCPAction(actionID string) {
	if a.mcp != nil {
		a.mcp.Approve(actionID)
	}
}

// RejectMCPAction refuses a pending destructive MCP tool call.
func (a *App) RejectMCPAction(actionID string) {
	if a.mcp != nil {
		a.mcp.Reject(actionID)
	}
}
