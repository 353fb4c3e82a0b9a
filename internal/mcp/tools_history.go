package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	// ── list_snapshots ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_snapshots",
		mcp.WithDescription("List saved states of the open document, newest first"),
	), s.handleListSnapshots)

	// ── restore_snapshot ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("restore_snapshot",
		mcp.WithDescription("🛑 DESTRUCTIVE: Replace the document with a saved state. Requires user approval."),
		mcp.WithString("id",
			mcp.Description("Snapshot id from list_snapshots"),
			mcp.Required(),
		),
	), s.handleRestoreSnapshot)

	// ── clear_history ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("clear_history",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete every saved state of the open document. Requires user approval."),
	), s.handleClearHistory)
}

func (s *Server) handleListSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snaps, err := s.docs.History()
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return jsonResult(snaps)
}

func (s *Server) handleRestoreSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}

	approved, err := s.approval.Request("restore_snapshot", "Restore snapshot "+id)
	if err != nil {
		return nil, err
	}
	if !approved {
		return textResult("Restore cancelled"), nil
	}

	if err := s.docs.Restore(ctx, id); err != nil {
		return nil, err
	}
	return textResult("Restored snapshot " + id), nil
}

func (s *Server) handleClearHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	approved, err := s.approval.Request("clear_history", "Delete the snapshot history of the open document")
	if err != nil {
		return nil, err
	}
	if !approved {
		return textResult("Clear cancelled"), nil
	}

	n, err := s.docs.ClearHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear history: %w", err)
	}
	return textResult(fmt.Sprintf("Deleted %d snapshot(s)", n)), nil
}
