package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSessionTools() {
	// ── session_state ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("session_state",
		mcp.WithDescription("Show the selected pivot, whether it has unsaved changes, and the edit buffer"),
	), s.handleSessionState)

	// ── select_pivot ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select_pivot",
		mcp.WithDescription("Check out a pivot into the edit buffer. May be refused while the buffer has unsaved changes."),
		mcp.WithString("id",
			mcp.Description("Pivot id"),
			mcp.Required(),
		),
	), s.handleSelectPivot)

	// ── edit_pivot ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("edit_pivot",
		mcp.WithDescription("Change fields of the edit buffer. Only the given fields change. Call commit_pivot to write them into the document."),
		mcp.WithString("id", mcp.Description("New pivot id; must not be used by another pivot")),
		mcp.WithString("name", mcp.Description("Display name")),
		mcp.WithString("model", mcp.Description("Target data model, e.g. crm.lead")),
		mcp.WithString("domain", mcp.Description("Filter domain as JSON, e.g. [[\"stage\", \"=\", \"won\"]]")),
		mcp.WithString("rowGroupBys", mcp.Description("Grouping fields as a JSON array of strings")),
		mcp.WithString("measures", mcp.Description("Measures as a JSON array of objects with a \"field\" key")),
		mcp.WithString("sortedColumn", mcp.Description("Sort column as JSON")),
	), s.handleEditPivot)

	// ── commit_pivot ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("commit_pivot",
		mcp.WithDescription("Write the edit buffer into the document"),
	), s.handleCommitPivot)

	// ── discard_changes ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("discard_changes",
		mcp.WithDescription("Drop unsaved changes and reload the buffer from the document"),
	), s.handleDiscardChanges)
}

func (s *Server) handleSessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.docs.Session())
}

func (s *Server) handleSelectPivot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	if err := s.docs.Select(ctx, id); err != nil {
		return nil, fmt.Errorf("select pivot: %w", err)
	}
	return jsonResult(s.docs.Session())
}

func (s *Server) handleEditPivot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patch, err := patchFromArgs(req.GetArguments())
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, fmt.Errorf("no field to change")
	}
	if err := s.docs.Edit(ctx, patch); err != nil {
		return nil, fmt.Errorf("edit pivot: %w", err)
	}
	return jsonResult(s.docs.Session())
}

func (s *Server) handleCommitPivot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.docs.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit pivot: %w", err)
	}
	return textResult(fmt.Sprintf("Committed pivot %s", s.docs.Session().Selected)), nil
}

func (s *Server) handleDiscardChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.docs.Discard(ctx)
	return jsonResult(s.docs.Session())
}
