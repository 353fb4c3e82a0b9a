package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"pivoteditor/internal/domain"
)

func (s *Server) registerDocumentTools() {
	// ── open_document ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_document",
		mcp.WithDescription("Open a pivot document (.osheet.json) from disk, replacing the current one. Unsaved edits are lost."),
		mcp.WithString("path",
			mcp.Description("Path of the JSON document"),
			mcp.Required(),
		),
	), s.handleOpenDocument)

	// ── list_pivots ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pivots",
		mcp.WithDescription("List the pivots of the open document with their id, name, model and validity"),
	), s.handleListPivots)

	// ── get_pivot ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_pivot",
		mcp.WithDescription("Return the committed JSON definition of one pivot"),
		mcp.WithString("id",
			mcp.Description("Pivot id"),
			mcp.Required(),
		),
	), s.handleGetPivot)

	// ── add_pivot ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_pivot",
		mcp.WithDescription("Add a new pivot skeleton under the next free numeric id and select it"),
	), s.handleAddPivot)

	// ── delete_pivot ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_pivot",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a pivot from the document. Requires user approval."),
		mcp.WithString("id",
			mcp.Description("Pivot id"),
			mcp.Required(),
		),
	), s.handleDeletePivot)

	// ── import_pivots ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("import_pivots",
		mcp.WithDescription("Import every pivot of another document under fresh ids. Imported pivots are renamed \"imported\"."),
		mcp.WithString("path",
			mcp.Description("Path of the document to import"),
		),
		mcp.WithString("json",
			mcp.Description("Document contents, used when no path is given"),
		),
	), s.handleImportPivots)

	// ── validate_document ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("validate_document",
		mcp.WithDescription("Check that every pivot has id, name, model and array-valued measures, rowGroupBys and domain"),
	), s.handleValidateDocument)

	// ── save_document ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Write the committed document to disk. Uncommitted edits are not saved."),
		mcp.WithString("path",
			mcp.Description("Destination path"),
			mcp.Required(),
		),
	), s.handleSaveDocument)
}

func (s *Server) handleOpenDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if err := s.docs.LoadFile(ctx, path); err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return jsonResult(s.docs.Document())
}

func (s *Server) handleListPivots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.docs.Document().Pivots)
}

func (s *Server) handleGetPivot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	p, err := s.docs.Pivot(id)
	if err != nil {
		return nil, err
	}
	return jsonResult(p)
}

func (s *Server) handleAddPivot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.docs.AddPivot(ctx)
	if err != nil {
		return nil, fmt.Errorf("add pivot: %w", err)
	}
	return textResult(fmt.Sprintf("Added pivot %s", id)), nil
}

func (s *Server) handleDeletePivot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	p, err := s.docs.Pivot(id)
	if err != nil {
		return nil, err
	}

	approved, err := s.approval.Request("delete_pivot",
		fmt.Sprintf("Delete pivot %s (%s)", id, p.DisplayName()))
	if err != nil {
		return nil, err
	}
	if !approved {
		return textResult("Deletion cancelled"), nil
	}

	if err := s.docs.DeletePivot(ctx, id); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Deleted pivot %s", id)), nil
}

func (s *Server) handleImportPivots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		res domain.ImportResult
		err error
	)
	if path := req.GetString("path", ""); path != "" {
		res, err = s.docs.ImportFile(ctx, path)
	} else if text := req.GetString("json", ""); text != "" {
		res, err = s.docs.Import(ctx, "mcp", []byte(text))
	} else {
		return nil, fmt.Errorf("path or json is required")
	}
	if err != nil {
		return nil, fmt.Errorf("import pivots: %w", err)
	}
	if res.Count == 0 {
		return textResult("No pivots found in imported file"), nil
	}
	return textResult(fmt.Sprintf("Imported %d pivot(s) starting at id %s", res.Count, res.FirstID)), nil
}

func (s *Server) handleValidateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	err := s.docs.Validate()
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return textResult("All pivots are valid"), nil
	case errors.As(err, &verr):
		return textResult("Invalid pivots: " + strings.Join(verr.IDs, ", ")), nil
	default:
		return nil, err
	}
}

func (s *Server) handleSaveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if err := s.docs.SaveTo(ctx, path); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return textResult("Saved " + path), nil
}
