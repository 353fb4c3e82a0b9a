package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pivoteditor/internal/domain"
)

const (
	uriDocument = "pivots://document"
	uriSession  = "pivots://session"
)

func (s *Server) registerResources() {
	// ── pivots://document ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		uriDocument,
		"Committed Document",
		mcp.WithMIMEType("application/json"),
	), s.handleDocumentResource)

	// ── pivots://session ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		uriSession,
		"Edit Session",
		mcp.WithMIMEType("application/json"),
	), s.handleSessionResource)

	// ── pivots://pivot/{id} ────────────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"pivots://pivot/{id}",
			"Pivot Definition",
		),
		s.handlePivotResource,
	)
}

func (s *Server) handleDocumentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := domain.Serialize(s.docs.Committed())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uriDocument,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleSessionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.docs.Session(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uriSession,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePivotResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := pivotIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract pivot id from URI: %s", uri)
	}

	p, err := s.docs.Pivot(id)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
