package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("review_pivots",
		mcp.WithPromptDescription("Review the open document and fix structurally invalid pivots"),
	), s.handleReviewPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("design_pivot",
		mcp.WithPromptDescription("Create a new pivot for a reporting question"),
		mcp.WithArgument("model",
			mcp.ArgumentDescription("Target data model, e.g. crm.lead"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("question",
			mcp.ArgumentDescription("What the pivot should answer"),
			mcp.RequiredArgument(),
		),
	), s.handleDesignPrompt)
}

func (s *Server) handleReviewPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Review pivot definitions",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: `Review the pivots of the open document. Follow these steps:

1. Run validate_document to find invalid pivots.
2. For each invalid id, use select_pivot and session_state to inspect it.
3. Use edit_pivot to fill in a missing name or model, and to turn measures, rowGroupBys or domain into JSON arrays.
4. Call commit_pivot after each pivot, then validate_document again.

Do not change pivots that are already valid, and never save the document without asking.`,
				},
			},
		},
	}, nil
}

func (s *Server) handleDesignPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	model := req.Params.Arguments["model"]
	question := req.Params.Arguments["question"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Design a %s pivot", model),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Create a pivot on the model "%s" that answers: %s

1. Call add_pivot; the new pivot is selected.
2. Use edit_pivot to set name, model "%s", a domain filter, rowGroupBys and measures (objects with a "field" key).
3. Call commit_pivot and check the result with get_pivot.`, model, question, model),
				},
			},
		},
	}, nil
}
