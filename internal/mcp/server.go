package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"pivoteditor/internal/service"
)

// Server is the MCP server of the pivot editor.
// It exposes tools, resources, and prompts so AI agents can inspect and edit
// the open document.
type Server struct {
	mcp      *server.MCPServer
	approval *ApprovalQueue
	docs     *service.DocumentService
	logger   *log.Logger

	httpMu sync.Mutex
	http   *server.StreamableHTTPServer
}

// Deps holds all dependencies passed from the host to the MCP server.
type Deps struct {
	Emitter   EventEmitter
	Documents *service.DocumentService
	Logger    *log.Logger
	// AutoApprove skips the approval step for destructive tools.
	AutoApprove bool
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	if deps.Emitter == nil {
		deps.Emitter = service.NoopEmitter{}
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	approval := NewApprovalQueue(ctx, deps.Emitter)
	approval.SetAutoApprove(deps.AutoApprove)

	s := &Server{
		approval: approval,
		docs:     deps.Documents,
		logger:   deps.Logger.WithPrefix("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"pivoteditor-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerDocumentTools()
	s.registerSessionTools()
	s.registerHistoryTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ServeHTTP serves the streamable HTTP transport on addr until Shutdown.
func (s *Server) ServeHTTP(addr string) error {
	srv := server.NewStreamableHTTPServer(s.mcp)
	s.httpMu.Lock()
	s.http = srv
	s.httpMu.Unlock()

	s.logger.Info("starting http server", "addr", addr)
	if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve mcp http: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP transport, if running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpMu.Lock()
	srv := s.http
	s.httpMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
