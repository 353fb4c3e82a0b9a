package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"pivoteditor/internal/config"
	mcpserver "pivoteditor/internal/mcp"
	"pivoteditor/internal/service"
)

// ServeMCP runs the editor as a standalone MCP server on stdin/stdout with no
// GUI. When path is set that document is opened first. stdout belongs to the
// protocol, so logs go to stderr.
func ServeMCP(cfg *config.Config, path string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           log.InfoLevel,
	})

	env, err := service.Open(cfg, service.NoopEmitter{}, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	if path != "" {
		if err := env.Documents.LoadFile(ctx, path); err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
	}
	if err := env.Documents.StartAutosnapshot(cfg.History.Autosnapshot); err != nil {
		logger.Warn("autosnapshot disabled", "err", err)
	}

	// Nobody is around to approve destructive tools.
	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:     service.NoopEmitter{},
		Documents:   env.Documents,
		Logger:      logger,
		AutoApprove: true,
	})
	if err := mcpSrv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
