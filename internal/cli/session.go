package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	mcpserver "pivoteditor/internal/mcp"
	"pivoteditor/internal/service"
	"pivoteditor/internal/storage"
	"pivoteditor/internal/tui"
)

// =============================================================================
// history
// =============================================================================

func newHistoryCmd(opts *options) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "history <file>",
		Short: "List the stored snapshots of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			db, err := storage.New(cfg.DBPath())
			if err != nil {
				return err
			}
			defer db.Close()

			history := storage.NewHistoryStore(db, cfg.History.Limit)
			out := cmd.OutOrStdout()
			if clearAll {
				n, err := history.Clear(path)
				if err != nil {
					return err
				}
				printSuccess(out, "Deleted %d snapshot(s) of %s", n, path)
				return nil
			}

			snapshots, err := history.List(path)
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				printInfo(out, "No snapshots for %s", path)
				return nil
			}
			fmt.Fprintln(out, styleTitle.Render(path))
			for _, s := range snapshots {
				fmt.Fprintf(out, "%s  %s  %s\n",
					styleDim.Render(s.CreatedAt.Local().Format("2006-01-02 15:04:05")),
					styleValue.Render(s.Label),
					styleDim.Render(fmt.Sprintf("(%d pivots, %s)", s.PivotCount, s.ID)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete the snapshots instead of listing them")
	return cmd
}

// =============================================================================
// edit
// =============================================================================

func newEditCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "edit <file>",
		Short: "Edit a document in the terminal",
		Long: `Open a document in a terminal editor. Pivots are edited one at a time and
written back to the file (or to --output) with "w".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = path
			}

			// The alternate screen owns the terminal; keep the log quiet.
			env, err := service.Open(cfg, service.NoopEmitter{}, charmlog.New(io.Discard))
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.Documents.LoadFile(cmd.Context(), path); err != nil {
				return err
			}
			return tui.Run(env.Documents, output, cfg.Editor.UnsavedSwitch)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file written by the editor (default: the opened file)")
	return cmd
}

// =============================================================================
// mcp
// =============================================================================

func newMCPCmd(opts *options) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "mcp [file]",
		Short: "Serve a document to AI agents over MCP",
		Long: `Serve the MCP tools, resources and prompts of the editor on stdin/stdout,
or over streamable HTTP with --listen. Destructive tools run without
confirmation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			env, err := service.Open(cfg, service.NoopEmitter{}, logger)
			if err != nil {
				return err
			}
			defer env.Close()

			if len(args) == 1 {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				if err := env.Documents.LoadFile(ctx, path); err != nil {
					return err
				}
			}
			if err := env.Documents.StartAutosnapshot(cfg.History.Autosnapshot); err != nil {
				logger.Warn("autosnapshot disabled", "err", err)
			}

			srv := mcpserver.New(ctx, mcpserver.Deps{
				Documents:   env.Documents,
				Logger:      logger,
				AutoApprove: true,
			})
			if listen != "" {
				go func() {
					<-ctx.Done()
					srv.Shutdown(context.Background())
				}()
				return srv.ServeHTTP(listen)
			}
			return srv.ServeStdio()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}
