// Package cli implements the pivotctl command-line interface.
//
// pivotctl works on pivot documents without the desktop app: it validates,
// lists, formats and merges them, opens them in a terminal editor, and serves
// them to AI agents over MCP.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// attached to the command context and retrieved with loggerFromContext.
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"pivoteditor/internal/config"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version. Values are
// injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// options are the persistent flags shared by all commands.
type options struct {
	verbose    bool
	configPath string
}

// loadConfig reads the configuration named by --config.
func (o *options) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

// NewRootCommand builds the pivotctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "pivotctl",
		Short:         "pivotctl inspects and edits pivot documents",
		Long:          `pivotctl validates, lists, formats and merges the pivot definitions of spreadsheet documents, and edits them in the terminal.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("pivotctl %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.Path(), "config file")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newFmtCmd())
	root.AddCommand(newMergeCmd())
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newEditCmd(opts))
	root.AddCommand(newMCPCmd(opts))

	return root
}

// Execute runs pivotctl with os.Args.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	root.SetErr(os.Stderr)
	return root.ExecuteContext(ctx)
}
