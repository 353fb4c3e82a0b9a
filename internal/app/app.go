package app

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"pivoteditor/internal/config"
	mcpserver "pivoteditor/internal/mcp"
	"pivoteditor/internal/service"
	"pivoteditor/internal/session"
	"pivoteditor/internal/watch"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	logger *log.Logger

	env     *service.Env
	docs    *service.DocumentService
	window  *service.WindowSettingsService
	watcher *watch.Watcher
	mcp     *mcpserver.Server

	watchedPath string
}

// New opens storage and creates the services. Anything that needs the Wails
// context is deferred to Startup.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		cfg: cfg,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           log.InfoLevel,
		}),
	}

	env, err := service.Open(cfg, wailsEmitter{app: a}, a.logger)
	if err != nil {
		return nil, err
	}
	a.env = env
	a.docs = env.Documents
	a.window = env.Window
	return a, nil
}

// WindowSize returns the size the main window should open with.
func (a *App) WindowSize() service.WindowSize {
	return a.window.LoadWindowSize()
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	if a.cfg.Editor.UnsavedSwitch == session.SwitchPrompt {
		a.docs.SetPrompter(session.SwitchPrompt, session.PrompterFunc(a.confirmSwitch))
	}

	if err := a.docs.StartAutosnapshot(a.cfg.History.Autosnapshot); err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to schedule autosnapshot: %v", err)
	}

	// External modifications of the open file → frontend event
	w, err := watch.New(func(path string) {
		a.docs.NotifyFileChanged(ctx, path)
	}, a.logger)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to create file watcher: %v", err)
	}
	a.watcher = w

	if a.cfg.MCP.Listen != "" {
		a.mcp = mcpserver.New(ctx, mcpserver.Deps{
			Emitter:     wailsEmitter{app: a},
			Documents:   a.docs,
			Logger:      a.logger,
			AutoApprove: a.cfg.MCP.AutoApprove,
		})
		go func() {
			if err := a.mcp.ServeHTTP(a.cfg.MCP.Listen); err != nil {
				wailsRuntime.LogErrorf(ctx, "MCP server stopped: %v", err)
			}
		}()
	}

	if last := a.window.LastFile(); last != "" {
		if _, err := os.Stat(last); err == nil {
			if err := a.openPath(last); err != nil {
				wailsRuntime.LogErrorf(ctx, "Failed to reopen %s: %v", last, err)
			}
		}
	}
}

// BeforeClose remembers the window size. It never prevents closing.
func (a *App) BeforeClose(ctx context.Context) bool {
	w, h := wailsRuntime.WindowGetSize(ctx)
	if err := a.window.SaveWindowSize(w, h); err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to save window size: %v", err)
	}
	return false
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.mcp != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		a.mcp.Shutdown(shutdownCtx)
		cancel()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.env != nil {
		a.env.Close()
	}
}

// ── Wails plumbing ────────────────────────────────────────

// wailsEmitter sends service events to the frontend. Services are also
// driven from the MCP and cron goroutines, whose contexts Wails does not
// know, so the app context is always used.
type wailsEmitter struct {
	app *App
}

func (e wailsEmitter) Emit(_ context.Context, event string, data any) {
	if e.app.ctx == nil {
		return
	}
	wailsRuntime.EventsEmit(e.app.ctx, event, data)
}

// confirmSwitch asks what to do with unsaved changes before another pivot is
// selected.
func (a *App) confirmSwitch(from, to string) session.Decision {
	msg := "Pivot " + from + " has unsaved changes. Save them before switching?"
	if to == "" {
		msg = "Pivot " + from + " has unsaved changes. Save them before closing it?"
	}
	choice, err := wailsRuntime.MessageDialog(a.ctx, wailsRuntime.MessageDialogOptions{
		Type:          wailsRuntime.QuestionDialog,
		Title:         "Unsaved changes",
		Message:       msg,
		Buttons:       []string{"Save", "Discard", "Cancel"},
		DefaultButton: "Save",
		CancelButton:  "Cancel",
	})
	if err != nil {
		wailsRuntime.LogErrorf(a.ctx, "Switch dialog failed: %v", err)
		return session.DecisionCancel
	}
	return decisionFromButton(choice)
}

// decisionFromButton maps a dialog answer to a Decision. macOS answers
// "Yes"/"No" for two-button question dialogs.
func decisionFromButton(choice string) session.Decision {
	switch choice {
	case "Save", "Yes":
		return session.DecisionSave
	case "Discard", "No":
		return session.DecisionDiscard
	default:
		return session.DecisionCancel
	}
}

// confirm shows a yes/no question.
func (a *App) confirm(title, message string) bool {
	choice, err := wailsRuntime.MessageDialog(a.ctx, wailsRuntime.MessageDialogOptions{
		Type:          wailsRuntime.QuestionDialog,
		Title:         title,
		Message:       message,
		Buttons:       []string{"Delete", "Cancel"},
		DefaultButton: "Cancel",
		CancelButton:  "Cancel",
	})
	if err != nil {
		wailsRuntime.LogErrorf(a.ctx, "Confirm dialog failed: %v", err)
		return false
	}
	return choice == "Delete" || choice == "Yes" || choice == "Ok"
}
