package main

import (
	"embed"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	editorApp "pivoteditor/internal/app"
	"pivoteditor/internal/config"
)

//go:embed all:frontend/dist
var assets embed.FS

//go:embed build/appicon.png
var icon []byte

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		println("Error:", err.Error())
		os.Exit(1)
	}

	// pivoteditor --mcp [file]: stdio MCP server without a window
	if len(os.Args) > 1 && os.Args[1] == "--mcp" {
		path := ""
		if len(os.Args) > 2 {
			path = os.Args[2]
		}
		if err := editorApp.ServeMCP(cfg, path); err != nil {
			println("Error:", err.Error())
			os.Exit(1)
		}
		return
	}

	app, err := editorApp.New(cfg)
	if err != nil {
		println("Error:", err.Error())
		os.Exit(1)
	}
	size := app.WindowSize()

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	err = wails.Run(&options.App{
		Title:     "Pivot Editor",
		Width:     size.Width,
		Height:    size.Height,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 15, G: 15, B: 20, A: 1},
		Menu:             appMenu,
		OnStartup:        app.Startup,
		OnBeforeClose:    app.BeforeClose,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				HideTitleBar:               false,
				FullSizeContent:            true,
				UseToolbar:                 true,
				HideToolbarSeparator:       true,
			},
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			About: &mac.AboutInfo{
				Title:   "Pivot Editor",
				Message: "Edit pivot definitions of spreadsheet documents",
				Icon:    icon,
			},
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
