package commands

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/layout"
	"github.com/leapstack-labs/flowcanvas/internal/runner"
	"github.com/leapstack-labs/flowcanvas/internal/ui"
)

// CanvasOptions holds options for the canvas command.
type CanvasOptions struct {
	Port      int
	NoBrowser bool
}

// NewCanvasCommand creates the canvas command.
func NewCanvasCommand() *cobra.Command {
	opts := &CanvasOptions{}

	cmd := &cobra.Command{
		Use:   "canvas",
		Short: "Open the visual pipeline canvas",
		Long: `Start a local web server serving the interactive pipeline canvas.

The canvas shows the project's sources, transformation steps, joins, and
qualitative analyses as connected nodes. Node positions are saved back to
the backend automatically as you arrange them.`,
		Example: `  # Open the canvas for the configured project
  flowcanvas canvas

  # Serve on a custom port without opening a browser
  flowcanvas canvas --port 3000 --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCanvas(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")

	return cmd
}

func runCanvas(cmd *cobra.Command, opts *CanvasOptions) error {
	cc := NewCommandContext(cmd)
	if err := cc.requireProject(); err != nil {
		return err
	}

	uiCfg := cc.Cfg.GetUIConfig()
	port := uiCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	autoOpen := uiCfg.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	// Local state is optional: the canvas still works without run history
	// or a layout cache.
	st, err := cc.openState()
	if err != nil {
		cc.Logger.Warn("local state unavailable, continuing without it", "error", err)
		st = nil
	} else {
		defer func() { _ = st.Close() }()
	}

	graph, err := cc.loadGraph(cmd.Context(), st)
	if err != nil {
		return err
	}

	store := canvas.NewStore(cc.Logger)
	store.ReplaceGraph(graph.Nodes, graph.Edges)

	autosave := cc.Cfg.GetAutosave()
	layoutCfg := layout.Config{
		ProjectID: cc.Cfg.ProjectID,
		Store:     store,
		Saver:     cc.Client,
		Logger:    cc.Logger,
		Interval:  autosave.Interval,
		Coalesce:  autosave.Coalesce,
	}
	if st != nil {
		layoutCfg.Cache = st
	}
	layoutSvc := layout.NewService(layoutCfg)

	var history runner.History
	if st != nil {
		history = st
	}
	run := runner.New(cc.Cfg.ProjectID, store, cc.Client, history, cc.Logger)

	server := ui.NewServer(ui.Config{
		ProjectID:   cc.Cfg.ProjectID,
		ProjectName: graph.Project.Name,
		Store:       store,
		Runner:      run,
		Layout:      layoutSvc,
		Client:      cc.Client,
		State:       st,
		Port:        port,
		Logger:      cc.Logger,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	layoutSvc.Start(ctx)
	defer layoutSvc.Stop()

	if autoOpen {
		go openBrowser(server.URL())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Canvas for %q on %s\n", graph.Project.Name, server.URL())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	return server.Serve(ctx)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
