// Package commands implements the flowcanvas subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/config"
	"github.com/leapstack-labs/flowcanvas/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Client *api.Client
}

// NewCommandContext builds the shared dependencies from the loaded config.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	client := api.NewClient(api.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Client: client,
	}
}

// outputFormat returns the configured output format for a command.
func outputFormat(cmd *cobra.Command) string {
	return config.GetConfig(cmd.Context()).OutputFormat
}

// requireProject checks that a project id is configured.
func (cc *CommandContext) requireProject() error {
	if cc.Cfg.ProjectID == 0 {
		return fmt.Errorf("no project selected: pass --project or set project in flowcanvas.yaml")
	}
	return nil
}

// openState opens the local state database, creating its directory and
// running migrations. The caller must Close it.
func (cc *CommandContext) openState() (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(cc.Cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	st := state.NewSQLiteStore(cc.Logger)
	if err := st.Open(cc.Cfg.StatePath); err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// projectGraph is everything loadGraph fetches from the backend.
type projectGraph struct {
	Project *api.Project
	Nodes   []canvas.Node
	Edges   []canvas.Edge
}

// loadGraph fetches the project, its entity lists, and the saved layout,
// and assembles the canvas graph. When the backend has no layout, the
// local cache (if any) is consulted before falling back to grid placement.
func (cc *CommandContext) loadGraph(ctx context.Context, cache *state.SQLiteStore) (*projectGraph, error) {
	projectID := cc.Cfg.ProjectID

	project, err := cc.Client.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %d: %w", projectID, err)
	}

	var (
		sources    []api.Source
		transforms []api.Transform
		joins      []api.Join
		quals      []api.Qualitative
		saved      *api.Layout
	)

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		sources, err = cc.Client.ListSources(egctx, projectID)
		return err
	})
	eg.Go(func() error {
		var err error
		transforms, err = cc.Client.ListTransforms(egctx, projectID)
		return err
	})
	eg.Go(func() error {
		var err error
		joins, err = cc.Client.ListJoins(egctx, projectID)
		return err
	})
	eg.Go(func() error {
		var err error
		quals, err = cc.Client.ListQualitative(egctx, projectID)
		return err
	})
	eg.Go(func() error {
		layout, err := cc.Client.GetLayout(egctx, projectID)
		if err != nil {
			if api.IsNotFound(err) {
				return nil
			}
			return err
		}
		saved = layout
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load project graph: %w", err)
	}

	if saved == nil && cache != nil {
		cached, err := cache.GetLayout(projectID)
		if err != nil {
			cc.Logger.Warn("failed to read cached layout", "error", err)
		} else if cached != nil {
			cc.Logger.Debug("using locally cached layout")
			saved = cached
		}
	}

	nodes, edges := canvas.BuildGraph(saved, sources, transforms, joins, quals)
	return &projectGraph{Project: project, Nodes: nodes, Edges: edges}, nil
}
