// Package router sets up HTTP routes for the canvas UI server.
package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	canvasstore "github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/layout"
	"github.com/leapstack-labs/flowcanvas/internal/runner"
	"github.com/leapstack-labs/flowcanvas/internal/state"
	canvasFeature "github.com/leapstack-labs/flowcanvas/internal/ui/features/canvas"
	dataFeature "github.com/leapstack-labs/flowcanvas/internal/ui/features/data"
	runsFeature "github.com/leapstack-labs/flowcanvas/internal/ui/features/runs"
	"github.com/leapstack-labs/flowcanvas/internal/ui/notifier"
	"github.com/leapstack-labs/flowcanvas/internal/ui/resources"
)

// Deps carries everything the feature routes need.
type Deps struct {
	ProjectID    int
	ProjectName  string
	Store        *canvasstore.Store
	Runner       *runner.Runner
	Layout       *layout.Service
	Client       *api.Client
	State        *state.SQLiteStore // may be nil
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Logger       *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(r chi.Router, deps Deps) error {
	r.Handle("/static/*", resources.Handler())

	canvasHandlers, err := canvasFeature.NewHandlers(
		deps.ProjectID, deps.ProjectName, deps.Store, deps.Runner,
		deps.Layout, deps.Client, deps.Notifier, deps.SessionStore, deps.Logger)
	if err != nil {
		return err
	}
	canvasFeature.SetupRoutes(r, canvasHandlers)

	dataHandlers, err := dataFeature.NewHandlers(deps.ProjectID, deps.Client, deps.Store, deps.Logger)
	if err != nil {
		return err
	}
	dataFeature.SetupRoutes(r, dataHandlers)

	runsHandlers, err := runsFeature.NewHandlers(deps.ProjectID, deps.State, deps.Client, deps.Logger)
	if err != nil {
		return err
	}
	runsFeature.SetupRoutes(r, runsHandlers)

	return nil
}
