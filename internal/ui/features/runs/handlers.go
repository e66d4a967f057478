// Package runs serves the execution history page: runs triggered from this
// machine alongside the backend's own pipeline history.
package runs

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/state"
)

//go:embed templates/*.html
var templatesFS embed.FS

const historyLimit = 25

// HistoryClient fetches backend pipeline history.
type HistoryClient interface {
	GetHistory(ctx context.Context, projectID, limit int) ([]api.HistoryEntry, error)
}

// Handlers provides HTTP handlers for the runs feature.
type Handlers struct {
	projectID int
	store     *state.SQLiteStore
	client    HistoryClient
	logger    *slog.Logger
	tmpl      *template.Template
}

// NewHandlers creates the runs feature handlers. store may be nil when no
// local state database is configured.
func NewHandlers(projectID int, store *state.SQLiteStore, client HistoryClient, logger *slog.Logger) (*Handlers, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing runs templates: %w", err)
	}
	return &Handlers{
		projectID: projectID,
		store:     store,
		client:    client,
		logger:    logger,
		tmpl:      tmpl,
	}, nil
}

type localRun struct {
	Target   string
	Status   string
	Duration string
	Rows     int
	Started  string
	Error    string
}

type runsView struct {
	Local   []localRun
	Backend []api.HistoryEntry
}

// RunsPage renders both history tables. Either source failing degrades to
// an empty table rather than a failed page.
func (h *Handlers) RunsPage(w http.ResponseWriter, r *http.Request) {
	var view runsView

	if h.store != nil {
		local, err := h.store.ListRuns(h.projectID, historyLimit)
		if err != nil {
			h.logger.Warn("listing local runs failed", "error", err)
		}
		for _, run := range local {
			view.Local = append(view.Local, localRun{
				Target:   run.Target,
				Status:   run.Status,
				Duration: run.Duration.String(),
				Rows:     run.Rows,
				Started:  run.StartedAt.Format("2006-01-02 15:04:05"),
				Error:    run.Error,
			})
		}
	}

	backend, err := h.client.GetHistory(r.Context(), h.projectID, historyLimit)
	if err != nil {
		h.logger.Warn("fetching backend history failed", "error", err)
	}
	view.Backend = backend

	if err := h.tmpl.ExecuteTemplate(w, "runspage", view); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// SetupRoutes registers the runs feature routes.
func SetupRoutes(router chi.Router, h *Handlers) {
	router.Get("/runs", h.RunsPage)
}
