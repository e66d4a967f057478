// Package data serves the paginated output-table viewer.
package data

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	canvasstore "github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/tableref"
	"github.com/leapstack-labs/flowcanvas/internal/viewer"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Handlers provides HTTP handlers for the data feature.
type Handlers struct {
	projectID int
	client    viewer.Fetcher
	store     *canvasstore.Store
	logger    *slog.Logger
	tmpl      *template.Template
}

// NewHandlers creates the data feature handlers.
func NewHandlers(projectID int, client viewer.Fetcher, store *canvasstore.Store, logger *slog.Logger) (*Handlers, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing data templates: %w", err)
	}
	return &Handlers{
		projectID: projectID,
		client:    client,
		store:     store,
		logger:    logger,
		tmpl:      tmpl,
	}, nil
}

// pageView is the render model for the table page.
type pageView struct {
	Title      string
	NodeID     string
	Query      string
	Columns    []string
	Rows       [][]string
	PageNum    int
	PageCount  int
	MatchCount int
	TotalRows  int
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
}

// load resolves the node, fetches its table, and applies query parameters.
func (h *Handlers) load(r *http.Request) (*viewer.Viewer, error) {
	nodeID := chi.URLParam(r, "id")
	ref, err := tableref.ParseNodeID(nodeID)
	if err != nil {
		return nil, err
	}

	title := nodeID
	if n, ok := h.store.Node(nodeID); ok && n.Data.Name != "" {
		title = n.Data.Name
	}

	v, err := viewer.Load(r.Context(), h.client, h.projectID, ref, title)
	if err != nil {
		return nil, err
	}
	if q := r.URL.Query().Get("q"); q != "" {
		v.SetFilter(q)
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			v.SetPage(n - 1)
		}
	}
	return v, nil
}

// DataPage renders one page of a node's output table.
func (h *Handlers) DataPage(w http.ResponseWriter, r *http.Request) {
	v, err := h.load(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	view := pageView{
		Title:      v.Title,
		NodeID:     v.Ref.NodeID(),
		Query:      v.Filter(),
		Columns:    v.Columns(),
		Rows:       v.Rows(),
		PageNum:    v.Page() + 1,
		PageCount:  v.PageCount(),
		MatchCount: v.MatchCount(),
		TotalRows:  v.TotalRows(),
		HasPrev:    v.Page() > 0,
		HasNext:    v.Page() < v.PageCount()-1,
		PrevPage:   v.Page(),
		NextPage:   v.Page() + 2,
	}
	if err := h.tmpl.ExecuteTemplate(w, "datapage", view); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ExportCSV streams the filtered rows as a CSV download.
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	v, err := h.load(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", v.Ref.NodeID()+".csv"))
	if err := v.ExportCSV(w); err != nil {
		h.logger.Warn("csv export failed", "node", v.Ref.NodeID(), "error", err)
	}
}
