// Package canvas serves the canvas page: the positioned graph, live status
// updates over SSE, and the node actions (drag, connect, create, execute,
// delete) the page posts back.
package canvas

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	canvasstore "github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/layout"
	"github.com/leapstack-labs/flowcanvas/internal/runner"
	"github.com/leapstack-labs/flowcanvas/internal/tableref"
	"github.com/leapstack-labs/flowcanvas/internal/ui/notifier"
	"github.com/leapstack-labs/flowcanvas/internal/workflow"
)

//go:embed templates/*.html
var templatesFS embed.FS

const sessionName = "flowcanvas"

// Handlers provides HTTP handlers for the canvas feature.
type Handlers struct {
	projectID    int
	projectName  string
	store        *canvasstore.Store
	runner       *runner.Runner
	layout       *layout.Service
	client       *api.Client
	notify       *notifier.Notifier
	sessionStore sessions.Store
	logger       *slog.Logger
	tmpl         *template.Template
}

// NewHandlers creates the canvas feature handlers.
func NewHandlers(
	projectID int,
	projectName string,
	store *canvasstore.Store,
	run *runner.Runner,
	layoutSvc *layout.Service,
	client *api.Client,
	notify *notifier.Notifier,
	sessionStore sessions.Store,
	logger *slog.Logger,
) (*Handlers, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing canvas templates: %w", err)
	}
	return &Handlers{
		projectID:    projectID,
		projectName:  projectName,
		store:        store,
		runner:       run,
		layout:       layoutSvc,
		client:       client,
		notify:       notify,
		sessionStore: sessionStore,
		logger:       logger,
		tmpl:         tmpl,
	}, nil
}

func (h *Handlers) view(flash string) CanvasView {
	var lastSaved string
	if when, _ := h.layout.LastSaved(); !when.IsZero() {
		lastSaved = when.Format("15:04:05")
	}
	return buildView(h.projectID, h.projectName,
		h.store.Nodes(), h.store.Edges(), h.runner.Busy(), lastSaved, flash)
}

// CanvasPage renders the full canvas page.
func (h *Handlers) CanvasPage(w http.ResponseWriter, r *http.Request) {
	flash := h.takeFlash(w, r)
	if err := h.tmpl.ExecuteTemplate(w, "page", h.view(flash)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// CanvasUpdates is the long-lived SSE endpoint. It re-renders the canvas
// fragment whenever the store broadcasts a change.
func (h *Handlers) CanvasUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notify.Subscribe()
	defer h.notify.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			var buf bytes.Buffer
			if err := h.tmpl.ExecuteTemplate(&buf, "canvas", h.view("")); err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElements(buf.String()); err != nil {
				return
			}
		}
	}
}

// ContextMenu renders the right-click launcher at the clicked position.
func (h *Handlers) ContextMenu(w http.ResponseWriter, r *http.Request) {
	x, _ := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, _ := strconv.ParseFloat(r.URL.Query().Get("y"), 64)

	sse := datastar.NewSSE(w, r)
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "menu", struct{ X, Y float64 }{x, y}); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	_ = sse.PatchElements(buf.String())
}

// MoveNode applies a drag position update. Only the final position of a
// gesture marks the layout for prompt saving.
func (h *Handlers) MoveNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "id")
	var body positionChange
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pos := canvasstore.Position{X: body.X, Y: body.Y}
	if err := h.store.ApplyNodeChange(canvasstore.NodeChange{
		Type:     canvasstore.NodeMoved,
		NodeID:   nodeID,
		Position: &pos,
		Final:    body.Final,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Connect adds an edge between two nodes, rejecting cycles.
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	var body connectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.store.Connect(body.Source, body.Target, "", body.TargetHandle); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExecuteNode kicks off one node's execution. The work runs in the
// background; status flows back to the page through the SSE channel.
func (h *Handlers) ExecuteNode(w http.ResponseWriter, r *http.Request) {
	ref, err := tableref.ParseNodeID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := h.runner.ExecuteNode(ctx, ref); err != nil {
			h.logger.Warn("execution failed", "node", ref.NodeID(), "error", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

// ExecuteAll kicks off a whole-graph run in the background.
func (h *Handlers) ExecuteAll(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := h.runner.ExecuteAll(ctx); err != nil {
			h.logger.Warn("pipeline run failed", "error", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

// DeleteNode removes the backing entity and the canvas node.
func (h *Handlers) DeleteNode(w http.ResponseWriter, r *http.Request) {
	ref, err := tableref.ParseNodeID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch ref.Kind {
	case tableref.KindTransform:
		err = h.client.DeleteTransform(r.Context(), ref.ID)
	case tableref.KindJoin:
		err = h.client.DeleteJoin(r.Context(), h.projectID, ref.ID)
	case tableref.KindQualitative:
		err = h.client.DeleteQualitative(r.Context(), h.projectID, ref.ID)
	default:
		http.Error(w, "source tables cannot be deleted from the canvas", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if err := h.store.ApplyNodeChange(canvasstore.NodeChange{
		Type:   canvasstore.NodeRemoved,
		NodeID: ref.NodeID(),
	}); err != nil {
		h.logger.Warn("node removed on backend but not on canvas", "node", ref.NodeID(), "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveLayout persists the layout immediately.
func (h *Handlers) SaveLayout(w http.ResponseWriter, r *http.Request) {
	if err := h.layout.Save(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.notify.Broadcast()
	w.WriteHeader(http.StatusNoContent)
}

// CreateTransform handles the new-transformation workflow submit.
func (h *Handlers) CreateTransform(w http.ResponseWriter, r *http.Request) {
	var form createTransformForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	upstream := make([]tableref.Ref, 0, len(form.Upstream))
	for _, id := range form.Upstream {
		ref, err := tableref.ParseNodeID(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		upstream = append(upstream, ref)
	}

	req := workflow.TransformRequest{
		ProjectID: h.projectID,
		Name:      form.Name,
		Prompt:    form.Prompt,
		Upstream:  upstream,
		Position:  canvasstore.Position{X: form.X, Y: form.Y},
	}
	h.submit(w, r, func(ctx context.Context) error {
		_, err := req.Submit(ctx, h.client, h.store)
		return err
	})
}

// EditTransform handles an edit of an existing transformation step. The
// step drops back to pending and, when the input set changed, its incoming
// edges are rebuilt.
func (h *Handlers) EditTransform(w http.ResponseWriter, r *http.Request) {
	stepID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid step id", http.StatusBadRequest)
		return
	}
	var form editTransformForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req api.UpdateTransformRequest
	if form.Name != "" {
		req.StepName = &form.Name
	}
	if form.Prompt != "" {
		req.UserPrompt = &form.Prompt
	}
	for _, id := range form.Upstream {
		ref, err := tableref.ParseNodeID(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.UpstreamTables = append(req.UpstreamTables,
			api.UpstreamTable{ID: ref.ID, Type: string(ref.Kind)})
	}

	if _, err := workflow.UpdateTransform(r.Context(), h.client, h.store, stepID, req); err != nil {
		status := http.StatusBadGateway
		if _, ok := err.(*workflow.ValidationError); ok {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateJoin handles the new-join workflow submit.
func (h *Handlers) CreateJoin(w http.ResponseWriter, r *http.Request) {
	var form createJoinForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	left, err := tableref.ParseNodeID(form.Left)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	right, err := tableref.ParseNodeID(form.Right)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	keys := make([]canvasstore.JoinKey, 0, len(form.Keys))
	for _, k := range form.Keys {
		keys = append(keys, canvasstore.JoinKey{LeftColumn: k.Left, RightColumn: k.Right})
	}

	req := workflow.JoinRequest{
		ProjectID: h.projectID,
		Name:      form.Name,
		Left:      left,
		Right:     right,
		JoinType:  form.JoinType,
		Keys:      keys,
		Position:  canvasstore.Position{X: form.X, Y: form.Y},
	}
	h.submit(w, r, func(ctx context.Context) error {
		_, err := req.Submit(ctx, h.client, h.store)
		return err
	})
}

// CreateQualitative handles the new-analysis workflow submit.
func (h *Handlers) CreateQualitative(w http.ResponseWriter, r *http.Request) {
	var form createQualitativeForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	source, err := tableref.ParseNodeID(form.Source)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := workflow.QualitativeRequest{
		ProjectID:             h.projectID,
		Name:                  form.Name,
		Source:                source,
		AnalysisType:          form.AnalysisType,
		TextColumn:            form.TextColumn,
		GroupColumn:           form.GroupColumn,
		IncludeSentimentStats: form.SentimentStats,
		Position:              canvasstore.Position{X: form.X, Y: form.Y},
	}
	h.submit(w, r, func(ctx context.Context) error {
		_, err := req.Submit(ctx, h.client, h.store)
		return err
	})
}

// submit runs a creation workflow, mapping validation errors to 422 and
// backend errors to 502. A validation failure also lands in the session
// flash so a full page reload still shows it.
func (h *Handlers) submit(w http.ResponseWriter, r *http.Request, fn func(context.Context) error) {
	if err := fn(r.Context()); err != nil {
		status := http.StatusBadGateway
		if _, ok := err.(*workflow.ValidationError); ok {
			status = http.StatusUnprocessableEntity
			h.setFlash(w, r, err.Error())
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) setFlash(w http.ResponseWriter, r *http.Request, msg string) {
	session, _ := h.sessionStore.Get(r, sessionName)
	session.AddFlash(msg)
	_ = session.Save(r, w)
}

func (h *Handlers) takeFlash(w http.ResponseWriter, r *http.Request) string {
	session, _ := h.sessionStore.Get(r, sessionName)
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	_ = session.Save(r, w)
	if s, ok := flashes[0].(string); ok {
		return s
	}
	return ""
}
