package canvas

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/cli/testutil"
	"github.com/leapstack-labs/flowcanvas/internal/layout"
	"github.com/leapstack-labs/flowcanvas/internal/runner"
	"github.com/leapstack-labs/flowcanvas/internal/tableref"

	canvasstore "github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/ui/notifier"
)

func newTestRouter(t *testing.T, fb *testutil.FakeBackend) (chi.Router, *canvasstore.Store) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	client := fb.Client()

	store := canvasstore.NewStore(logger)
	store.ReplaceGraph([]canvasstore.Node{
		{ID: "sheet-1", Kind: tableref.KindSource,
			Data: canvasstore.NodeData{Name: "Leads", Status: canvasstore.StatusCompleted}},
		{ID: "step-7", Kind: tableref.KindTransform,
			Data: canvasstore.NodeData{Name: "Clean leads", Status: canvasstore.StatusDraft}},
	}, []canvasstore.Edge{
		{ID: "e-sheet-1-step-7", Source: "sheet-1", Target: "step-7"},
	})

	layoutSvc := layout.NewService(layout.Config{
		ProjectID: 1,
		Store:     store,
		Saver:     client,
		Logger:    logger,
	})
	run := runner.New(1, store, client, nil, logger)

	h, err := NewHandlers(1, "Test Project", store, run, layoutSvc, client,
		notifier.New(), sessions.NewCookieStore([]byte("test")), logger)
	require.NoError(t, err)

	r := chi.NewRouter()
	SetupRoutes(r, h)
	return r, store
}

func do(r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCanvasPage(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	r, _ := newTestRouter(t, fb)

	w := do(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Test Project")
	assert.Contains(t, w.Body.String(), "Clean leads")
}

func TestMoveNode(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	r, store := newTestRouter(t, fb)

	w := do(r, http.MethodPost, "/api/nodes/step-7/position", `{"x":120,"y":40,"final":true}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	node, ok := store.Node("step-7")
	require.True(t, ok)
	assert.Equal(t, 120.0, node.Position.X)
	assert.True(t, store.Dirty())

	w = do(r, http.MethodPost, "/api/nodes/missing-9/position", `{"x":1,"y":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConnectRejectsCycle(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	r, _ := newTestRouter(t, fb)

	// step-7 already consumes sheet-1; the reverse direction is a cycle.
	w := do(r, http.MethodPost, "/api/edges", `{"source":"step-7","target":"sheet-1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteNode_SourceRejected(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	r, store := newTestRouter(t, fb)

	w := do(r, http.MethodDelete, "/api/nodes/sheet-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, ok := store.Node("sheet-1")
	assert.True(t, ok, "source node should survive")
}

func TestSaveLayout(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	r, _ := newTestRouter(t, fb)

	w := do(r, http.MethodPost, "/api/layout/save", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	require.Len(t, fb.SavedLayouts, 1)
	ids := make([]string, 0, 2)
	for _, n := range fb.SavedLayouts[0].Nodes {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"sheet-1", "step-7"}, ids)
}

func TestCreateJoin_UsesAssignedID(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	r, store := newTestRouter(t, fb)

	body := `{"name":"enrich","left":"sheet-1","right":"step-7","join_type":"inner",` +
		`"keys":[{"left":"id","right":"lead_id"}]}`
	w := do(r, http.MethodPost, "/api/joins", body)
	require.Equal(t, http.StatusCreated, w.Code)

	// The create response is an id envelope; the node must carry the
	// backend-assigned id, not a zero.
	require.Len(t, fb.Joins, 1)
	nodeID := fmt.Sprintf("join-%d", fb.Joins[0].ID)
	node, ok := store.Node(nodeID)
	require.True(t, ok, "node %s missing", nodeID)
	assert.Equal(t, "enrich", node.Data.Name)
	if _, zero := store.Node("join-0"); zero {
		t.Error("join-0 should not exist")
	}
}

func TestEditTransform_RewiresInputs(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Transforms = []api.Transform{{
		ID: 7, StepName: "Clean leads", UserPrompt: "trim whitespace", Status: "completed",
		UpstreamTables: []api.UpstreamTable{{ID: 1, Type: "sheet"}},
	}}
	r, store := newTestRouter(t, fb)
	store.ReplaceGraph([]canvasstore.Node{
		{ID: "sheet-1", Kind: tableref.KindSource,
			Data: canvasstore.NodeData{Name: "Leads", Status: canvasstore.StatusCompleted}},
		{ID: "sheet-2", Kind: tableref.KindSource,
			Data: canvasstore.NodeData{Name: "Archive", Status: canvasstore.StatusCompleted}},
		{ID: "step-7", Kind: tableref.KindTransform,
			Data: canvasstore.NodeData{Name: "Clean leads", Status: canvasstore.StatusCompleted}},
	}, []canvasstore.Edge{
		{ID: "e-sheet-1-step-7", Source: "sheet-1", Target: "step-7"},
	})

	w := do(r, http.MethodPut, "/api/transforms/7",
		`{"prompt":"dedupe by email","upstream":["sheet-2"]}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	node, ok := store.Node("step-7")
	require.True(t, ok)
	assert.Equal(t, "dedupe by email", node.Data.Prompt)
	assert.Equal(t, canvasstore.StatusPending, node.Data.Status)

	edges := store.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "sheet-2", edges[0].Source)
	assert.Equal(t, "step-7", edges[0].Target)
}

func TestCreateTransform_ValidationError(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	r, _ := newTestRouter(t, fb)

	w := do(r, http.MethodPost, "/api/transforms", `{"name":"","prompt":"p","upstream":["sheet-1"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
