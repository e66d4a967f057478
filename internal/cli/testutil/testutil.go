// Package testutil provides a fake pipeline backend for CLI tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/flowcanvas/internal/api"
)

// FakeBackend is an in-memory pipeline backend served over httptest.
// Mutate the exported fields before issuing requests; they are read
// under the mutex on every call.
type FakeBackend struct {
	mu sync.Mutex

	Project    api.Project
	Sources    []api.Source
	Transforms []api.Transform
	Joins      []api.Join
	Quals      []api.Qualitative
	History    []api.HistoryEntry

	// Tables is keyed "sheet_<id>" and "transform_<id>" for the table-data
	// endpoint, "join_<id>" and "qualitative_<id>" for the per-entity data
	// endpoints.
	Tables map[string]api.TablePage

	// SavedLayouts records every canvas-layout PUT, newest last.
	SavedLayouts []api.Layout

	// ExecuteStatus lets a test force execute calls to fail.
	ExecuteStatus int

	srv *httptest.Server
}

// NewFakeBackend starts a backend with one project and no entities.
// The server is shut down when the test finishes.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		Project: api.Project{ID: 1, Name: "Test Project"},
		Tables:  map[string]api.TablePage{},
	}

	r := chi.NewRouter()
	r.Get("/projects/{id}", fb.getProject)
	r.Get("/projects/{id}/sheets", fb.listSources)
	r.Get("/projects/{id}/ai-transformations", fb.listTransforms)
	r.Get("/projects/{id}/joins", fb.listJoins)
	r.Get("/projects/{id}/qualitative-data", fb.listQuals)
	r.Get("/projects/{id}/history", fb.getHistory)
	r.Get("/projects/{id}/table-data/{table}", fb.getTable)
	r.Get("/projects/{id}/joins/{joinID}/data", fb.getJoinData)
	r.Get("/projects/{id}/qualitative-data/{opID}/data", fb.getQualData)
	r.Put("/projects/{id}/canvas-layout", fb.putLayout)
	r.Post("/projects/{id}/joins", fb.createJoin)
	r.Post("/projects/{id}/qualitative-data", fb.createQual)
	r.Put("/ai-transformations/{id}", fb.updateTransform)
	r.Post("/ai-transformations/{id}/execute", fb.execute)
	r.Post("/projects/{id}/joins/{joinID}/execute", fb.execute)
	r.Post("/projects/{id}/qualitative-data/{opID}/execute", fb.execute)
	r.Post("/projects/{id}/execute-all", fb.executeAll)

	fb.srv = httptest.NewServer(r)
	t.Cleanup(fb.srv.Close)
	return fb
}

// URL returns the backend base URL.
func (fb *FakeBackend) URL() string {
	return fb.srv.URL
}

// Client returns an api.Client pointed at this backend.
func (fb *FakeBackend) Client() *api.Client {
	return api.NewClient(api.Config{BaseURL: fb.srv.URL})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (fb *FakeBackend) getProject(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	if id != fb.Project.ID {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"detail": "project not found"})
		return
	}
	writeJSON(w, fb.Project)
}

func (fb *FakeBackend) listSources(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeJSON(w, map[string]any{"sheets": fb.Sources})
}

func (fb *FakeBackend) listTransforms(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeJSON(w, map[string]any{"steps": fb.Transforms})
}

func (fb *FakeBackend) listJoins(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeJSON(w, map[string]any{"joins": fb.Joins})
}

func (fb *FakeBackend) listQuals(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeJSON(w, map[string]any{"operations": fb.Quals})
}

func (fb *FakeBackend) getHistory(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeJSON(w, map[string]any{"history": fb.History})
}

func (fb *FakeBackend) getTable(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	key := chi.URLParam(r, "table")
	if !strings.HasPrefix(key, "sheet_") && !strings.HasPrefix(key, "transform_") {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"detail": "Invalid table ID format"})
		return
	}
	page, ok := fb.Tables[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"detail": "table not found"})
		return
	}
	// table-data answers record objects, not row arrays.
	records := make([]map[string]any, 0, len(page.Data))
	for _, row := range page.Data {
		rec := make(map[string]any, len(page.Columns))
		for i, col := range page.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	writeJSON(w, map[string]any{
		"columns":   page.Columns,
		"data":      records,
		"row_count": page.TotalRows,
	})
}

func (fb *FakeBackend) getJoinData(w http.ResponseWriter, r *http.Request) {
	fb.serveRowData(w, "join_"+chi.URLParam(r, "joinID"))
}

func (fb *FakeBackend) getQualData(w http.ResponseWriter, r *http.Request) {
	fb.serveRowData(w, "qualitative_"+chi.URLParam(r, "opID"))
}

func (fb *FakeBackend) serveRowData(w http.ResponseWriter, key string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	page, ok := fb.Tables[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"detail": "table not found"})
		return
	}
	writeJSON(w, map[string]any{
		"columns":    page.Columns,
		"data":       page.Data,
		"total_rows": page.TotalRows,
	})
}

func (fb *FakeBackend) createJoin(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var req api.CreateJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	join := api.Join{
		ID:             len(fb.Joins) + 100,
		Name:           req.Name,
		LeftTableID:    req.LeftTableID,
		RightTableID:   req.RightTableID,
		LeftTableType:  req.LeftTableType,
		RightTableType: req.RightTableType,
		JoinType:       req.JoinType,
		JoinKeys:       req.JoinKeys,
		Status:         "pending",
	}
	fb.Joins = append(fb.Joins, join)
	writeJSON(w, map[string]any{"join_id": join.ID, "status": "created"})
}

func (fb *FakeBackend) createQual(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var req api.CreateQualitativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	qual := api.Qualitative{
		ID:                len(fb.Quals) + 200,
		Name:              req.Name,
		SourceTableID:     req.SourceTableID,
		SourceTableType:   req.SourceTableType,
		QualitativeColumn: req.QualitativeColumn,
		AnalysisType:      req.AnalysisType,
		Status:            "pending",
	}
	fb.Quals = append(fb.Quals, qual)
	writeJSON(w, map[string]any{"operation_id": qual.ID, "status": "created"})
}

func (fb *FakeBackend) updateTransform(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var req api.UpdateTransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	for i := range fb.Transforms {
		if fb.Transforms[i].ID != id {
			continue
		}
		if req.StepName != nil {
			fb.Transforms[i].StepName = *req.StepName
		}
		if req.UserPrompt != nil {
			fb.Transforms[i].UserPrompt = *req.UserPrompt
		}
		if req.OutputTableName != nil {
			fb.Transforms[i].OutputTableName = *req.OutputTableName
		}
		if len(req.UpstreamTables) > 0 {
			fb.Transforms[i].UpstreamTables = req.UpstreamTables
		}
		// The update response is a partial record, not the full step.
		writeJSON(w, map[string]any{
			"id":                fb.Transforms[i].ID,
			"step_name":         fb.Transforms[i].StepName,
			"user_prompt":       fb.Transforms[i].UserPrompt,
			"output_table_name": fb.Transforms[i].OutputTableName,
		})
		return
	}
	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]string{"detail": "Transformation step not found"})
}

func (fb *FakeBackend) putLayout(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var layout api.Layout
	if err := json.NewDecoder(r.Body).Decode(&layout); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	fb.SavedLayouts = append(fb.SavedLayouts, layout)
	w.WriteHeader(http.StatusOK)
}

func (fb *FakeBackend) execute(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.ExecuteStatus != 0 && fb.ExecuteStatus != http.StatusOK {
		w.WriteHeader(fb.ExecuteStatus)
		writeJSON(w, map[string]string{"detail": "execution failed"})
		return
	}
	writeJSON(w, api.ExecuteResult{
		Status:          "completed",
		OutputTableName: "out_table",
		RowCount:        3,
		ExecutionTimeMS: 12,
	})
}

func (fb *FakeBackend) executeAll(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	steps := make([]api.ExecutedStep, 0, len(fb.Transforms))
	for _, tr := range fb.Transforms {
		steps = append(steps, api.ExecutedStep{
			StepID:   tr.ID,
			StepName: tr.StepName,
			Status:   "completed",
		})
	}
	writeJSON(w, api.ExecuteAllResult{
		Message:         "pipeline completed",
		ExecutedSteps:   steps,
		TotalOperations: len(steps),
	})
}
