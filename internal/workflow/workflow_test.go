package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/tableref"
)

type fakeClient struct {
	transform *api.Transform
	join      *api.Join
	qual      *api.Qualitative
	err       error

	lastTransform   *api.CreateTransformRequest
	lastJoin        *api.CreateJoinRequest
	lastQualitative *api.CreateQualitativeRequest
}

func (f *fakeClient) CreateTransform(_ context.Context, req api.CreateTransformRequest) (*api.Transform, error) {
	f.lastTransform = &req
	return f.transform, f.err
}

func (f *fakeClient) UpdateTransform(_ context.Context, _ int, _ api.UpdateTransformRequest) (*api.Transform, error) {
	return f.transform, f.err
}

func (f *fakeClient) CreateJoin(_ context.Context, req api.CreateJoinRequest) (*api.Join, error) {
	f.lastJoin = &req
	return f.join, f.err
}

func (f *fakeClient) CreateQualitative(_ context.Context, req api.CreateQualitativeRequest) (*api.Qualitative, error) {
	f.lastQualitative = &req
	return f.qual, f.err
}

func baseStore() *canvas.Store {
	s := canvas.NewStore(nil)
	s.ReplaceGraph([]canvas.Node{
		{ID: "sheet-1", Kind: tableref.KindSource,
			Data: canvas.NodeData{Name: "Customers", Status: canvas.StatusCompleted}},
		{ID: "sheet-2", Kind: tableref.KindSource,
			Data: canvas.NodeData{Name: "Orders", Status: canvas.StatusCompleted}},
		{ID: "step-5", Kind: tableref.KindTransform,
			Data: canvas.NodeData{Name: "clean", Status: canvas.StatusDraft}},
	}, nil)
	return s
}

func TestTransformRequestValidation(t *testing.T) {
	cases := []struct {
		name  string
		req   TransformRequest
		field string
	}{
		{"missing name", TransformRequest{Prompt: "p", Upstream: []tableref.Ref{{Kind: tableref.KindSource, ID: 1}}}, "name"},
		{"missing prompt", TransformRequest{Name: "n", Upstream: []tableref.Ref{{Kind: tableref.KindSource, ID: 1}}}, "prompt"},
		{"no inputs", TransformRequest{Name: "n", Prompt: "p"}, "upstream"},
		{"bad kind", TransformRequest{Name: "n", Prompt: "p", Upstream: []tableref.Ref{{Kind: "csv", ID: 1}}}, "upstream"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %q, want %q", verr.Field, tc.field)
			}
		})
	}

	ok := TransformRequest{Name: "n", Prompt: "p",
		Upstream: []tableref.Ref{{Kind: tableref.KindSource, ID: 1}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}

func TestTransformSubmitInsertsNodeAndEdges(t *testing.T) {
	store := baseStore()
	client := &fakeClient{transform: &api.Transform{
		ID: 7, StepName: "derive totals", Status: "draft", UserPrompt: "sum orders",
	}}

	req := TransformRequest{
		ProjectID: 1,
		Name:      "derive totals",
		Prompt:    "sum orders",
		Upstream: []tableref.Ref{
			{Kind: tableref.KindSource, ID: 1},
			{Kind: tableref.KindSource, ID: 2},
		},
		Position: canvas.Position{X: 400, Y: 120},
	}
	node, err := req.Submit(context.Background(), client, store)
	if err != nil {
		t.Fatal(err)
	}
	if node.ID != "step-7" {
		t.Errorf("node id = %q", node.ID)
	}
	if node.Position != (canvas.Position{X: 400, Y: 120}) {
		t.Errorf("position = %+v", node.Position)
	}
	if client.lastTransform.UpstreamTables[0].Type != "sheet" {
		t.Errorf("wire type = %q", client.lastTransform.UpstreamTables[0].Type)
	}

	got, ok := store.Node("step-7")
	if !ok {
		t.Fatal("node not inserted")
	}
	if got.Data.Prompt != "sum orders" {
		t.Errorf("prompt = %q", got.Data.Prompt)
	}
	edgeTargets := 0
	for _, e := range store.Edges() {
		if e.Target == "step-7" {
			edgeTargets++
		}
	}
	if edgeTargets != 2 {
		t.Errorf("input edges = %d, want 2", edgeTargets)
	}
}

func TestJoinRequestValidation(t *testing.T) {
	left := tableref.Ref{Kind: tableref.KindSource, ID: 1}
	right := tableref.Ref{Kind: tableref.KindSource, ID: 2}
	keys := []canvas.JoinKey{{LeftColumn: "id", RightColumn: "customer_id"}}

	valid := JoinRequest{Name: "j", Left: left, Right: right, JoinType: "inner", Keys: keys}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	cases := []struct {
		name  string
		mut   func(*JoinRequest)
		field string
	}{
		{"same table both sides", func(r *JoinRequest) { r.Right = left }, "right"},
		{"unknown join type", func(r *JoinRequest) { r.JoinType = "cross" }, "join_type"},
		{"no keys", func(r *JoinRequest) { r.Keys = nil }, "keys"},
		{"half key", func(r *JoinRequest) { r.Keys = []canvas.JoinKey{{LeftColumn: "id"}} }, "keys"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mut(&req)
			err := req.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
}

func TestJoinSubmitConnectsBothHandles(t *testing.T) {
	store := baseStore()
	client := &fakeClient{join: &api.Join{
		ID: 3, Name: "orders per customer", JoinType: "left", Status: "draft",
	}}

	req := JoinRequest{
		ProjectID: 1,
		Name:      "orders per customer",
		Left:      tableref.Ref{Kind: tableref.KindSource, ID: 1},
		Right:     tableref.Ref{Kind: tableref.KindTransform, ID: 5},
		JoinType:  "left",
		Keys:      []canvas.JoinKey{{LeftColumn: "id", RightColumn: "customer_id"}},
		Position:  canvas.Position{X: 600, Y: 200},
	}
	node, err := req.Submit(context.Background(), client, store)
	if err != nil {
		t.Fatal(err)
	}
	if node.ID != "join-3" {
		t.Errorf("node id = %q", node.ID)
	}

	handles := map[string]bool{}
	for _, e := range store.Edges() {
		if e.Target == "join-3" {
			handles[e.TargetHandle] = true
		}
	}
	if !handles["left"] || !handles["right"] {
		t.Errorf("handles = %v, want left and right", handles)
	}
	if client.lastJoin.RightTableType != "transformation" {
		t.Errorf("right wire type = %q", client.lastJoin.RightTableType)
	}
}

func TestUpdateTransformRewiresEdges(t *testing.T) {
	store := baseStore()
	if _, err := store.Connect("sheet-1", "step-5", "", ""); err != nil {
		t.Fatal(err)
	}

	// The backend's update response is a partial record.
	client := &fakeClient{transform: &api.Transform{
		ID: 5, StepName: "clean", UserPrompt: "dedupe by email",
	}}
	prompt := "dedupe by email"
	_, err := UpdateTransform(context.Background(), client, store, 5, api.UpdateTransformRequest{
		UserPrompt:     &prompt,
		UpstreamTables: []api.UpstreamTable{{ID: 2, Type: "sheet"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	n, _ := store.Node("step-5")
	if n.Data.Prompt != "dedupe by email" {
		t.Errorf("prompt = %q", n.Data.Prompt)
	}
	if n.Data.Status != canvas.StatusPending {
		t.Errorf("status = %s, want pending after edit", n.Data.Status)
	}

	edges := store.Edges()
	if len(edges) != 1 {
		t.Fatalf("edges = %+v, want the single rewired input", edges)
	}
	if edges[0].Source != "sheet-2" || edges[0].Target != "step-5" {
		t.Errorf("edge = %s -> %s, want sheet-2 -> step-5", edges[0].Source, edges[0].Target)
	}
}

func TestQualitativeRequestValidation(t *testing.T) {
	valid := QualitativeRequest{
		Name:         "feedback sentiment",
		Source:       tableref.Ref{Kind: tableref.KindSource, ID: 1},
		AnalysisType: "sentiment",
		TextColumn:   "feedback",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	bad := valid
	bad.AnalysisType = "topic-modeling"
	err := bad.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "analysis_type" {
		t.Errorf("error = %v, want analysis_type validation", err)
	}

	bad = valid
	bad.TextColumn = ""
	if err := bad.Validate(); err == nil {
		t.Error("missing text column accepted")
	}
}

func TestQualitativeSubmit(t *testing.T) {
	store := baseStore()
	client := &fakeClient{qual: &api.Qualitative{
		ID: 9, Name: "feedback sentiment", AnalysisType: "sentiment",
		QualitativeColumn: "feedback", Status: "draft",
	}}

	req := QualitativeRequest{
		ProjectID:    1,
		Name:         "feedback sentiment",
		Source:       tableref.Ref{Kind: tableref.KindTransform, ID: 5},
		AnalysisType: "sentiment",
		TextColumn:   "feedback",
		Position:     canvas.Position{X: 800, Y: 100},
	}
	node, err := req.Submit(context.Background(), client, store)
	if err != nil {
		t.Fatal(err)
	}
	if node.ID != "qualitative-9" {
		t.Errorf("node id = %q", node.ID)
	}
	found := false
	for _, e := range store.Edges() {
		if e.Source == "step-5" && e.Target == "qualitative-9" {
			found = true
		}
	}
	if !found {
		t.Error("input edge missing")
	}
}

func TestQualitativeSubmit_SummarizationOptions(t *testing.T) {
	store := baseStore()
	client := &fakeClient{qual: &api.Qualitative{
		ID: 10, Name: "feedback summary", AnalysisType: "summarization",
		QualitativeColumn: "feedback", AggregationColumn: "region", Status: "draft",
	}}

	req := QualitativeRequest{
		ProjectID:             1,
		Name:                  "feedback summary",
		Source:                tableref.Ref{Kind: tableref.KindSource, ID: 1},
		AnalysisType:          "summarization",
		TextColumn:            "feedback",
		GroupColumn:           "region",
		IncludeSentimentStats: true,
	}
	if _, err := req.Submit(context.Background(), client, store); err != nil {
		t.Fatal(err)
	}

	sent := client.lastQualitative
	if sent.AggregationColumn != "region" {
		t.Errorf("aggregation column = %q", sent.AggregationColumn)
	}
	if !sent.SummarizeSentimentAnalysis {
		t.Error("sentiment stats flag not forwarded")
	}
}

func TestSubmitPropagatesBackendError(t *testing.T) {
	store := baseStore()
	client := &fakeClient{err: &api.Error{Status: 400, Detail: "upstream table not found"}}

	req := TransformRequest{
		Name: "n", Prompt: "p",
		Upstream: []tableref.Ref{{Kind: tableref.KindSource, ID: 1}},
	}
	if _, err := req.Submit(context.Background(), client, store); err == nil {
		t.Fatal("expected backend error")
	}
	for _, n := range store.Nodes() {
		if n.ID != "sheet-1" && n.ID != "sheet-2" && n.ID != "step-5" {
			t.Errorf("unexpected node inserted: %s", n.ID)
		}
	}
}

func TestEligibleInputsOnlyCompleted(t *testing.T) {
	store := baseStore()
	inputs := EligibleInputs(store)
	for _, n := range inputs {
		if n.ID == "step-5" {
			t.Error("draft step offered as input")
		}
	}
	if len(inputs) != 2 {
		t.Errorf("eligible inputs = %d, want the two sources", len(inputs))
	}
}
