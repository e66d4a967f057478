package canvas

import (
	"testing"

	"github.com/leapstack-labs/flowcanvas/internal/tableref"
)

func testNode(id string, kind tableref.Kind, x, y float64) Node {
	return Node{
		ID:       id,
		Kind:     kind,
		Position: Position{X: x, Y: y},
		Data:     NodeData{Name: id, Status: StatusDraft},
	}
}

func TestStoreConnectRejectsCycle(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceGraph([]Node{
		testNode("sheet-1", tableref.KindSource, 0, 0),
		testNode("step-1", tableref.KindTransform, 100, 0),
		testNode("join-1", tableref.KindJoin, 200, 0),
	}, nil)

	if _, err := s.Connect("sheet-1", "step-1", "", ""); err != nil {
		t.Fatalf("connect sheet-1 -> step-1: %v", err)
	}
	if _, err := s.Connect("step-1", "join-1", "", "left"); err != nil {
		t.Fatalf("connect step-1 -> join-1: %v", err)
	}
	if _, err := s.Connect("join-1", "step-1", "", ""); err == nil {
		t.Error("expected cycle rejection for join-1 -> step-1")
	}
	if _, err := s.Connect("step-1", "step-1", "", ""); err == nil {
		t.Error("expected self-loop rejection")
	}
	if got := len(s.Edges()); got != 2 {
		t.Errorf("edge count = %d, want 2", got)
	}
}

func TestStoreConnectIsIdempotent(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceGraph([]Node{
		testNode("sheet-1", tableref.KindSource, 0, 0),
		testNode("step-1", tableref.KindTransform, 100, 0),
	}, nil)

	first, err := s.Connect("sheet-1", "step-1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Connect("sheet-1", "step-1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("edge ids differ: %s vs %s", first.ID, second.ID)
	}
	if got := len(s.Edges()); got != 1 {
		t.Errorf("edge count = %d, want 1", got)
	}
}

func TestStoreRemoveNodeDropsEdges(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceGraph([]Node{
		testNode("sheet-1", tableref.KindSource, 0, 0),
		testNode("step-1", tableref.KindTransform, 100, 0),
		testNode("qualitative-1", tableref.KindQualitative, 200, 0),
	}, []Edge{
		{ID: "e-sheet-1-step-1", Source: "sheet-1", Target: "step-1"},
		{ID: "e-step-1-qualitative-1", Source: "step-1", Target: "qualitative-1"},
	})

	if err := s.ApplyNodeChange(NodeChange{Type: NodeRemoved, NodeID: "step-1"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Node("step-1"); ok {
		t.Error("step-1 still present after removal")
	}
	if got := len(s.Edges()); got != 0 {
		t.Errorf("edges remaining = %d, want 0", got)
	}
	if !s.Dirty() {
		t.Error("removal should dirty the layout")
	}
}

func TestStoreReplaceGraphDropsDanglingEdges(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceGraph([]Node{
		testNode("sheet-1", tableref.KindSource, 0, 0),
		testNode("step-1", tableref.KindTransform, 100, 0),
	}, []Edge{
		{ID: "e-sheet-1-step-1", Source: "sheet-1", Target: "step-1"},
		{ID: "e-sheet-9-step-1", Source: "sheet-9", Target: "step-1"},
	})

	edges := s.Edges()
	if len(edges) != 1 || edges[0].ID != "e-sheet-1-step-1" {
		t.Errorf("edges = %v, want only the connected one", edges)
	}
}

func TestStoreMergeGraphReplacesEdges(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceGraph([]Node{
		testNode("sheet-1", tableref.KindSource, 0, 0),
		testNode("step-1", tableref.KindTransform, 100, 0),
	}, []Edge{
		{ID: "e-sheet-1-step-1", Source: "sheet-1", Target: "step-1"},
	})

	// A rebuild bringing a new node must carry its edge along.
	s.MergeGraph([]Node{
		testNode("sheet-1", tableref.KindSource, 0, 0),
		testNode("step-1", tableref.KindTransform, 100, 0),
		testNode("step-2", tableref.KindTransform, 100, 140),
	}, []Edge{
		{ID: "e-sheet-1-step-1", Source: "sheet-1", Target: "step-1"},
		{ID: "e-sheet-1-step-2", Source: "sheet-1", Target: "step-2"},
	})

	edges := s.Edges()
	if len(edges) != 2 {
		t.Fatalf("edge count = %d, want 2", len(edges))
	}
	targets := map[string]bool{}
	for _, e := range edges {
		targets[e.Target] = true
	}
	if !targets["step-1"] || !targets["step-2"] {
		t.Errorf("edge targets = %v", targets)
	}

	// An identical rebuild is a no-op and must not fire handlers.
	var fired int
	s.On(EventNodesChanged, func() { fired++ })
	s.MergeGraph(s.Nodes(), s.Edges())
	if fired != 0 {
		t.Errorf("handlers fired %d times on a no-op merge", fired)
	}
}

func TestStoreStructuralEvents(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceGraph([]Node{
		testNode("sheet-1", tableref.KindSource, 0, 0),
		testNode("step-1", tableref.KindTransform, 100, 0),
	}, nil)

	structural := 0
	s.On(EventStructural, func() { structural++ })

	pos := Position{X: 50, Y: 50}
	if err := s.ApplyNodeChange(NodeChange{Type: NodeMoved, NodeID: "step-1", Position: &pos}); err != nil {
		t.Fatal(err)
	}
	if structural != 0 {
		t.Errorf("intermediate move fired %d structural events, want 0", structural)
	}

	if err := s.ApplyNodeChange(NodeChange{Type: NodeMoved, NodeID: "step-1", Position: &pos, Final: true}); err != nil {
		t.Fatal(err)
	}
	if structural != 1 {
		t.Errorf("final move fired %d structural events, want 1", structural)
	}

	if _, err := s.Connect("sheet-1", "step-1", "", ""); err != nil {
		t.Fatal(err)
	}
	if structural != 2 {
		t.Errorf("connect fired %d cumulative structural events, want 2", structural)
	}
}

func TestStoreUpdateData(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceGraph([]Node{testNode("step-1", tableref.KindTransform, 0, 0)}, nil)

	changed := 0
	s.On(EventNodesChanged, func() { changed++ })

	ok := s.UpdateData("step-1", func(d *NodeData) {
		d.Status = StatusRunning
	})
	if !ok {
		t.Fatal("UpdateData reported node missing")
	}
	n, _ := s.Node("step-1")
	if n.Data.Status != StatusRunning {
		t.Errorf("status = %s, want running", n.Data.Status)
	}
	if changed != 1 {
		t.Errorf("nodes-changed events = %d, want 1", changed)
	}
	if s.UpdateData("step-99", func(d *NodeData) {}) {
		t.Error("UpdateData found a node that does not exist")
	}
}

func TestDragSessionLifecycle(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceGraph([]Node{testNode("step-1", tableref.KindTransform, 10, 20)}, nil)

	structural := 0
	s.On(EventStructural, func() { structural++ })

	d, err := s.BeginDrag("step-1")
	if err != nil {
		t.Fatal(err)
	}
	d.MoveTo(Position{X: 30, Y: 40})
	d.MoveTo(Position{X: 50, Y: 60})
	if structural != 0 {
		t.Errorf("drag in progress fired %d structural events", structural)
	}
	d.End(Position{X: 70, Y: 80})
	if structural != 1 {
		t.Errorf("drag end fired %d structural events, want 1", structural)
	}

	n, _ := s.Node("step-1")
	if n.Position != (Position{X: 70, Y: 80}) {
		t.Errorf("position = %+v, want final drop point", n.Position)
	}

	// End already committed; a late Cancel must not move the node back.
	d.Cancel()
	n, _ = s.Node("step-1")
	if n.Position != (Position{X: 70, Y: 80}) {
		t.Errorf("position after late cancel = %+v", n.Position)
	}
}

func TestDragSessionCancelRestoresOrigin(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceGraph([]Node{testNode("step-1", tableref.KindTransform, 10, 20)}, nil)

	structural := 0
	s.On(EventStructural, func() { structural++ })

	d, err := s.BeginDrag("step-1")
	if err != nil {
		t.Fatal(err)
	}
	d.MoveTo(Position{X: 500, Y: 500})
	d.Cancel()

	n, _ := s.Node("step-1")
	if n.Position != (Position{X: 10, Y: 20}) {
		t.Errorf("position = %+v, want origin restored", n.Position)
	}
	if structural != 0 {
		t.Errorf("cancel fired %d structural events, want 0", structural)
	}
}
