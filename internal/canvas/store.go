package canvas

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/flowcanvas/internal/dag"
)

// Store is the single mutable owner of the canvas graph. All reads and
// writes go through its methods; rendering layers subscribe via On and
// re-query rather than holding copies.
//
// Handlers registered with On run synchronously after the mutation commits,
// outside the store lock. They must not mutate the store re-entrantly from
// the same goroutine in a way that assumes ordering with other handlers.
type Store struct {
	mu     sync.RWMutex
	nodes  []Node
	edges  []Edge
	graph  *dag.Graph
	dirty  bool
	logger *slog.Logger

	handlerMu sync.RWMutex
	handlers  map[EventKind][]func()
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		graph:    dag.New(),
		logger:   logger,
		handlers: make(map[EventKind][]func()),
	}
}

// On registers a handler for one mutation category.
func (s *Store) On(kind EventKind, fn func()) {
	s.handlerMu.Lock()
	s.handlers[kind] = append(s.handlers[kind], fn)
	s.handlerMu.Unlock()
}

// emit invokes handlers for the given events. Callers must not hold s.mu.
func (s *Store) emit(events ...EventKind) {
	s.handlerMu.RLock()
	defer s.handlerMu.RUnlock()
	for _, ev := range events {
		for _, fn := range s.handlers[ev] {
			fn()
		}
	}
}

// Nodes returns a copy of the node list.
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Edges returns a copy of the edge list.
func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// Node returns one node by id.
func (s *Store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Dirty reports whether layout-relevant state changed since the last
// successful save.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// ClearDirty resets the dirty flag after a successful save.
func (s *Store) ClearDirty() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}

// ReplaceGraph installs a freshly built node and edge set, dropping edges
// whose endpoints are missing. Used on initial load and after a full
// refresh; does not dirty the layout.
func (s *Store) ReplaceGraph(nodes []Node, edges []Edge) {
	s.mu.Lock()
	s.nodes = nodes
	s.edges = s.rebuildDAG(nodes, edges)
	s.mu.Unlock()

	s.emit(EventNodesChanged, EventEdgesChanged)
}

// rebuildDAG reconstructs the dependency graph from scratch and returns the
// edge list with dangling and cyclic edges dropped. Caller holds s.mu.
func (s *Store) rebuildDAG(nodes []Node, edges []Edge) []Edge {
	g := dag.New()
	byID := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = struct{}{}
		g.AddNode(n.ID)
	}

	kept := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if _, ok := byID[e.Source]; !ok {
			s.logger.Debug("dropping dangling edge", "edge", e.ID, "missing", e.Source)
			continue
		}
		if _, ok := byID[e.Target]; !ok {
			s.logger.Debug("dropping dangling edge", "edge", e.ID, "missing", e.Target)
			continue
		}
		if err := g.AddEdge(e.Source, e.Target); err != nil {
			s.logger.Warn("dropping invalid edge", "edge", e.ID, "error", err)
			continue
		}
		kept = append(kept, e)
	}

	s.graph = g
	return kept
}

// UpsertNodes merges authoritative node data into the store (see merge.go).
// Position, size, and style of existing nodes survive; nodes absent from
// the incoming set are removed along with their edges.
func (s *Store) UpsertNodes(incoming []Node) {
	s.mu.Lock()
	merged, changed := mergeNodes(s.nodes, incoming)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.nodes = merged
	s.edges = s.rebuildDAG(merged, s.edges)
	s.mu.Unlock()

	s.emit(EventNodesChanged, EventEdgesChanged)
}

// MergeGraph merges a freshly rebuilt node and edge set after a refresh.
// Node payloads reconcile per UpsertNodes; the edge set is replaced with
// the incoming one, since edges derive from backend upstream references
// and the rebuild is authoritative for them.
func (s *Store) MergeGraph(incoming []Node, edges []Edge) {
	s.mu.Lock()
	merged, changed := mergeNodes(s.nodes, incoming)
	if !changed && edgeSetEqual(s.edges, edges) {
		s.mu.Unlock()
		return
	}
	s.nodes = merged
	s.edges = s.rebuildDAG(merged, edges)
	s.mu.Unlock()

	s.emit(EventNodesChanged, EventEdgesChanged)
}

// InsertNode adds a brand-new node (from a creation workflow). Inserting an
// existing id replaces its payload and keeps its placement.
func (s *Store) InsertNode(node Node) {
	s.mu.Lock()
	for i := range s.nodes {
		if s.nodes[i].ID == node.ID {
			s.nodes[i].Data = node.Data
			s.mu.Unlock()
			s.emit(EventNodesChanged)
			return
		}
	}
	s.nodes = append(s.nodes, node)
	s.graph.AddNode(node.ID)
	s.dirty = true
	s.mu.Unlock()

	s.emit(EventNodesChanged, EventStructural)
}

// UpdateData mutates one node's payload in place via fn. Used by the
// execution orchestrator for status transitions; never touches position.
func (s *Store) UpdateData(id string, fn func(*NodeData)) bool {
	s.mu.Lock()
	found := false
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			fn(&s.nodes[i].Data)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if found {
		s.emit(EventNodesChanged)
	}
	return found
}

// ApplyNodeChange applies one local node mutation.
func (s *Store) ApplyNodeChange(ch NodeChange) error {
	switch ch.Type {
	case NodeMoved:
		if ch.Position == nil {
			return fmt.Errorf("moved change without position")
		}
		return s.moveNode(ch.NodeID, *ch.Position, ch.Final)
	case NodeResized:
		if ch.Size == nil {
			return fmt.Errorf("resized change without size")
		}
		return s.resizeNode(ch.NodeID, *ch.Size)
	case NodeRemoved:
		return s.removeNode(ch.NodeID)
	}
	return fmt.Errorf("unknown node change type: %q", ch.Type)
}

func (s *Store) moveNode(id string, pos Position, final bool) error {
	s.mu.Lock()
	idx := -1
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("node not found: %s", id)
	}
	s.nodes[idx].Position = pos
	s.dirty = true
	s.mu.Unlock()

	if final {
		s.emit(EventNodesChanged, EventStructural)
	} else {
		s.emit(EventNodesChanged)
	}
	return nil
}

func (s *Store) resizeNode(id string, size Size) error {
	s.mu.Lock()
	idx := -1
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("node not found: %s", id)
	}
	s.nodes[idx].Size = &size
	s.dirty = true
	s.mu.Unlock()

	s.emit(EventNodesChanged, EventStructural)
	return nil
}

func (s *Store) removeNode(id string) error {
	s.mu.Lock()
	kept := s.nodes[:0]
	found := false
	for _, n := range s.nodes {
		if n.ID == id {
			found = true
			continue
		}
		kept = append(kept, n)
	}
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("node not found: %s", id)
	}
	s.nodes = kept

	edges := s.edges[:0]
	for _, e := range s.edges {
		if e.Source == id || e.Target == id {
			continue
		}
		edges = append(edges, e)
	}
	s.edges = edges
	s.graph.RemoveNode(id)
	s.dirty = true
	s.mu.Unlock()

	s.emit(EventNodesChanged, EventEdgesChanged, EventStructural)
	return nil
}

// ApplyEdgeChange applies one local edge mutation.
func (s *Store) ApplyEdgeChange(ch EdgeChange) error {
	switch ch.Type {
	case EdgeAdded:
		if ch.Edge == nil {
			return fmt.Errorf("added change without edge")
		}
		_, err := s.Connect(ch.Edge.Source, ch.Edge.Target, ch.Edge.SourceHandle, ch.Edge.TargetHandle)
		return err
	case EdgeRemoved:
		return s.removeEdge(ch.EdgeID)
	}
	return fmt.Errorf("unknown edge change type: %q", ch.Type)
}

// Connect adds a directed edge between two existing nodes. Connections that
// would create a cycle, or whose endpoints are missing, are rejected.
func (s *Store) Connect(source, target, sourceHandle, targetHandle string) (Edge, error) {
	s.mu.Lock()
	id := EdgeID(source, target, targetHandle)
	for _, e := range s.edges {
		if e.ID == id {
			s.mu.Unlock()
			return e, nil
		}
	}
	if err := s.graph.AddEdge(source, target); err != nil {
		s.mu.Unlock()
		return Edge{}, err
	}
	edge := Edge{
		ID:           id,
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
	}
	s.edges = append(s.edges, edge)
	s.dirty = true
	s.mu.Unlock()

	s.emit(EventEdgesChanged, EventStructural)
	return edge, nil
}

func (s *Store) removeEdge(id string) error {
	s.mu.Lock()
	idx := -1
	for i, e := range s.edges {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("edge not found: %s", id)
	}
	e := s.edges[idx]
	s.edges = append(s.edges[:idx], s.edges[idx+1:]...)
	s.graph.RemoveEdge(e.Source, e.Target)
	s.dirty = true
	s.mu.Unlock()

	s.emit(EventEdgesChanged, EventStructural)
	return nil
}

// TopologicalOrder exposes the display order of the current graph.
func (s *Store) TopologicalOrder() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.TopologicalOrder()
}

// Upstream returns the transitive inputs of a node.
func (s *Store) Upstream(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Upstream(id)
}
