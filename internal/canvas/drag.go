package canvas

import (
	"fmt"
	"sync"
)

// DragSession scopes one node drag gesture. Intermediate positions update
// the store without triggering saves; only End commits the gesture as a
// structural change. Cancel restores the original position. Both are
// idempotent, so cleanup paths can call them unconditionally.
type DragSession struct {
	mu     sync.Mutex
	store  *Store
	nodeID string
	origin Position
	done   bool
}

// BeginDrag starts a drag gesture for one node.
func (s *Store) BeginDrag(nodeID string) (*DragSession, error) {
	n, ok := s.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("node not found: %s", nodeID)
	}
	return &DragSession{store: s, nodeID: nodeID, origin: n.Position}, nil
}

// MoveTo applies an intermediate drag position. No-op after End or Cancel.
func (d *DragSession) MoveTo(pos Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return
	}
	_ = d.store.ApplyNodeChange(NodeChange{Type: NodeMoved, NodeID: d.nodeID, Position: &pos})
}

// End commits the gesture at its final position.
func (d *DragSession) End(pos Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return
	}
	d.done = true
	_ = d.store.ApplyNodeChange(NodeChange{Type: NodeMoved, NodeID: d.nodeID, Position: &pos, Final: true})
}

// Cancel abandons the gesture, restoring the node's starting position.
func (d *DragSession) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return
	}
	d.done = true
	_ = d.store.ApplyNodeChange(NodeChange{Type: NodeMoved, NodeID: d.nodeID, Position: &d.origin})
}
