package canvas

// Change kinds applied through ApplyNodeChange / ApplyEdgeChange. Local user
// actions (drag, resize, delete, connect) arrive as discrete changes so the
// store can decide what dirties the layout and what merely re-renders.

// NodeChangeType discriminates node changes.
type NodeChangeType string

const (
	// NodeMoved updates a node's position (during or at the end of a drag).
	NodeMoved NodeChangeType = "moved"
	// NodeResized updates a node's size override.
	NodeResized NodeChangeType = "resized"
	// NodeRemoved deletes a node and its touching edges.
	NodeRemoved NodeChangeType = "removed"
)

// NodeChange is one mutation of a single node.
type NodeChange struct {
	Type     NodeChangeType
	NodeID   string
	Position *Position // NodeMoved
	Size     *Size     // NodeResized
	// Final marks the end of a gesture (drag stop). Only final changes
	// fire the structural event that triggers a coalesced save.
	Final bool
}

// EdgeChangeType discriminates edge changes.
type EdgeChangeType string

const (
	// EdgeAdded inserts a prebuilt edge (used when restoring a layout).
	EdgeAdded EdgeChangeType = "added"
	// EdgeRemoved deletes an edge by id.
	EdgeRemoved EdgeChangeType = "removed"
)

// EdgeChange is one mutation of the edge set.
type EdgeChange struct {
	Type   EdgeChangeType
	EdgeID string
	Edge   *Edge // EdgeAdded
}

// EventKind names the mutation categories handlers can subscribe to.
type EventKind int

const (
	// EventNodesChanged fires when node content changed (merge, status).
	EventNodesChanged EventKind = iota
	// EventEdgesChanged fires when the edge set changed.
	EventEdgesChanged
	// EventStructural fires on layout-relevant mutations: drag stop,
	// resize, connect, delete. The layout service coalesces these into
	// prompt saves.
	EventStructural
)
