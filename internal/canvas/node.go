// Package canvas owns the in-memory pipeline graph: positioned nodes, the
// directed edges between them, and the reconciling merge that folds
// authoritative backend state into the local graph without disturbing
// user-arranged layout. Every other component reads and writes the graph
// through the Store; none hold private copies.
package canvas

import (
	"github.com/leapstack-labs/flowcanvas/internal/tableref"
)

// Status is the execution lifecycle of a node's backing entity.
type Status string

const (
	// StatusDraft is a created entity that has never been executed.
	StatusDraft Status = "draft"
	// StatusPending is queued/created, awaiting execution.
	StatusPending Status = "pending"
	// StatusReady means upstream inputs are available.
	StatusReady Status = "ready"
	// StatusRunning is an execute call in flight.
	StatusRunning Status = "running"
	// StatusCompleted means the entity has a queryable output table.
	StatusCompleted Status = "completed"
	// StatusFailed carries an error message.
	StatusFailed Status = "failed"
)

// ParseStatus normalizes a wire status string. Unknown values map to draft
// rather than failing: the backend has grown statuses before and the canvas
// should keep rendering.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusDraft, StatusPending, StatusReady, StatusRunning, StatusCompleted, StatusFailed:
		return Status(s)
	}
	return StatusDraft
}

// Position is a canvas coordinate pair.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is an optional width/height override set by user resize.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// JoinKey maps one left column onto one right column.
type JoinKey struct {
	LeftColumn  string `json:"left_column"`
	RightColumn string `json:"right_column"`
}

// NodeData is the kind-specific payload of a node. Only the fields relevant
// to the node's kind are populated; the reconciling merge compares the
// server-authoritative subset (name, status, summary, error, output).
type NodeData struct {
	Name         string   `json:"name"`
	Status       Status   `json:"status"`
	Summary      string   `json:"summary,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Columns      []string `json:"columns,omitempty"`
	OutputTable  string   `json:"output_table,omitempty"`
	RowCount     int      `json:"row_count,omitempty"`

	// Transform fields.
	Prompt   string         `json:"prompt,omitempty"`
	Upstream []tableref.Ref `json:"upstream,omitempty"`

	// Join fields.
	JoinType string       `json:"join_type,omitempty"`
	JoinKeys []JoinKey    `json:"join_keys,omitempty"`
	LeftRef  tableref.Ref `json:"left_ref,omitempty"`
	RightRef tableref.Ref `json:"right_ref,omitempty"`

	// Qualitative fields.
	AnalysisType     string       `json:"analysis_type,omitempty"`
	TextColumn       string       `json:"text_column,omitempty"`
	GroupColumn      string       `json:"group_column,omitempty"`
	SourceRef        tableref.Ref `json:"source_ref,omitempty"`
	RecordsProcessed int          `json:"records_processed,omitempty"`

	ExecutionTimeMS int64 `json:"execution_time_ms,omitempty"`
}

// Node is one positioned visual unit on the canvas.
type Node struct {
	ID       string         `json:"id"`
	Kind     tableref.Kind  `json:"kind"`
	Position Position       `json:"position"`
	Size     *Size          `json:"size,omitempty"`
	Style    map[string]any `json:"style,omitempty"`
	Data     NodeData       `json:"data"`
}

// Ref returns the table reference backing this node.
func (n *Node) Ref() (tableref.Ref, error) {
	return tableref.ParseNodeID(n.ID)
}

// Executable reports whether the node's kind has an execute operation.
// Sources are imported, never executed.
func (n *Node) Executable() bool {
	return n.Kind != tableref.KindSource
}

// Completed reports whether the node has a queryable output table.
func (n *Node) Completed() bool {
	return n.Kind == tableref.KindSource || n.Data.Status == StatusCompleted
}
