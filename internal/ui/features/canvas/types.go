package canvas

import (
	canvasstore "github.com/leapstack-labs/flowcanvas/internal/canvas"
)

// CanvasView is the render model for the canvas page and its SSE patches.
type CanvasView struct {
	ProjectID   int
	ProjectName string
	Nodes       []NodeView
	Edges       []EdgeView
	Busy        bool
	LastSaved   string
	Flash       string
}

// NodeView is one positioned node.
type NodeView struct {
	ID          string
	Kind        string
	Name        string
	Status      string
	Summary     string
	Error       string
	OutputTable string
	RowCount    int
	X           float64
	Y           float64
	Width       float64
	Height      float64
	Executable  bool
	Viewable    bool
}

// EdgeView is one rendered connection line.
type EdgeView struct {
	ID           string
	TargetHandle string
	X1, Y1       float64
	X2, Y2       float64
}

// Node box defaults used to anchor edge endpoints.
const (
	defaultNodeWidth  = 200
	defaultNodeHeight = 80
)

// buildView projects the store's graph into the render model.
func buildView(projectID int, projectName string, nodes []canvasstore.Node, edges []canvasstore.Edge, busy bool, lastSaved, flash string) CanvasView {
	view := CanvasView{
		ProjectID:   projectID,
		ProjectName: projectName,
		Busy:        busy,
		LastSaved:   lastSaved,
		Flash:       flash,
	}

	byID := make(map[string]canvasstore.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		nv := NodeView{
			ID:          n.ID,
			Kind:        string(n.Kind),
			Name:        n.Data.Name,
			Status:      string(n.Data.Status),
			Summary:     n.Data.Summary,
			Error:       n.Data.ErrorMessage,
			OutputTable: n.Data.OutputTable,
			RowCount:    n.Data.RowCount,
			X:           n.Position.X,
			Y:           n.Position.Y,
			Width:       defaultNodeWidth,
			Height:      defaultNodeHeight,
			Executable:  n.Executable(),
			Viewable:    n.Completed(),
		}
		if n.Size != nil {
			nv.Width = n.Size.Width
			nv.Height = n.Size.Height
		}
		view.Nodes = append(view.Nodes, nv)
	}

	for _, e := range edges {
		src, ok := byID[e.Source]
		if !ok {
			continue
		}
		tgt, ok := byID[e.Target]
		if !ok {
			continue
		}
		view.Edges = append(view.Edges, EdgeView{
			ID:           e.ID,
			TargetHandle: e.TargetHandle,
			X1:           src.Position.X + nodeWidth(src),
			Y1:           src.Position.Y + nodeHeight(src)/2,
			X2:           tgt.Position.X,
			Y2:           tgt.Position.Y + nodeHeight(tgt)/2,
		})
	}
	return view
}

func nodeWidth(n canvasstore.Node) float64 {
	if n.Size != nil && n.Size.Width > 0 {
		return n.Size.Width
	}
	return defaultNodeWidth
}

func nodeHeight(n canvasstore.Node) float64 {
	if n.Size != nil && n.Size.Height > 0 {
		return n.Size.Height
	}
	return defaultNodeHeight
}

// positionChange is the body of a node position update.
type positionChange struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Final bool    `json:"final"`
}

// connectRequest is the body of an edge-create call.
type connectRequest struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// createTransformForm is the transform creation body.
type createTransformForm struct {
	Name     string   `json:"name"`
	Prompt   string   `json:"prompt"`
	Upstream []string `json:"upstream"` // node ids
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
}

// editTransformForm is the transform edit body. Empty fields are left
// untouched; a non-empty upstream list replaces the step's input set.
type editTransformForm struct {
	Name     string   `json:"name"`
	Prompt   string   `json:"prompt"`
	Upstream []string `json:"upstream"` // node ids
}

// createJoinForm is the join creation body.
type createJoinForm struct {
	Name     string  `json:"name"`
	Left     string  `json:"left"`  // node id
	Right    string  `json:"right"` // node id
	JoinType string  `json:"join_type"`
	Keys     []key   `json:"keys"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type key struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// createQualitativeForm is the qualitative analysis creation body.
type createQualitativeForm struct {
	Name           string  `json:"name"`
	Source         string  `json:"source"` // node id
	AnalysisType   string  `json:"analysis_type"`
	TextColumn     string  `json:"text_column"`
	GroupColumn    string  `json:"group_column"`
	SentimentStats bool    `json:"sentiment_stats"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
}
