package canvas

import (
	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/tableref"
)

// Grid constants for nodes that arrive with no saved placement. Sources
// line up in a left column; each downstream kind gets its own column so a
// never-arranged project still reads left to right.
const (
	gridColWidth  = 320
	gridRowHeight = 140
	gridOriginX   = 40
	gridOriginY   = 40
)

// BuildGraph assembles canvas nodes and edges from the backend entity lists
// of one project. Placement precedence per node: the saved layout, then the
// entity's own canvas position, then a kind-column grid slot. Edges are
// derived from entity upstream references, never from the saved layout, so
// a stale layout can not invent connections.
func BuildGraph(layout *api.Layout, sources []api.Source, transforms []api.Transform, joins []api.Join, quals []api.Qualitative) ([]Node, []Edge) {
	saved := make(map[string]api.LayoutNode)
	if layout != nil {
		for _, ln := range layout.Nodes {
			saved[ln.ID] = ln
		}
	}

	var nodes []Node
	var edges []Edge
	rows := map[tableref.Kind]int{}

	place := func(id string, kind tableref.Kind, entityPos *api.Position) (Position, *Size, map[string]any) {
		if ln, ok := saved[id]; ok {
			var size *Size
			if ln.Width > 0 || ln.Height > 0 {
				size = &Size{Width: ln.Width, Height: ln.Height}
			}
			return Position{X: ln.Position.X, Y: ln.Position.Y}, size, ln.Style
		}
		if entityPos != nil {
			return Position{X: entityPos.X, Y: entityPos.Y}, nil, nil
		}
		col := 0
		switch kind {
		case tableref.KindTransform:
			col = 1
		case tableref.KindJoin:
			col = 2
		case tableref.KindQualitative:
			col = 3
		}
		row := rows[kind]
		rows[kind] = row + 1
		return Position{
			X: float64(gridOriginX + col*gridColWidth),
			Y: float64(gridOriginY + row*gridRowHeight),
		}, nil, nil
	}

	for _, src := range sources {
		ref := tableref.Ref{Kind: tableref.KindSource, ID: src.ID}
		id := ref.NodeID()
		pos, size, style := place(id, ref.Kind, nil)
		nodes = append(nodes, Node{
			ID:       id,
			Kind:     ref.Kind,
			Position: pos,
			Size:     size,
			Style:    style,
			Data: NodeData{
				Name:     src.Title,
				Status:   StatusCompleted,
				Columns:  src.Columns,
				RowCount: src.TotalRows,
			},
		})
	}

	for _, t := range transforms {
		ref := tableref.Ref{Kind: tableref.KindTransform, ID: t.ID}
		id := ref.NodeID()
		pos, size, style := place(id, ref.Kind, t.CanvasPosition)
		upstream := make([]tableref.Ref, 0, len(t.UpstreamTables))
		for _, u := range t.UpstreamTables {
			ur, err := tableref.New(tableref.Kind(u.Type), u.ID)
			if err != nil {
				continue
			}
			upstream = append(upstream, ur)
			edges = append(edges, Edge{
				ID:     EdgeID(ur.NodeID(), id, ""),
				Source: ur.NodeID(),
				Target: id,
			})
		}
		nodes = append(nodes, Node{
			ID:       id,
			Kind:     ref.Kind,
			Position: pos,
			Size:     size,
			Style:    style,
			Data: NodeData{
				Name:            t.StepName,
				Status:          ParseStatus(t.Status),
				Summary:         t.CodeSummary,
				ErrorMessage:    t.ErrorMessage,
				Columns:         t.OutputColumns,
				OutputTable:     t.OutputTableName,
				Prompt:          t.UserPrompt,
				Upstream:        upstream,
				ExecutionTimeMS: t.ExecutionTimeMS,
			},
		})
	}

	for _, j := range joins {
		ref := tableref.Ref{Kind: tableref.KindJoin, ID: j.ID}
		id := ref.NodeID()
		pos, size, style := place(id, ref.Kind, j.CanvasPosition)
		var left, right tableref.Ref
		if lr, err := tableref.New(tableref.Kind(j.LeftTableType), j.LeftTableID); err == nil {
			left = lr
			edges = append(edges, Edge{
				ID:           EdgeID(lr.NodeID(), id, "left"),
				Source:       lr.NodeID(),
				Target:       id,
				TargetHandle: "left",
			})
		}
		if rr, err := tableref.New(tableref.Kind(j.RightTableType), j.RightTableID); err == nil {
			right = rr
			edges = append(edges, Edge{
				ID:           EdgeID(rr.NodeID(), id, "right"),
				Source:       rr.NodeID(),
				Target:       id,
				TargetHandle: "right",
			})
		}
		keys := make([]JoinKey, 0, len(j.JoinKeys))
		for _, k := range j.JoinKeys {
			keys = append(keys, JoinKey{LeftColumn: k.LeftColumn, RightColumn: k.RightColumn})
		}
		nodes = append(nodes, Node{
			ID:       id,
			Kind:     ref.Kind,
			Position: pos,
			Size:     size,
			Style:    style,
			Data: NodeData{
				Name:            j.Name,
				Status:          ParseStatus(j.Status),
				ErrorMessage:    j.ErrorMessage,
				Columns:         j.OutputColumns,
				OutputTable:     j.OutputTableName,
				JoinType:        j.JoinType,
				JoinKeys:        keys,
				LeftRef:         left,
				RightRef:        right,
				ExecutionTimeMS: j.ExecutionTimeMS,
			},
		})
	}

	for _, q := range quals {
		ref := tableref.Ref{Kind: tableref.KindQualitative, ID: q.ID}
		id := ref.NodeID()
		pos, size, style := place(id, ref.Kind, q.CanvasPosition)
		var srcRef tableref.Ref
		if sr, err := tableref.New(tableref.Kind(q.SourceTableType), q.SourceTableID); err == nil {
			srcRef = sr
			edges = append(edges, Edge{
				ID:     EdgeID(sr.NodeID(), id, ""),
				Source: sr.NodeID(),
				Target: id,
			})
		}
		nodes = append(nodes, Node{
			ID:       id,
			Kind:     ref.Kind,
			Position: pos,
			Size:     size,
			Style:    style,
			Data: NodeData{
				Name:             q.Name,
				Status:           ParseStatus(q.Status),
				ErrorMessage:     q.ErrorMessage,
				OutputTable:      q.OutputTableName,
				AnalysisType:     q.AnalysisType,
				TextColumn:       q.QualitativeColumn,
				GroupColumn:      q.AggregationColumn,
				SourceRef:        srcRef,
				RecordsProcessed: q.TotalRecordsProcessed,
				ExecutionTimeMS:  q.ExecutionTimeMS,
			},
		})
	}

	return nodes, edges
}

// Snapshot projects the current store contents into the persisted layout
// form for the canvas-layout endpoint.
func Snapshot(nodes []Node, edges []Edge) api.Layout {
	layout := api.Layout{
		Nodes:       make([]api.LayoutNode, 0, len(nodes)),
		Connections: make([]api.LayoutConnection, 0, len(edges)),
	}
	for _, n := range nodes {
		ln := api.LayoutNode{
			ID:       n.ID,
			Type:     string(n.Kind),
			Position: api.Position{X: n.Position.X, Y: n.Position.Y},
			Style:    n.Style,
			// Enough identity to label a node before entities load.
			Data: map[string]any{
				"name":   n.Data.Name,
				"status": string(n.Data.Status),
			},
		}
		if n.Size != nil {
			ln.Width = n.Size.Width
			ln.Height = n.Size.Height
		}
		layout.Nodes = append(layout.Nodes, ln)
	}
	for _, e := range edges {
		layout.Connections = append(layout.Connections, api.LayoutConnection{
			ID:           e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
		})
	}
	return layout
}
