package api

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/flowcanvas/internal/tableref"
)

// GetProject fetches a project record (including its persisted layout).
func (c *Client) GetProject(ctx context.Context, projectID int) (*Project, error) {
	var out Project
	if err := c.get(ctx, fmt.Sprintf("/projects/%d", projectID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSources fetches the source tables available to a project.
func (c *Client) ListSources(ctx context.Context, projectID int) ([]Source, error) {
	var out struct {
		Sheets []Source `json:"sheets"`
	}
	if err := c.get(ctx, fmt.Sprintf("/projects/%d/sheets", projectID), &out); err != nil {
		return nil, err
	}
	return out.Sheets, nil
}

// ListTransforms fetches all AI transformation steps of a project.
func (c *Client) ListTransforms(ctx context.Context, projectID int) ([]Transform, error) {
	var out struct {
		Steps []Transform `json:"steps"`
	}
	if err := c.get(ctx, fmt.Sprintf("/projects/%d/ai-transformations", projectID), &out); err != nil {
		return nil, err
	}
	return out.Steps, nil
}

// ListJoins fetches all join operations of a project.
func (c *Client) ListJoins(ctx context.Context, projectID int) ([]Join, error) {
	var out struct {
		Joins []Join `json:"joins"`
	}
	if err := c.get(ctx, fmt.Sprintf("/projects/%d/joins", projectID), &out); err != nil {
		return nil, err
	}
	return out.Joins, nil
}

// ListQualitative fetches all qualitative analysis operations of a project.
func (c *Client) ListQualitative(ctx context.Context, projectID int) ([]Qualitative, error) {
	var out struct {
		Operations []Qualitative `json:"operations"`
	}
	if err := c.get(ctx, fmt.Sprintf("/projects/%d/qualitative-data", projectID), &out); err != nil {
		return nil, err
	}
	return out.Operations, nil
}

// CreateTransform creates a new transformation step.
func (c *Client) CreateTransform(ctx context.Context, req CreateTransformRequest) (*Transform, error) {
	var out Transform
	path := fmt.Sprintf("/projects/%d/ai-transformations", req.ProjectID)
	if err := c.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTransform updates a transformation step and returns the refreshed record.
func (c *Client) UpdateTransform(ctx context.Context, stepID int, req UpdateTransformRequest) (*Transform, error) {
	var out Transform
	if err := c.put(ctx, fmt.Sprintf("/ai-transformations/%d", stepID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTransform deletes a transformation step.
func (c *Client) DeleteTransform(ctx context.Context, stepID int) error {
	return c.delete(ctx, fmt.Sprintf("/ai-transformations/%d", stepID))
}

// CreateJoin creates a new join operation. The create response is an id
// envelope ({"join_id": ...}), not the record, so the returned Join is
// assembled from the request plus the assigned id.
func (c *Client) CreateJoin(ctx context.Context, req CreateJoinRequest) (*Join, error) {
	var out struct {
		JoinID int    `json:"join_id"`
		Status string `json:"status"`
	}
	path := fmt.Sprintf("/projects/%d/joins", req.ProjectID)
	if err := c.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	pos := req.CanvasPosition
	return &Join{
		ID:              out.JoinID,
		Name:            req.Name,
		LeftTableID:     req.LeftTableID,
		RightTableID:    req.RightTableID,
		LeftTableType:   req.LeftTableType,
		RightTableType:  req.RightTableType,
		JoinType:        req.JoinType,
		JoinKeys:        req.JoinKeys,
		Status:          "pending",
		OutputTableName: req.OutputTableName,
		CanvasPosition:  &pos,
	}, nil
}

// DeleteJoin deletes a join operation.
func (c *Client) DeleteJoin(ctx context.Context, projectID, joinID int) error {
	return c.delete(ctx, fmt.Sprintf("/projects/%d/joins/%d", projectID, joinID))
}

// CreateQualitative creates a new qualitative analysis operation. As with
// joins, the create response only carries the assigned id.
func (c *Client) CreateQualitative(ctx context.Context, req CreateQualitativeRequest) (*Qualitative, error) {
	var out struct {
		OperationID int    `json:"operation_id"`
		Status      string `json:"status"`
	}
	path := fmt.Sprintf("/projects/%d/qualitative-data", req.ProjectID)
	if err := c.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	pos := req.CanvasPosition
	return &Qualitative{
		ID:                out.OperationID,
		Name:              req.Name,
		SourceTableID:     req.SourceTableID,
		SourceTableType:   req.SourceTableType,
		QualitativeColumn: req.QualitativeColumn,
		AnalysisType:      req.AnalysisType,
		AggregationColumn: req.AggregationColumn,
		Status:            "pending",
		OutputTableName:   req.OutputTableName,
		CanvasPosition:    &pos,
	}, nil
}

// DeleteQualitative deletes a qualitative analysis operation.
func (c *Client) DeleteQualitative(ctx context.Context, projectID, operationID int) error {
	return c.delete(ctx, fmt.Sprintf("/projects/%d/qualitative-data/%d", projectID, operationID))
}

// Execute runs a single transform, join, or qualitative analysis.
// Sources have no execute operation.
func (c *Client) Execute(ctx context.Context, projectID int, ref tableref.Ref) (*ExecuteResult, error) {
	var path string
	switch ref.Kind {
	case tableref.KindTransform:
		path = fmt.Sprintf("/ai-transformations/%d/execute", ref.ID)
	case tableref.KindJoin:
		path = fmt.Sprintf("/projects/%d/joins/%d/execute", projectID, ref.ID)
	case tableref.KindQualitative:
		path = fmt.Sprintf("/projects/%d/qualitative-data/%d/execute", projectID, ref.ID)
	default:
		return nil, fmt.Errorf("cannot execute %s: not an executable kind", ref)
	}

	var out ExecuteResult
	if err := c.post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteAll runs the whole project graph in backend dependency order.
func (c *Client) ExecuteAll(ctx context.Context, projectID int) (*ExecuteAllResult, error) {
	var out ExecuteAllResult
	if err := c.post(ctx, fmt.Sprintf("/projects/%d/execute-all", projectID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTablePage fetches the output rows for any table ref. Each kind has
// its own data surface: sheets and transforms live under table-data keyed
// "sheet_<id>" / "transform_<id>" and answer record objects; joins and
// qualitative analyses have per-entity data endpoints answering row arrays.
func (c *Client) GetTablePage(ctx context.Context, projectID int, ref tableref.Ref) (*TablePage, error) {
	switch ref.Kind {
	case tableref.KindSource, tableref.KindTransform:
		prefix := "sheet"
		if ref.Kind == tableref.KindTransform {
			prefix = "transform"
		}
		var out struct {
			Columns  []string         `json:"columns"`
			Data     []map[string]any `json:"data"`
			RowCount int              `json:"row_count"`
		}
		path := fmt.Sprintf("/projects/%d/table-data/%s_%d", projectID, prefix, ref.ID)
		if err := c.get(ctx, path, &out); err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(out.Data))
		for _, rec := range out.Data {
			row := make([]any, len(out.Columns))
			for i, col := range out.Columns {
				row[i] = rec[col]
			}
			rows = append(rows, row)
		}
		total := out.RowCount
		if total == 0 {
			total = len(rows)
		}
		return &TablePage{Columns: out.Columns, Data: rows, TotalRows: total}, nil

	case tableref.KindJoin, tableref.KindQualitative:
		path := fmt.Sprintf("/projects/%d/joins/%d/data", projectID, ref.ID)
		if ref.Kind == tableref.KindQualitative {
			path = fmt.Sprintf("/projects/%d/qualitative-data/%d/data", projectID, ref.ID)
		}
		var out struct {
			Columns   []string `json:"columns"`
			Data      [][]any  `json:"data"`
			TotalRows int      `json:"total_rows"`
		}
		if err := c.get(ctx, path, &out); err != nil {
			return nil, err
		}
		total := out.TotalRows
		if total == 0 {
			total = len(out.Data)
		}
		return &TablePage{Columns: out.Columns, Data: out.Data, TotalRows: total}, nil
	}
	return nil, fmt.Errorf("no table data for %s", ref)
}

// GetLayout fetches the persisted canvas layout. Returns nil when the
// project has never been saved.
func (c *Client) GetLayout(ctx context.Context, projectID int) (*Layout, error) {
	project, err := c.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return project.CanvasLayout, nil
}

// PutLayout persists the canvas layout for a project.
func (c *Client) PutLayout(ctx context.Context, projectID int, layout *Layout) error {
	return c.put(ctx, fmt.Sprintf("/projects/%d/canvas-layout", projectID), layout, nil)
}

// GetHistory fetches recent backend pipeline executions for a project.
func (c *Client) GetHistory(ctx context.Context, projectID, limit int) ([]HistoryEntry, error) {
	var out struct {
		History []HistoryEntry `json:"history"`
	}
	path := fmt.Sprintf("/projects/%d/history?limit=%d", projectID, limit)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}
