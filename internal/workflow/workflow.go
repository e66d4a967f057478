// Package workflow implements the node-creation flows: transform steps,
// joins, and qualitative analyses. Each flow is a request struct that
// validates locally, submits to the backend, and drops the resulting node
// onto the canvas at the requested position.
package workflow

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/tableref"
)

// Client is the slice of the API client the workflows need.
type Client interface {
	CreateTransform(ctx context.Context, req api.CreateTransformRequest) (*api.Transform, error)
	UpdateTransform(ctx context.Context, stepID int, req api.UpdateTransformRequest) (*api.Transform, error)
	CreateJoin(ctx context.Context, req api.CreateJoinRequest) (*api.Join, error)
	CreateQualitative(ctx context.Context, req api.CreateQualitativeRequest) (*api.Qualitative, error)
}

// ValidationError reports a field-level problem with a creation request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// JoinTypes are the join strategies the backend accepts.
var JoinTypes = []string{"inner", "left", "right", "full"}

// AnalysisTypes are the qualitative analysis modes the backend accepts.
var AnalysisTypes = []string{"sentiment", "summarization"}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// EligibleInputs returns the tables that can feed a new node: sources are
// always available, other nodes only once they have produced output.
func EligibleInputs(store *canvas.Store) []canvas.Node {
	var out []canvas.Node
	for _, n := range store.Nodes() {
		if n.Completed() {
			out = append(out, n)
		}
	}
	return out
}

// TransformRequest creates an AI transformation step.
type TransformRequest struct {
	ProjectID   int
	Name        string
	Prompt      string
	OutputTable string
	Upstream    []tableref.Ref
	Position    canvas.Position
}

// Validate checks the request locally before any backend call.
func (r *TransformRequest) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "step name is required"}
	}
	if r.Prompt == "" {
		return &ValidationError{Field: "prompt", Message: "transformation prompt is required"}
	}
	if len(r.Upstream) == 0 {
		return &ValidationError{Field: "upstream", Message: "at least one input table is required"}
	}
	for _, u := range r.Upstream {
		if !u.Kind.Valid() {
			return &ValidationError{Field: "upstream", Message: fmt.Sprintf("unknown table kind %q", u.Kind)}
		}
	}
	return nil
}

// Submit validates, creates the step on the backend, and inserts the new
// node into the store at the requested position.
func (r *TransformRequest) Submit(ctx context.Context, client Client, store *canvas.Store) (*canvas.Node, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	upstream := make([]api.UpstreamTable, 0, len(r.Upstream))
	for _, u := range r.Upstream {
		upstream = append(upstream, api.UpstreamTable{ID: u.ID, Type: string(u.Kind)})
	}
	created, err := client.CreateTransform(ctx, api.CreateTransformRequest{
		ProjectID:       r.ProjectID,
		StepName:        r.Name,
		UserPrompt:      r.Prompt,
		OutputTableName: r.OutputTable,
		UpstreamTables:  upstream,
		CanvasPosition:  api.Position{X: r.Position.X, Y: r.Position.Y},
	})
	if err != nil {
		return nil, err
	}

	node := canvas.Node{
		ID:       tableref.Ref{Kind: tableref.KindTransform, ID: created.ID}.NodeID(),
		Kind:     tableref.KindTransform,
		Position: r.Position,
		Data: canvas.NodeData{
			Name:        created.StepName,
			Status:      canvas.ParseStatus(created.Status),
			Summary:     created.CodeSummary,
			OutputTable: created.OutputTableName,
			Prompt:      created.UserPrompt,
			Upstream:    r.Upstream,
		},
	}
	store.InsertNode(node)
	for _, u := range r.Upstream {
		if _, err := store.Connect(u.NodeID(), node.ID, "", ""); err != nil {
			return nil, fmt.Errorf("connecting %s: %w", u, err)
		}
	}
	return &node, nil
}

// JoinRequest creates a join operation.
type JoinRequest struct {
	ProjectID   int
	Name        string
	OutputTable string
	Left        tableref.Ref
	Right       tableref.Ref
	JoinType    string
	Keys        []canvas.JoinKey
	Position    canvas.Position
}

// Validate checks the request locally before any backend call.
func (r *JoinRequest) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "join name is required"}
	}
	if !r.Left.Kind.Valid() {
		return &ValidationError{Field: "left", Message: "left table is required"}
	}
	if !r.Right.Kind.Valid() {
		return &ValidationError{Field: "right", Message: "right table is required"}
	}
	if r.Left == r.Right {
		return &ValidationError{Field: "right", Message: "left and right tables must differ"}
	}
	if !contains(JoinTypes, r.JoinType) {
		return &ValidationError{Field: "join_type",
			Message: fmt.Sprintf("join type must be one of %v", JoinTypes)}
	}
	if len(r.Keys) == 0 {
		return &ValidationError{Field: "keys", Message: "at least one key pair is required"}
	}
	for _, k := range r.Keys {
		if k.LeftColumn == "" || k.RightColumn == "" {
			return &ValidationError{Field: "keys", Message: "key pairs need both columns"}
		}
	}
	return nil
}

// Submit validates, creates the join on the backend, and inserts the new
// node with its two input edges.
func (r *JoinRequest) Submit(ctx context.Context, client Client, store *canvas.Store) (*canvas.Node, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	keys := make([]api.JoinKeyPair, 0, len(r.Keys))
	for _, k := range r.Keys {
		keys = append(keys, api.JoinKeyPair{LeftColumn: k.LeftColumn, RightColumn: k.RightColumn})
	}
	created, err := client.CreateJoin(ctx, api.CreateJoinRequest{
		ProjectID:       r.ProjectID,
		Name:            r.Name,
		OutputTableName: r.OutputTable,
		LeftTableID:     r.Left.ID,
		LeftTableType:   string(r.Left.Kind),
		RightTableID:    r.Right.ID,
		RightTableType:  string(r.Right.Kind),
		JoinType:        r.JoinType,
		JoinKeys:        keys,
		CanvasPosition:  api.Position{X: r.Position.X, Y: r.Position.Y},
	})
	if err != nil {
		return nil, err
	}

	node := canvas.Node{
		ID:       tableref.Ref{Kind: tableref.KindJoin, ID: created.ID}.NodeID(),
		Kind:     tableref.KindJoin,
		Position: r.Position,
		Data: canvas.NodeData{
			Name:        created.Name,
			Status:      canvas.ParseStatus(created.Status),
			OutputTable: created.OutputTableName,
			JoinType:    created.JoinType,
			JoinKeys:    r.Keys,
			LeftRef:     r.Left,
			RightRef:    r.Right,
		},
	}
	store.InsertNode(node)
	if _, err := store.Connect(r.Left.NodeID(), node.ID, "", "left"); err != nil {
		return nil, fmt.Errorf("connecting left input: %w", err)
	}
	if _, err := store.Connect(r.Right.NodeID(), node.ID, "", "right"); err != nil {
		return nil, fmt.Errorf("connecting right input: %w", err)
	}
	return &node, nil
}

// QualitativeRequest creates a qualitative (text) analysis operation.
type QualitativeRequest struct {
	ProjectID    int
	Name         string
	Source       tableref.Ref
	AnalysisType string
	TextColumn   string

	// GroupColumn and IncludeSentimentStats only apply to summarization.
	GroupColumn           string
	IncludeSentimentStats bool

	OutputTable string
	Position    canvas.Position
}

// Validate checks the request locally before any backend call.
func (r *QualitativeRequest) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "analysis name is required"}
	}
	if !r.Source.Kind.Valid() {
		return &ValidationError{Field: "source", Message: "a source table is required"}
	}
	if !contains(AnalysisTypes, r.AnalysisType) {
		return &ValidationError{Field: "analysis_type",
			Message: fmt.Sprintf("analysis type must be one of %v", AnalysisTypes)}
	}
	if r.TextColumn == "" {
		return &ValidationError{Field: "text_column", Message: "a text column is required"}
	}
	return nil
}

// Submit validates, creates the operation on the backend, and inserts the
// new node with its input edge.
func (r *QualitativeRequest) Submit(ctx context.Context, client Client, store *canvas.Store) (*canvas.Node, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	created, err := client.CreateQualitative(ctx, api.CreateQualitativeRequest{
		ProjectID:                  r.ProjectID,
		Name:                       r.Name,
		SourceTableID:              r.Source.ID,
		SourceTableType:            string(r.Source.Kind),
		QualitativeColumn:          r.TextColumn,
		AnalysisType:               r.AnalysisType,
		AggregationColumn:          r.GroupColumn,
		SummarizeSentimentAnalysis: r.IncludeSentimentStats,
		OutputTableName:            r.OutputTable,
		CanvasPosition:             api.Position{X: r.Position.X, Y: r.Position.Y},
	})
	if err != nil {
		return nil, err
	}

	node := canvas.Node{
		ID:       tableref.Ref{Kind: tableref.KindQualitative, ID: created.ID}.NodeID(),
		Kind:     tableref.KindQualitative,
		Position: r.Position,
		Data: canvas.NodeData{
			Name:         created.Name,
			Status:       canvas.ParseStatus(created.Status),
			OutputTable:  created.OutputTableName,
			AnalysisType: created.AnalysisType,
			TextColumn:   created.QualitativeColumn,
			GroupColumn:  created.AggregationColumn,
			SourceRef:    r.Source,
		},
	}
	store.InsertNode(node)
	if _, err := store.Connect(r.Source.NodeID(), node.ID, "", ""); err != nil {
		return nil, fmt.Errorf("connecting source input: %w", err)
	}
	return &node, nil
}

// UpdateTransform edits an existing step's prompt, name, or inputs. The
// update response is a partial record (no status or upstream set), so the
// node's payload is patched from it and the status dropped to pending: an
// edited step has to re-execute before its output is trustworthy. When the
// request changes the input set, the node's incoming edges are rebuilt to
// match.
func UpdateTransform(ctx context.Context, client Client, store *canvas.Store, stepID int, req api.UpdateTransformRequest) (*api.Transform, error) {
	updated, err := client.UpdateTransform(ctx, stepID, req)
	if err != nil {
		return nil, err
	}

	var upstream []tableref.Ref
	if len(req.UpstreamTables) > 0 {
		for _, u := range req.UpstreamTables {
			ref, err := tableref.New(tableref.Kind(u.Type), u.ID)
			if err != nil {
				return nil, &ValidationError{Field: "upstream",
					Message: fmt.Sprintf("unknown table kind %q", u.Type)}
			}
			upstream = append(upstream, ref)
		}
	}

	nodeID := tableref.Ref{Kind: tableref.KindTransform, ID: stepID}.NodeID()
	store.UpdateData(nodeID, func(d *canvas.NodeData) {
		if updated.StepName != "" {
			d.Name = updated.StepName
		}
		if updated.UserPrompt != "" {
			d.Prompt = updated.UserPrompt
		}
		if updated.OutputTableName != "" {
			d.OutputTable = updated.OutputTableName
		}
		d.Status = canvas.StatusPending
		d.ErrorMessage = ""
		if upstream != nil {
			d.Upstream = upstream
		}
	})

	if upstream != nil {
		for _, e := range store.Edges() {
			if e.Target != nodeID {
				continue
			}
			if err := store.ApplyEdgeChange(canvas.EdgeChange{
				Type: canvas.EdgeRemoved, EdgeID: e.ID,
			}); err != nil {
				return nil, fmt.Errorf("dropping stale input edge: %w", err)
			}
		}
		for _, u := range upstream {
			if _, err := store.Connect(u.NodeID(), nodeID, "", ""); err != nil {
				return nil, fmt.Errorf("connecting %s: %w", u, err)
			}
		}
	}
	return updated, nil
}
