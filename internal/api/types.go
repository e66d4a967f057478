package api

// Wire types mirror the backend's snake_case JSON. Statuses arrive as plain
// strings ("draft", "pending", "running", "completed", "failed"); the canvas
// package owns their interpretation.

// Position is a canvas coordinate pair.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Project is a transformation project record.
type Project struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	SheetIDs     []int           `json:"sheet_ids"`
	CanvasLayout *Layout         `json:"canvas_layout"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

// Source is an imported source table (a connected sheet).
type Source struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	SheetName  string   `json:"sheet_name"`
	Columns    []string `json:"columns"`
	TotalRows  int      `json:"total_rows"`
	LastSynced string   `json:"last_synced"`
}

// UpstreamTable references one input table of a transform in the unified
// {id, type} form.
type UpstreamTable struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

// Transform is an AI transformation step record.
type Transform struct {
	ID              int             `json:"id"`
	StepName        string          `json:"step_name"`
	UserPrompt      string          `json:"user_prompt"`
	CodeSummary     string          `json:"code_summary"`
	OutputTableName string          `json:"output_table_name"`
	OutputColumns   []string        `json:"output_columns"`
	UpstreamTables  []UpstreamTable `json:"upstream_tables"`
	CanvasPosition  *Position       `json:"canvas_position"`
	Status          string          `json:"status"`
	ErrorMessage    string          `json:"error_message"`
	ExecutionTimeMS int64           `json:"execution_time_ms"`
	LastExecuted    string          `json:"last_executed"`
}

// JoinKeyPair maps one left column onto one right column. The wire form
// is {"left", "right"} in both create requests and list responses.
type JoinKeyPair struct {
	LeftColumn  string `json:"left"`
	RightColumn string `json:"right"`
}

// Join is a join operation record.
type Join struct {
	ID              int           `json:"id"`
	Name            string        `json:"name"`
	LeftTableID     int           `json:"left_table_id"`
	RightTableID    int           `json:"right_table_id"`
	LeftTableType   string        `json:"left_table_type"`
	RightTableType  string        `json:"right_table_type"`
	JoinType        string        `json:"join_type"`
	JoinKeys        []JoinKeyPair `json:"join_keys"`
	Status          string        `json:"status"`
	ErrorMessage    string        `json:"error_message"`
	OutputTableName string        `json:"output_table_name"`
	OutputColumns   []string      `json:"output_columns"`
	CanvasPosition  *Position     `json:"canvas_position"`
	ExecutionTimeMS int64         `json:"execution_time_ms"`
}

// Qualitative is a qualitative data analysis record.
type Qualitative struct {
	ID                    int       `json:"id"`
	Name                  string    `json:"name"`
	SourceTableID         int       `json:"source_table_id"`
	SourceTableType       string    `json:"source_table_type"`
	QualitativeColumn     string    `json:"qualitative_column"`
	AnalysisType          string    `json:"analysis_type"`
	AggregationColumn     string    `json:"aggregation_column"`
	Status                string    `json:"status"`
	ErrorMessage          string    `json:"error_message"`
	OutputTableName       string    `json:"output_table_name"`
	CanvasPosition        *Position `json:"canvas_position"`
	TotalRecordsProcessed int       `json:"total_records_processed"`
	ExecutionTimeMS       int64     `json:"execution_time_ms"`
}

// CreateTransformRequest creates a new AI transformation step.
type CreateTransformRequest struct {
	ProjectID       int             `json:"project_id"`
	StepName        string          `json:"step_name"`
	UserPrompt      string          `json:"user_prompt"`
	OutputTableName string          `json:"output_table_name,omitempty"`
	UpstreamTables  []UpstreamTable `json:"upstream_tables"`
	CanvasPosition  Position        `json:"canvas_position"`
}

// UpdateTransformRequest updates an existing step. Nil fields are left
// untouched by the backend.
type UpdateTransformRequest struct {
	StepName        *string         `json:"step_name,omitempty"`
	UserPrompt      *string         `json:"user_prompt,omitempty"`
	OutputTableName *string         `json:"output_table_name,omitempty"`
	UpstreamTables  []UpstreamTable `json:"upstream_tables,omitempty"`
	CanvasPosition  *Position       `json:"canvas_position,omitempty"`
}

// CreateJoinRequest creates a new join operation.
type CreateJoinRequest struct {
	ProjectID       int           `json:"project_id"`
	Name            string        `json:"name"`
	OutputTableName string        `json:"output_table_name,omitempty"`
	LeftTableID     int           `json:"left_table_id"`
	RightTableID    int           `json:"right_table_id"`
	LeftTableType   string        `json:"left_table_type"`
	RightTableType  string        `json:"right_table_type"`
	JoinType        string        `json:"join_type"`
	JoinKeys        []JoinKeyPair `json:"join_keys"`
	CanvasPosition  Position      `json:"canvas_position"`
}

// CreateQualitativeRequest creates a new qualitative analysis operation.
type CreateQualitativeRequest struct {
	ProjectID                  int      `json:"project_id"`
	Name                       string   `json:"name"`
	SourceTableID              int      `json:"source_table_id"`
	SourceTableType            string   `json:"source_table_type"`
	QualitativeColumn          string   `json:"qualitative_column"`
	AnalysisType               string   `json:"analysis_type"`
	AggregationColumn          string   `json:"aggregation_column,omitempty"`
	SummarizeSentimentAnalysis bool     `json:"summarize_sentiment_analysis,omitempty"`
	CanvasPosition             Position `json:"canvas_position"`
	OutputTableName            string   `json:"output_table_name,omitempty"`
}

// ExecuteResult is the success payload of a single-entity execute call.
type ExecuteResult struct {
	Status                string   `json:"status"`
	Message               string   `json:"message"`
	OutputTableName       string   `json:"output_table_name"`
	OutputColumns         []string `json:"output_columns"`
	RowCount              int      `json:"row_count"`
	TotalRecordsProcessed int      `json:"total_records_processed"`
	ExecutionTimeMS       int64    `json:"execution_time_ms"`
}

// ExecutedStep is one entry of an execute-all response.
type ExecutedStep struct {
	StepID          int    `json:"step_id,omitempty"`
	StepName        string `json:"step_name,omitempty"`
	JoinID          int    `json:"join_id,omitempty"`
	JoinName        string `json:"join_name,omitempty"`
	OperationID     int    `json:"operation_id,omitempty"`
	OperationName   string `json:"operation_name,omitempty"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
}

// ExecuteAllResult is the aggregate outcome of a whole-graph run.
type ExecuteAllResult struct {
	Message         string         `json:"message"`
	ExecutedSteps   []ExecutedStep `json:"executed_steps"`
	FailedSteps     []ExecutedStep `json:"failed_steps"`
	TotalOperations int            `json:"total_operations"`
}

// TablePage is one page of rows for the data viewer.
type TablePage struct {
	Columns   []string `json:"columns"`
	Data      [][]any  `json:"data"`
	TotalRows int      `json:"total_rows"`
}

// LayoutNode is the persisted form of one canvas node.
type LayoutNode struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Position       `json:"position"`
	Width    float64        `json:"width,omitempty"`
	Height   float64        `json:"height,omitempty"`
	Style    map[string]any `json:"style,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// LayoutConnection is the persisted form of one canvas edge.
type LayoutConnection struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Layout is the persisted canvas layout for a project.
type Layout struct {
	Nodes       []LayoutNode       `json:"nodes"`
	Connections []LayoutConnection `json:"connections"`
}

// HistoryEntry is one backend pipeline execution history record.
type HistoryEntry struct {
	ID              int    `json:"id"`
	Status          string `json:"status"`
	StartedAt       string `json:"started_at"`
	CompletedAt     string `json:"completed_at"`
	DurationSeconds int    `json:"duration_seconds"`
	RowsProcessed   int    `json:"rows_processed"`
	ErrorMessage    string `json:"error_message"`
}
