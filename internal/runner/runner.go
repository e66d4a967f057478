// Package runner drives execution of pipeline nodes against the backend and
// keeps canvas statuses in step with the results: optimistic transitions on
// dispatch, authoritative state folded back in afterwards.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/tableref"
)

// Backend is the slice of the API client the runner needs.
type Backend interface {
	Execute(ctx context.Context, projectID int, ref tableref.Ref) (*api.ExecuteResult, error)
	ExecuteAll(ctx context.Context, projectID int) (*api.ExecuteAllResult, error)
	ListSources(ctx context.Context, projectID int) ([]api.Source, error)
	ListTransforms(ctx context.Context, projectID int) ([]api.Transform, error)
	ListJoins(ctx context.Context, projectID int) ([]api.Join, error)
	ListQualitative(ctx context.Context, projectID int) ([]api.Qualitative, error)
}

// History records run outcomes locally. Optional.
type History interface {
	StartRun(projectID int, target string) (int64, error)
	FinishRun(id int64, status string, errMsg string, duration time.Duration, rows int) error
}

// ErrAlreadyRunning is returned when a node (or the whole graph) already
// has an execution in flight.
var ErrAlreadyRunning = errors.New("execution already in flight")

// Summary is the aggregate outcome of a whole-graph run.
type Summary struct {
	Message     string
	Total       int
	Succeeded   int
	Failed      int
	FailedSteps []api.ExecutedStep
}

// Runner orchestrates execution for one project.
type Runner struct {
	projectID int
	store     *canvas.Store
	client    Backend
	history   History
	logger    *slog.Logger

	mu         sync.Mutex
	inflight   map[tableref.Ref]bool
	allRunning bool
}

// New creates a runner. history may be nil.
func New(projectID int, store *canvas.Store, client Backend, history History, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		projectID: projectID,
		store:     store,
		client:    client,
		history:   history,
		logger:    logger,
		inflight:  make(map[tableref.Ref]bool),
	}
}

// InFlight reports whether ref currently has an execution running.
func (r *Runner) InFlight(ref tableref.Ref) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight[ref] || r.allRunning
}

// Busy reports whether any execution is in flight.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allRunning || len(r.inflight) > 0
}

// ExecuteNode runs one executable node. The node flips to running
// immediately; on success it carries the result metadata, on failure the
// error detail. A second call for the same ref while one is in flight
// returns ErrAlreadyRunning; a whole-graph run does not block single-node
// dispatch.
func (r *Runner) ExecuteNode(ctx context.Context, ref tableref.Ref) (*api.ExecuteResult, error) {
	if ref.Kind == tableref.KindSource {
		return nil, fmt.Errorf("source tables are imported, not executed: %s", ref)
	}

	r.mu.Lock()
	if r.inflight[ref] {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.inflight[ref] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.inflight, ref)
		r.mu.Unlock()
	}()

	nodeID := ref.NodeID()
	r.store.UpdateData(nodeID, func(d *canvas.NodeData) {
		d.Status = canvas.StatusRunning
		d.ErrorMessage = ""
	})

	var runID int64
	if r.history != nil {
		if id, err := r.history.StartRun(r.projectID, ref.String()); err == nil {
			runID = id
		} else {
			r.logger.Debug("run history write failed", "error", err)
		}
	}

	start := time.Now()
	result, err := r.client.Execute(ctx, r.projectID, ref)
	elapsed := time.Since(start)

	if err != nil {
		detail := err.Error()
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			detail = apiErr.Detail
		}
		r.store.UpdateData(nodeID, func(d *canvas.NodeData) {
			d.Status = canvas.StatusFailed
			d.ErrorMessage = detail
		})
		r.finishRun(runID, "failed", detail, elapsed, 0)
		r.logger.Warn("node execution failed", "node", nodeID, "error", detail)

		// The backend may hold a richer error than the response carried.
		if ferr := r.refetchNode(ctx, ref); ferr != nil {
			r.logger.Debug("post-failure refresh failed", "node", nodeID, "error", ferr)
		}
		return nil, err
	}

	r.store.UpdateData(nodeID, func(d *canvas.NodeData) {
		d.Status = canvas.StatusCompleted
		d.ErrorMessage = ""
		if result.OutputTableName != "" {
			d.OutputTable = result.OutputTableName
		}
		if len(result.OutputColumns) > 0 {
			d.Columns = result.OutputColumns
		}
		if result.RowCount > 0 {
			d.RowCount = result.RowCount
		}
		if result.TotalRecordsProcessed > 0 {
			d.RecordsProcessed = result.TotalRecordsProcessed
		}
		d.ExecutionTimeMS = result.ExecutionTimeMS
	})
	rows := result.RowCount
	if rows == 0 {
		rows = result.TotalRecordsProcessed
	}
	r.finishRun(runID, "completed", "", elapsed, rows)
	r.logger.Info("node executed", "node", nodeID, "duration", elapsed)
	return result, nil
}

// ExecuteAll runs every executable operation in the project in backend
// dependency order, then refreshes the whole graph so statuses reflect the
// authoritative outcome.
func (r *Runner) ExecuteAll(ctx context.Context) (*Summary, error) {
	r.mu.Lock()
	if r.allRunning || len(r.inflight) > 0 {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.allRunning = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.allRunning = false
		r.mu.Unlock()
	}()

	// Flip every executable node to running up front.
	for _, n := range r.store.Nodes() {
		if !n.Executable() {
			continue
		}
		r.store.UpdateData(n.ID, func(d *canvas.NodeData) {
			d.Status = canvas.StatusRunning
			d.ErrorMessage = ""
		})
	}

	var runID int64
	if r.history != nil {
		if id, err := r.history.StartRun(r.projectID, "all"); err == nil {
			runID = id
		}
	}

	start := time.Now()
	result, err := r.client.ExecuteAll(ctx, r.projectID)
	elapsed := time.Since(start)

	if err != nil {
		r.finishRun(runID, "failed", err.Error(), elapsed, 0)
		// Statuses are stale now; pull the truth.
		if rerr := r.Refresh(ctx); rerr != nil {
			r.logger.Warn("refresh after failed run failed", "error", rerr)
		}
		return nil, err
	}

	summary := &Summary{
		Message:     result.Message,
		Total:       result.TotalOperations,
		Succeeded:   len(result.ExecutedSteps),
		Failed:      len(result.FailedSteps),
		FailedSteps: result.FailedSteps,
	}
	for _, step := range result.ExecutedSteps {
		r.applyStep(step, canvas.StatusCompleted)
	}
	for _, step := range result.FailedSteps {
		r.applyStep(step, canvas.StatusFailed)
	}

	status := "completed"
	if summary.Failed > 0 {
		status = "failed"
	}
	r.finishRun(runID, status, "", elapsed, 0)

	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("post-run refresh failed", "error", err)
	}
	r.logger.Info("pipeline executed",
		"succeeded", summary.Succeeded, "failed", summary.Failed, "duration", elapsed)
	return summary, nil
}

// applyStep maps one execute-all step record onto its canvas node.
func (r *Runner) applyStep(step api.ExecutedStep, status canvas.Status) {
	var ref tableref.Ref
	switch {
	case step.StepID > 0:
		ref = tableref.Ref{Kind: tableref.KindTransform, ID: step.StepID}
	case step.JoinID > 0:
		ref = tableref.Ref{Kind: tableref.KindJoin, ID: step.JoinID}
	case step.OperationID > 0:
		ref = tableref.Ref{Kind: tableref.KindQualitative, ID: step.OperationID}
	default:
		return
	}
	r.store.UpdateData(ref.NodeID(), func(d *canvas.NodeData) {
		d.Status = status
		d.ErrorMessage = step.Error
		if step.ExecutionTimeMS > 0 {
			d.ExecutionTimeMS = step.ExecutionTimeMS
		}
	})
}

// Refresh fetches all four entity lists in parallel and merges the rebuilt
// nodes and edges into the store, preserving local placement.
func (r *Runner) Refresh(ctx context.Context) error {
	var (
		sources    []api.Source
		transforms []api.Transform
		joins      []api.Join
		quals      []api.Qualitative
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sources, err = r.client.ListSources(ctx, r.projectID)
		return err
	})
	g.Go(func() error {
		var err error
		transforms, err = r.client.ListTransforms(ctx, r.projectID)
		return err
	})
	g.Go(func() error {
		var err error
		joins, err = r.client.ListJoins(ctx, r.projectID)
		return err
	})
	g.Go(func() error {
		var err error
		quals, err = r.client.ListQualitative(ctx, r.projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refreshing project %d: %w", r.projectID, err)
	}

	nodes, edges := canvas.BuildGraph(nil, sources, transforms, joins, quals)
	r.store.MergeGraph(nodes, edges)
	return nil
}

// refetchNode pulls the authoritative record for one failed node so the
// canvas shows the backend's stored error rather than a transport message.
func (r *Runner) refetchNode(ctx context.Context, ref tableref.Ref) error {
	switch ref.Kind {
	case tableref.KindTransform:
		list, err := r.client.ListTransforms(ctx, r.projectID)
		if err != nil {
			return err
		}
		for _, t := range list {
			if t.ID == ref.ID {
				r.store.UpdateData(ref.NodeID(), func(d *canvas.NodeData) {
					d.Status = canvas.ParseStatus(t.Status)
					if t.ErrorMessage != "" {
						d.ErrorMessage = t.ErrorMessage
					}
				})
				return nil
			}
		}
	case tableref.KindJoin:
		list, err := r.client.ListJoins(ctx, r.projectID)
		if err != nil {
			return err
		}
		for _, j := range list {
			if j.ID == ref.ID {
				r.store.UpdateData(ref.NodeID(), func(d *canvas.NodeData) {
					d.Status = canvas.ParseStatus(j.Status)
					if j.ErrorMessage != "" {
						d.ErrorMessage = j.ErrorMessage
					}
				})
				return nil
			}
		}
	case tableref.KindQualitative:
		list, err := r.client.ListQualitative(ctx, r.projectID)
		if err != nil {
			return err
		}
		for _, q := range list {
			if q.ID == ref.ID {
				r.store.UpdateData(ref.NodeID(), func(d *canvas.NodeData) {
					d.Status = canvas.ParseStatus(q.Status)
					if q.ErrorMessage != "" {
						d.ErrorMessage = q.ErrorMessage
					}
				})
				return nil
			}
		}
	}
	return nil
}

func (r *Runner) finishRun(runID int64, status, errMsg string, elapsed time.Duration, rows int) {
	if r.history == nil || runID == 0 {
		return
	}
	if err := r.history.FinishRun(runID, status, errMsg, elapsed, rows); err != nil {
		r.logger.Debug("run history update failed", "error", err)
	}
}
