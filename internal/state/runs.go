package state

import (
	"fmt"
	"time"
)

// Run is one locally recorded execution.
type Run struct {
	ID          int64
	ProjectID   int
	Target      string // a table ref string, or "all"
	Status      string
	Error       string
	Rows        int
	Duration    time.Duration
	StartedAt   time.Time
	CompletedAt time.Time
}

// StartRun records the start of an execution and returns its row id.
func (s *SQLiteStore) StartRun(projectID int, target string) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	s.logger.Debug("recording run", "project", projectID, "target", target)

	res, err := s.db.Exec(
		`INSERT INTO runs (project_id, target, status, started_at) VALUES (?, ?, 'running', ?)`,
		projectID, target, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun marks a run as finished with its outcome.
func (s *SQLiteStore) FinishRun(id int64, status string, errMsg string, duration time.Duration, rows int) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, error = ?, duration_ms = ?, rows_processed = ?, completed_at = ? WHERE id = ?`,
		status, errMsg, duration.Milliseconds(), rows, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs for a project, newest first.
func (s *SQLiteStore) ListRuns(projectID, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, project_id, target, status, COALESCE(error, ''), rows_processed, duration_ms, started_at, completed_at
		 FROM runs WHERE project_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r          Run
			durationMS int64
			completed  *time.Time
		)
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Target, &r.Status, &r.Error,
			&r.Rows, &durationMS, &r.StartedAt, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if completed != nil {
			r.CompletedAt = *completed
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
