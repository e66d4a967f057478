package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/flowcanvas/internal/api"
)

// SaveLayout upserts the cached layout for a project.
func (s *SQLiteStore) SaveLayout(projectID int, layout *api.Layout) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	blob, err := json.Marshal(layout)
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO layout_cache (project_id, layout, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET layout = excluded.layout, saved_at = excluded.saved_at`,
		projectID, string(blob), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to cache layout: %w", err)
	}
	return nil
}

// GetLayout returns the cached layout for a project, or nil when none has
// been saved.
func (s *SQLiteStore) GetLayout(projectID int) (*api.Layout, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var blob string
	err := s.db.QueryRow(
		`SELECT layout FROM layout_cache WHERE project_id = ?`, projectID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached layout: %w", err)
	}

	var layout api.Layout
	if err := json.Unmarshal([]byte(blob), &layout); err != nil {
		return nil, fmt.Errorf("failed to decode cached layout: %w", err)
	}
	return &layout, nil
}
