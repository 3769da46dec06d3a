package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Run Windows Methods
// -----------------------------------------------------------------------------

// RecordWindow inserts or replaces the progress row of one window
func (db *DB) RecordWindow(ctx context.Context, runID uuid.UUID, input *RunWindowInput) (*RunWindow, error) {
	var w RunWindow
	err := db.pool.QueryRow(ctx,
		`INSERT INTO export_run_windows (run_id, seq, window_start, window_end, query, issues, activities)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id, seq) DO UPDATE
		 SET window_start = EXCLUDED.window_start, window_end = EXCLUDED.window_end,
		     query = EXCLUDED.query, issues = EXCLUDED.issues,
		     activities = EXCLUDED.activities, completed_at = NOW()
		 RETURNING run_id, seq, window_start, window_end, query, issues, activities, completed_at`,
		runID, input.Seq, input.Start, input.End, input.Query, input.Issues, input.Activities,
	).Scan(&w.RunID, &w.Seq, &w.Start, &w.End, &w.Query, &w.Issues, &w.Activities, &w.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record window %d: %w", input.Seq, err)
	}
	return &w, nil
}

// GetWindow retrieves a window by run_id and sequence number
func (db *DB) GetWindow(ctx context.Context, runID uuid.UUID, seq int) (*RunWindow, error) {
	var w RunWindow
	err := db.pool.QueryRow(ctx,
		`SELECT run_id, seq, window_start, window_end, query, issues, activities, completed_at
		 FROM export_run_windows
		 WHERE run_id = $1 AND seq = $2`,
		runID, seq,
	).Scan(&w.RunID, &w.Seq, &w.Start, &w.End, &w.Query, &w.Issues, &w.Activities, &w.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get window: %w", err)
	}
	return &w, nil
}

// ListWindows retrieves the completed windows of a run in processing order,
// optionally only those completed after since
func (db *DB) ListWindows(ctx context.Context, runID uuid.UUID, since *time.Time) ([]RunWindow, error) {
	query := `SELECT run_id, seq, window_start, window_end, query, issues, activities, completed_at
	          FROM export_run_windows
	          WHERE run_id = $1`
	args := []any{runID}

	if since != nil {
		query += " AND completed_at > $2"
		args = append(args, *since)
	}

	query += " ORDER BY seq"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}
	defer rows.Close()

	var windows []RunWindow
	for rows.Next() {
		var w RunWindow
		if err := rows.Scan(&w.RunID, &w.Seq, &w.Start, &w.End, &w.Query, &w.Issues, &w.Activities, &w.CompletedAt); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}
