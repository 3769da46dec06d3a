// Package db mirrors exported records into PostgreSQL.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the export tables if needed
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateRun inserts a running export run record
func (db *DB) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.Status = RunStatusRunning
	err := db.pool.QueryRow(ctx,
		`INSERT INTO export_runs (id, server, query, range_start, range_end, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		run.ID, run.Server, run.Query, run.RangeStart, run.RangeEnd, run.Status,
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun records the final status and totals of a run
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, issues, activities int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE export_runs
		 SET status = $1, issues = $2, activities = $3, completed_at = NOW()
		 WHERE id = $4`,
		status, issues, activities, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID, returning nil if it does not exist
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, server, query, range_start, range_end, status, issues, activities, created_at, completed_at
		 FROM export_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Server, &run.Query, &run.RangeStart, &run.RangeEnd,
		&run.Status, &run.Issues, &run.Activities, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// CountRecords returns how many records of elementType a run mirrored
func (db *DB) CountRecords(ctx context.Context, runID uuid.UUID, elementType string) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM export_records WHERE run_id = $1 AND element_type = $2`,
		runID, elementType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}
