package db

import (
	"time"

	"github.com/google/uuid"
)

// Run status values stored in export_runs.status.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents an export run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Server      string     `json:"server"`
	Query       string     `json:"query"`
	RangeStart  time.Time  `json:"range_start"`
	RangeEnd    time.Time  `json:"range_end"`
	Status      string     `json:"status"`
	Issues      int        `json:"issues"`
	Activities  int        `json:"activities"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunWindow is the progress row of one completed window
type RunWindow struct {
	RunID       uuid.UUID `json:"run_id"`
	Seq         int       `json:"seq"`
	Start       time.Time `json:"window_start"`
	End         time.Time `json:"window_end"`
	Query       string    `json:"query"`
	Issues      int       `json:"issues"`
	Activities  int       `json:"activities"`
	CompletedAt time.Time `json:"completed_at"`
}

// RunWindowInput represents input for recording a window
type RunWindowInput struct {
	Seq        int
	Start      time.Time
	End        time.Time
	Query      string
	Issues     int
	Activities int
}

// schema creates the mirror tables if they do not exist yet.
const schema = `
CREATE TABLE IF NOT EXISTS export_runs (
	id           UUID PRIMARY KEY,
	server       TEXT NOT NULL,
	query        TEXT NOT NULL,
	range_start  TIMESTAMPTZ,
	range_end    TIMESTAMPTZ,
	status       TEXT NOT NULL,
	issues       INTEGER NOT NULL DEFAULT 0,
	activities   INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS export_records (
	id            BIGSERIAL PRIMARY KEY,
	run_id        UUID NOT NULL REFERENCES export_runs(id) ON DELETE CASCADE,
	element_type  TEXT NOT NULL,
	record_id     TEXT,
	issue_id      TEXT,
	record        JSONB NOT NULL,
	downloaded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS export_records_run_type_idx ON export_records (run_id, element_type);
CREATE INDEX IF NOT EXISTS export_records_issue_idx ON export_records (issue_id);

CREATE TABLE IF NOT EXISTS export_run_windows (
	run_id       UUID NOT NULL REFERENCES export_runs(id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	window_start TIMESTAMPTZ NOT NULL,
	window_end   TIMESTAMPTZ NOT NULL,
	query        TEXT NOT NULL,
	issues       INTEGER NOT NULL DEFAULT 0,
	activities   INTEGER NOT NULL DEFAULT 0,
	completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (run_id, seq)
);
`
