package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Manifest describes one run next to its output files.
type Manifest struct {
	RunID          uuid.UUID `json:"run_id"`
	Server         string    `json:"server"`
	Query          string    `json:"query"`
	QueryType      string    `json:"query_type"`
	OrderBy        string    `json:"order_by"`
	Direction      string    `json:"direction"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	IssuesFile     string    `json:"issues_file,omitempty"`
	ActivitiesFile string    `json:"activities_file,omitempty"`
	Totals         Totals    `json:"totals"`
	Windows        int       `json:"windows"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Error          string    `json:"error,omitempty"`
}

// NewManifest fills the run-dependent fields of m from result and runErr.
func NewManifest(m Manifest, result *Result, runErr error) Manifest {
	if result != nil {
		m.RunID = result.RunID
		m.Totals = result.Totals
		m.Windows = result.Windows
		m.StartedAt = result.StartedAt
		m.FinishedAt = result.FinishedAt
		m.ElapsedSeconds = result.Elapsed.Seconds()
	}
	if runErr != nil {
		m.Error = runErr.Error()
	}
	return m
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}
