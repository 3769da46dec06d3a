package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/issues-dataset/internal/records"
)

var recordColumns = []string{"run_id", "element_type", "record_id", "issue_id", "record", "downloaded_at"}

// Mirror is a sink that copies every page of records into export_records.
// Closing it leaves the pool open; the owner of DB closes that.
type Mirror struct {
	db    *DB
	runID uuid.UUID
}

// NewMirror returns a sink writing rows tagged with runID.
func (db *DB) NewMirror(runID uuid.UUID) *Mirror {
	return &Mirror{db: db, runID: runID}
}

// Write copies recs in a single COPY statement.
func (m *Mirror) Write(ctx context.Context, recs []records.Record) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		row, err := recordRow(m.runID, r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if _, err := m.db.pool.CopyFrom(ctx, pgx.Identifier{"export_records"}, recordColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to mirror %d records: %w", len(recs), err)
	}
	return nil
}

// Close implements the sink interface.
func (m *Mirror) Close() error {
	return nil
}

// recordRow converts a tagged record into export_records column values.
func recordRow(runID uuid.UUID, r records.Record) ([]any, error) {
	elementType := r.ElementType()
	if elementType == "" {
		return nil, fmt.Errorf("record without %s cannot be mirrored", records.FieldElementType)
	}

	var recordID, issueID *string
	if id, ok := r.ID(); ok {
		recordID = &id
	}
	if s, ok := r[records.FieldIssueID].(string); ok {
		issueID = &s
	}

	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	return []any{runID, elementType, recordID, issueID, json.RawMessage(body), downloadedAt(r)}, nil
}

func downloadedAt(r records.Record) time.Time {
	for _, key := range []string{records.FieldIssueDownloadTime, records.FieldActivityDownloadTime} {
		switch v := r[key].(type) {
		case int64:
			return time.UnixMilli(v).UTC()
		case json.Number:
			if ms, err := v.Int64(); err == nil {
				return time.UnixMilli(ms).UTC()
			}
		}
	}
	return time.Now().UTC()
}
