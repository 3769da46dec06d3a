// Package records turns server JSON objects into provenance-tagged
// newline-delimited JSON lines.
package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Element types written to the element_type field.
const (
	ElementIssue    = "issue"
	ElementActivity = "activity"
)

// Provenance field names. Issues and activities use different timestamp
// keys; downstream readers depend on both spellings.
const (
	FieldElementType          = "element_type"
	FieldIssueID              = "issue_id"
	FieldIssueDownloadTime    = "downloadTimestamp"
	FieldActivityDownloadTime = "download_timestamp"
)

// Record is one JSON object returned by the server.
type Record map[string]any

// ID returns the server-assigned id, if present.
func (r Record) ID() (string, bool) {
	switch v := r["id"].(type) {
	case string:
		return v, v != ""
	case json.Number:
		return v.String(), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

// ElementType returns the element_type field, or "" if it is missing.
func (r Record) ElementType() string {
	s, _ := r[FieldElementType].(string)
	return s
}

// Millis converts t to epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// Issue returns a sanitized copy of r tagged as an issue.
func Issue(r Record, downloadedAt time.Time) Record {
	out := Sanitize(r)
	out[FieldElementType] = ElementIssue
	out[FieldIssueDownloadTime] = Millis(downloadedAt)
	return out
}

// Activity returns a sanitized copy of r tagged as an activity of issueID.
func Activity(r Record, issueID string, downloadedAt time.Time) Record {
	out := Sanitize(r)
	out[FieldElementType] = ElementActivity
	out[FieldIssueID] = issueID
	out[FieldActivityDownloadTime] = Millis(downloadedAt)
	return out
}

// Sanitize returns a deep copy of r with NUL characters removed and invalid
// UTF-8 sequences replaced by U+FFFD in every key and string value.
func Sanitize(r Record) Record {
	out := make(Record, len(r)+3)
	for k, v := range r {
		out[cleanString(k)] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return cleanString(val)
	case map[string]any:
		return map[string]any(Sanitize(val))
	case Record:
		return Sanitize(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

func cleanString(s string) string {
	s = strings.ToValidUTF8(s, "�")
	if strings.IndexByte(s, 0) >= 0 {
		s = strings.ReplaceAll(s, "\x00", "")
	}
	return s
}

// MarshalLine encodes r as a single JSON line terminated by '\n'. Non-ASCII
// and HTML characters are written literally.
func MarshalLine(r Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a JSON array of objects, preserving numbers verbatim.
func Decode(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out []Record
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
