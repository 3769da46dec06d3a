package youtrack

import (
	"context"
	"errors"
	"fmt"
)

// TransportError represents a failed request: network failure, unreadable
// body, or a response that is neither a JSON array nor an error object.
type TransportError struct {
	URL     string
	Status  int
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("transport error for %s: %s", e.URL, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ServerError represents a response whose JSON body carries an `error` field.
type ServerError struct {
	URL         string
	Status      int
	Message     string
	Description string
}

func (e *ServerError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("server error (HTTP %d): %s: %s", e.Status, e.Message, e.Description)
	}
	return fmt.Sprintf("server error (HTTP %d): %s", e.Status, e.Message)
}

// IssueError attributes an activity download failure to one issue.
type IssueError struct {
	IssueID string
	Err     error
}

func (e *IssueError) Error() string {
	return fmt.Sprintf("downloading failed for issue: %s: %v", e.IssueID, e.Err)
}

func (e *IssueError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transport failure worth retrying.
// Server errors and cancellation are never retried.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var te *TransportError
	return errors.As(err, &te)
}
