package youtrack

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jonathan/issues-dataset/internal/records"
	"github.com/jonathan/issues-dataset/internal/retry"
	"github.com/jonathan/issues-dataset/internal/sink"
)

// Activity page requests are retried on transport failures only.
const (
	DefaultActivityAttempts = 4
	DefaultActivityDelay    = 3 * time.Second
)

// ActivityDownloader fetches the activity history of issues one at a time.
type ActivityDownloader struct {
	Client     *Client
	Sink       sink.Sink
	PageSize   int
	Categories []string
	Retry      retry.Policy
	Now        func() time.Time
	Logger     *log.Logger
}

// NewActivityDownloader returns a downloader requesting every category with
// the default retry policy.
func NewActivityDownloader(client *Client, out sink.Sink, logger *log.Logger) *ActivityDownloader {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	d := &ActivityDownloader{
		Client:     client,
		Sink:       out,
		PageSize:   DefaultPageSize,
		Categories: AllCategories,
		Now:        time.Now,
		Logger:     logger,
	}
	d.Retry = retry.Policy{
		Attempts:  DefaultActivityAttempts,
		Delay:     DefaultActivityDelay,
		Retryable: IsRetryable,
		OnRetry: func(attempt int, err error) {
			d.Logger.Printf("activity request attempt %d failed, retrying: %v", attempt, err)
		},
	}
	return d
}

// Download writes the activities of every issue to the sink and returns the
// number written.
func (d *ActivityDownloader) Download(ctx context.Context, issueIDs []string) (int, error) {
	total := 0
	err := d.each(ctx, issueIDs, func(page []records.Record) error {
		if err := d.Sink.Write(ctx, page); err != nil {
			return fmt.Errorf("failed to write activities: %w", err)
		}
		total += len(page)
		return nil
	})
	return total, err
}

// Collect returns the activities of every issue instead of writing them.
func (d *ActivityDownloader) Collect(ctx context.Context, issueIDs []string) ([]records.Record, error) {
	var all []records.Record
	err := d.each(ctx, issueIDs, func(page []records.Record) error {
		all = append(all, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

func (d *ActivityDownloader) each(ctx context.Context, issueIDs []string, onPage func([]records.Record) error) error {
	for _, issueID := range issueIDs {
		fetch := func(ctx context.Context, skip, top int) ([]records.Record, error) {
			requestURL := d.Client.ActivitiesURL(issueID, d.Categories, skip, top)
			return retry.Do(ctx, d.Retry, func(ctx context.Context) ([]records.Record, error) {
				return d.Client.Get(ctx, requestURL)
			})
		}

		_, err := Paginate(ctx, d.PageSize, fetch, func(page []records.Record) error {
			now := d.Now()
			tagged := make([]records.Record, len(page))
			for i, activity := range page {
				tagged[i] = records.Activity(activity, issueID, now)
			}
			return onPage(tagged)
		})
		if err != nil {
			return &IssueError{IssueID: issueID, Err: err}
		}
	}
	return nil
}
