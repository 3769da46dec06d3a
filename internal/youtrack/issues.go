package youtrack

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jonathan/issues-dataset/internal/records"
	"github.com/jonathan/issues-dataset/internal/sink"
)

// IssueDownloader pages through an issue search and appends every issue to
// a sink. Requests are not retried.
type IssueDownloader struct {
	Client   *Client
	Sink     sink.Sink
	PageSize int
	Now      func() time.Time
	Logger   *log.Logger
}

// NewIssueDownloader returns a downloader with default page size and clock.
func NewIssueDownloader(client *Client, out sink.Sink, logger *log.Logger) *IssueDownloader {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &IssueDownloader{
		Client:   client,
		Sink:     out,
		PageSize: DefaultPageSize,
		Now:      time.Now,
		Logger:   logger,
	}
}

// Download fetches every issue matching query (unencoded), writes each page
// to the sink as soon as it arrives, and returns the issue ids in order.
func (d *IssueDownloader) Download(ctx context.Context, query string) ([]string, error) {
	var ids []string

	fetch := func(ctx context.Context, skip, top int) ([]records.Record, error) {
		return d.Client.Get(ctx, d.Client.IssuesURL(query, skip, top))
	}

	_, err := Paginate(ctx, d.PageSize, fetch, func(page []records.Record) error {
		now := d.Now()
		tagged := make([]records.Record, len(page))
		for i, issue := range page {
			tagged[i] = records.Issue(issue, now)
			if id, ok := issue.ID(); ok {
				ids = append(ids, id)
			} else {
				d.Logger.Printf("issue without id, its activities will not be downloaded")
			}
		}
		if err := d.Sink.Write(ctx, tagged); err != nil {
			return fmt.Errorf("failed to write issues: %w", err)
		}
		return nil
	})
	if err != nil {
		return ids, fmt.Errorf("issue download failed: %w", err)
	}
	return ids, nil
}
