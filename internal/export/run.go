// Package export drives a windowed download of issues and their activities.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/issues-dataset/internal/query"
	"github.com/jonathan/issues-dataset/internal/sink"
	"github.com/jonathan/issues-dataset/internal/window"
	"github.com/jonathan/issues-dataset/internal/youtrack"
)

// ErrNoIssueSource is returned when activities are requested without
// downloading issues and no issue ids were supplied.
var ErrNoIssueSource = errors.New("activities-only mode requires an explicit list of issue ids")

// Progress steps reported through ProgressCallback.
const (
	StepWindow     = "window"
	StepIssues     = "issues"
	StepActivities = "activities"
	StepWindowDone = "window_done"
	StepDone       = "done"
)

// ProgressEvent represents a progress update during a run.
type ProgressEvent struct {
	Step    string        `json:"step"`
	Message string        `json:"message"`
	RunID   string        `json:"run_id,omitempty"`
	Window  window.Window `json:"window"`
	Count   int           `json:"count,omitempty"`
	Totals  Totals        `json:"totals"`
	// Index is the 1-based window number.
	Index int `json:"index,omitempty"`
	// WindowTotals is set on StepWindowDone.
	WindowTotals Totals `json:"window_totals"`
}

// ProgressCallback is called when run progress occurs.
type ProgressCallback func(event ProgressEvent)

// Totals counts records written during a run.
type Totals struct {
	Issues     int `json:"issues"`
	Activities int `json:"activities"`
}

// Options holds everything a run needs. Sinks must already be open; the
// caller owns and closes them.
type Options struct {
	RunID     uuid.UUID
	Start     time.Time
	End       time.Time
	Direction window.Direction
	Query     query.Builder

	LoadIssues     bool
	LoadActivities bool
	// IssueIDs is the activity source when LoadIssues is false.
	IssueIDs []string

	Client     *youtrack.Client
	Issues     sink.Sink
	Activities sink.Sink
	PageSize   int
	Categories []string

	Logger     *log.Logger
	OnProgress ProgressCallback
	Now        func() time.Time

	// ConfigureActivities, if set, adjusts the activity downloader before use.
	ConfigureActivities func(*youtrack.ActivityDownloader)
}

// Result summarizes a finished run.
type Result struct {
	RunID      uuid.UUID     `json:"run_id"`
	Totals     Totals        `json:"totals"`
	Windows    int           `json:"windows"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Elapsed    time.Duration `json:"elapsed"`
}

func (o *Options) withDefaults() {
	if o.RunID == uuid.Nil {
		o.RunID = uuid.New()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.PageSize == 0 {
		o.PageSize = youtrack.DefaultPageSize
	}
	if o.Issues == nil {
		o.Issues = sink.Discard
	}
	if o.Activities == nil {
		o.Activities = sink.Discard
	}
}

func (o *Options) emit(ev ProgressEvent) {
	if o.OnProgress != nil {
		ev.RunID = o.RunID.String()
		o.OnProgress(ev)
	}
}

func (o *Options) issueDownloader() *youtrack.IssueDownloader {
	d := youtrack.NewIssueDownloader(o.Client, o.Issues, o.Logger)
	d.PageSize = o.PageSize
	d.Now = o.Now
	return d
}

func (o *Options) activityDownloader() *youtrack.ActivityDownloader {
	d := youtrack.NewActivityDownloader(o.Client, o.Activities, o.Logger)
	d.PageSize = o.PageSize
	d.Now = o.Now
	if len(o.Categories) > 0 {
		d.Categories = o.Categories
	}
	if o.ConfigureActivities != nil {
		o.ConfigureActivities(d)
	}
	return d
}

// Run walks the requested range window by window, downloading issues and
// then their activities for each window. Any error aborts the whole run;
// records written before the failure stay in the sinks.
func Run(ctx context.Context, opts Options) (*Result, error) {
	opts.withDefaults()

	splitter, err := window.New(opts.Start, opts.End, opts.Direction)
	if err != nil {
		return nil, err
	}
	if opts.LoadActivities && !opts.LoadIssues && len(opts.IssueIDs) == 0 {
		return nil, ErrNoIssueSource
	}
	if (opts.LoadIssues || opts.LoadActivities) && opts.Client == nil {
		return nil, fmt.Errorf("export: client is required")
	}

	result := &Result{RunID: opts.RunID, StartedAt: opts.Now()}
	logger := opts.Logger

	if !opts.LoadIssues {
		if opts.LoadActivities {
			n, err := opts.activityDownloader().Download(ctx, opts.IssueIDs)
			result.Totals.Activities += n
			if err != nil {
				return result, err
			}
			logger.Printf("Loaded %d activities for %d given issues", n, len(opts.IssueIDs))
		}
		return finish(&opts, result), nil
	}

	issues := opts.issueDownloader()
	activities := opts.activityDownloader()

	for w := range splitter.All() {
		result.Windows++
		idx := result.Windows
		q := opts.Query.ForWindow(w)
		logger.Printf("Processing from: %s to: %s, query: %s",
			w.Start.Format(query.TimestampLayout), w.End.Format(query.TimestampLayout), q)
		opts.emit(ProgressEvent{Step: StepWindow, Message: q, Window: w, Index: idx, Totals: result.Totals})

		var current Totals
		ids, err := issues.Download(ctx, q)
		current.Issues = len(ids)
		result.Totals.Issues += len(ids)
		if err != nil {
			return result, fmt.Errorf("window %s .. %s: %w",
				w.Start.Format(query.TimestampLayout), w.End.Format(query.TimestampLayout), err)
		}
		logger.Printf("Loaded %d issues", len(ids))
		opts.emit(ProgressEvent{Step: StepIssues, Window: w, Index: idx, Count: len(ids), Totals: result.Totals})

		if opts.LoadActivities && len(ids) > 0 {
			n, err := activities.Download(ctx, ids)
			current.Activities = n
			result.Totals.Activities += n
			if err != nil {
				return result, fmt.Errorf("window %s .. %s: %w",
					w.Start.Format(query.TimestampLayout), w.End.Format(query.TimestampLayout), err)
			}
			logger.Printf("Loaded %d activities", n)
			opts.emit(ProgressEvent{Step: StepActivities, Window: w, Index: idx, Count: n, Totals: result.Totals})
		}

		opts.emit(ProgressEvent{Step: StepWindowDone, Message: q, Window: w, Index: idx, Totals: result.Totals, WindowTotals: current})
	}

	return finish(&opts, result), nil
}

// RunActivities downloads the activities of the given issues without any
// time windowing.
func RunActivities(ctx context.Context, opts Options) (*Result, error) {
	opts.LoadIssues = false
	opts.LoadActivities = true
	opts.withDefaults()
	if len(opts.IssueIDs) == 0 {
		return nil, ErrNoIssueSource
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("export: client is required")
	}

	result := &Result{RunID: opts.RunID, StartedAt: opts.Now()}
	n, err := opts.activityDownloader().Download(ctx, opts.IssueIDs)
	result.Totals.Activities = n
	if err != nil {
		return result, err
	}
	opts.emit(ProgressEvent{Step: StepActivities, Count: n, Totals: result.Totals})
	return finish(&opts, result), nil
}

func finish(opts *Options, result *Result) *Result {
	result.FinishedAt = opts.Now()
	result.Elapsed = result.FinishedAt.Sub(result.StartedAt)
	msg := fmt.Sprintf("Loaded %d issues and %d activity items in %s",
		result.Totals.Issues, result.Totals.Activities, result.Elapsed)
	opts.Logger.Print(msg)
	opts.emit(ProgressEvent{Step: StepDone, Message: msg, Totals: result.Totals})
	return result
}
