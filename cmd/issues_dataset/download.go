package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/issues-dataset/internal/config"
	"github.com/jonathan/issues-dataset/internal/db"
	"github.com/jonathan/issues-dataset/internal/export"
	"github.com/jonathan/issues-dataset/internal/query"
	"github.com/jonathan/issues-dataset/internal/sink"
	"github.com/jonathan/issues-dataset/internal/window"
)

var downloadCommand = &cobra.Command{
	Use:   "download",
	Short: "Download issues and their activities over a time range",
	Long: `Walks [start, end) in 7-day windows. For every window the matching issues are downloaded and appended to <filename>.issues.json, then the activities of those issues are appended to <filename>.activities.json.

Both output files are truncated when the run starts. Configuration can be loaded from a JSON or YAML file using --config. Command-line arguments override config file values.`,
	RunE: runDownloadCmd,
}

var (
	downloadFlags        commonFlags
	downloadStart        string
	downloadEnd          string
	downloadNoIssues     bool
	downloadNoActivities bool
	downloadDirection    string
	downloadOrderBy      string
	downloadQueryType    string
	downloadQuery        []string
	downloadIssueIDsFile string
)

func init() {
	downloadFlags.register(downloadCommand)

	downloadCommand.Flags().StringVarP(&downloadStart, "start", "s", "", "Range start, YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS (required)")
	downloadCommand.Flags().StringVarP(&downloadEnd, "end", "e", "", "Range end (defaults to now)")
	downloadCommand.Flags().BoolVar(&downloadNoIssues, "no-issues", false, "Do not download issues")
	downloadCommand.Flags().BoolVar(&downloadNoActivities, "no-activities", false, "Do not download activities")
	downloadCommand.Flags().StringVar(&downloadDirection, "direction", string(window.Ascending), "Window order: asc or desc")
	downloadCommand.Flags().StringVar(&downloadOrderBy, "order-by", string(query.Created), "Timestamp the windows filter on: created or updated")
	downloadCommand.Flags().StringVar(&downloadQueryType, "query-type", string(query.Common), "How the time clause joins the query: common or formal")
	downloadCommand.Flags().StringSliceVarP(&downloadQuery, "query", "q", []string{config.DefaultQuery}, "Query terms, joined with spaces")
	downloadCommand.Flags().StringVar(&downloadIssueIDsFile, "issue-ids-file", "", "File with one issue id per line; downloads only their activities (requires --no-issues)")

	_ = downloadCommand.MarkFlagRequired("start")

	rootCmd.AddCommand(downloadCommand)
}

func runDownloadCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadSettings(cmd, &downloadFlags, func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("direction") {
			cfg.Direction = downloadDirection
		}
		if flags.Changed("order-by") {
			cfg.OrderBy = downloadOrderBy
		}
		if flags.Changed("query-type") {
			cfg.QueryType = downloadQueryType
		}
		if flags.Changed("query") {
			cfg.Query = joinQuery(downloadQuery)
		}
	})
	if err != nil {
		return err
	}

	// Step 4: Parse the range and enums
	start, err := config.ParseDate(downloadStart)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end := time.Now()
	if downloadEnd != "" {
		if end, err = config.ParseDate(downloadEnd); err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
	}
	direction, err := window.ParseDirection(cfg.Direction)
	if err != nil {
		return err
	}
	// Reject a bad range before any file is truncated
	if _, err := window.New(start, end, direction); err != nil {
		return err
	}
	orderBy, err := query.ParseOrderBy(cfg.OrderBy)
	if err != nil {
		return err
	}
	grammar, err := query.ParseGrammar(cfg.QueryType)
	if err != nil {
		return err
	}
	compression, err := sink.ParseCompression(cfg.Compression)
	if err != nil {
		return err
	}

	var issueIDs []string
	if downloadIssueIDsFile != "" {
		if !downloadNoIssues {
			return fmt.Errorf("--issue-ids-file requires --no-issues")
		}
		if issueIDs, err = config.ReadIssueIDs(downloadIssueIDsFile); err != nil {
			return err
		}
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	// Step 5: Open outputs; both files are truncated even if unused
	filename := cfg.Filename
	if filename == "" {
		filename = config.FilenameFromQuery(cfg.Query, start, end, config.MaxFilenameLength)
	}
	paths := config.DeriveOutputPaths(filename, compression.Ext())
	files, err := sink.OpenPair(paths.Issues, paths.Activities, compression)
	if err != nil {
		return err
	}
	defer func() { _ = files.Close() }()

	runID := uuid.New()
	var mirror *recordMirror
	if cfg.DatabaseURL != "" {
		mirror, err = openMirror(ctx, cfg.DatabaseURL, &db.Run{
			ID:         runID,
			Server:     cfg.ServerAddress,
			Query:      cfg.Query,
			RangeStart: start,
			RangeEnd:   end,
			Status:     db.RunStatusRunning,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to open database mirror: %w", err)
		}
		logger.Printf("Mirroring records to database, run %s", runID)
	}

	opts := export.Options{
		RunID:     runID,
		Start:     start,
		End:       end,
		Direction: direction,
		Query: query.Builder{
			Base:    cfg.Query,
			OrderBy: orderBy,
			Grammar: grammar,
		},
		LoadIssues:     !downloadNoIssues,
		LoadActivities: !downloadNoActivities,
		IssueIDs:       issueIDs,
		Client:         client,
		Issues:         mirror.wrap(files.Issues),
		Activities:     mirror.wrap(files.Activities),
		PageSize:       cfg.PageSize,
		Categories:     cfg.Categories,
		Logger:         logger,
	}
	opts.OnProgress = progress(cfg.Verbose, mirror)

	result, runErr := export.Run(ctx, opts)

	// Flush the outputs before describing them
	if err := files.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close output files: %w", err)
	}
	mirror.complete(result, runErr)

	manifest := export.Manifest{
		Server:     cfg.ServerAddress,
		Query:      cfg.Query,
		QueryType:  string(grammar),
		OrderBy:    string(orderBy),
		Direction:  string(direction),
		Start:      start,
		End:        end,
		IssuesFile: paths.Issues,
	}
	if !downloadNoActivities {
		manifest.ActivitiesFile = paths.Activities
	}
	if downloadNoIssues {
		manifest.IssuesFile = ""
	}
	return finishRun(paths.Manifest, manifest, result, runErr, cfg.Verbose, logger)
}
