package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/issues-dataset/internal/config"
	"github.com/jonathan/issues-dataset/internal/db"
	"github.com/jonathan/issues-dataset/internal/export"
	"github.com/jonathan/issues-dataset/internal/sink"
)

var activitiesCommand = &cobra.Command{
	Use:   "activities [issue-id...]",
	Short: "Download the activities of the given issues",
	Long: `Downloads the activity history of explicitly given issues into <filename>.activities.json. Issue ids are taken from the arguments and from --issue-ids-file.

No time windowing is applied.`,
	RunE: runActivitiesCmd,
}

var (
	activitiesFlags        commonFlags
	activitiesIssueIDsFile string
)

func init() {
	activitiesFlags.register(activitiesCommand)
	activitiesCommand.Flags().StringVar(&activitiesIssueIDsFile, "issue-ids-file", "", "File with one issue id per line")

	rootCmd.AddCommand(activitiesCommand)
}

// collectIssueIDs returns args followed by the ids listed in path.
func collectIssueIDs(args []string, path string) ([]string, error) {
	ids := append([]string(nil), args...)
	if path != "" {
		fromFile, err := config.ReadIssueIDs(path)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		return nil, export.ErrNoIssueSource
	}
	return ids, nil
}

func runActivitiesCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadSettings(cmd, &activitiesFlags, nil)
	if err != nil {
		return err
	}

	ids, err := collectIssueIDs(args, activitiesIssueIDsFile)
	if err != nil {
		return err
	}
	compression, err := sink.ParseCompression(cfg.Compression)
	if err != nil {
		return err
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

	filename := cfg.Filename
	if filename == "" {
		filename = "activities.json"
	}
	paths := config.DeriveOutputPaths(filename, compression.Ext())
	out, err := sink.OpenFile(paths.Activities, compression)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	runID := uuid.New()
	var mirror *recordMirror
	if cfg.DatabaseURL != "" {
		mirror, err = openMirror(ctx, cfg.DatabaseURL, &db.Run{
			ID:     runID,
			Server: cfg.ServerAddress,
			Status: db.RunStatusRunning,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to open database mirror: %w", err)
		}
	}

	opts := export.Options{
		RunID:      runID,
		IssueIDs:   ids,
		Client:     client,
		Activities: mirror.wrap(out),
		PageSize:   cfg.PageSize,
		Categories: cfg.Categories,
		Logger:     logger,
	}
	opts.OnProgress = progress(cfg.Verbose, mirror)

	logger.Printf("Downloading activities for %d issues", len(ids))
	result, runErr := export.RunActivities(ctx, opts)

	if err := out.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close output file: %w", err)
	}
	mirror.complete(result, runErr)

	manifest := export.Manifest{
		Server:         cfg.ServerAddress,
		ActivitiesFile: paths.Activities,
	}
	return finishRun(paths.Manifest, manifest, result, runErr, cfg.Verbose, logger)
}
