package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/issues-dataset/internal/config"
	"github.com/jonathan/issues-dataset/internal/db"
	"github.com/jonathan/issues-dataset/internal/export"
	"github.com/jonathan/issues-dataset/internal/observability"
	"github.com/jonathan/issues-dataset/internal/sink"
	"github.com/jonathan/issues-dataset/internal/youtrack"
)

const logFlags = log.LstdFlags | log.Lmicroseconds

// commonFlags are shared by every subcommand that talks to the server.
type commonFlags struct {
	configPath    string
	serverAddress string
	accessToken   string
	insecure      bool
	filename      string
	compress      string
	categories    []string
	pageSize      int
	databaseURL   string
	logFile       string
	verbose       bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")

	cmd.Flags().StringVar(&f.serverAddress, "server-address", config.DefaultServerAddress, "YouTrack server address")
	cmd.Flags().StringVar(&f.accessToken, "access-token", "", "Access token or path to a file containing it (defaults to "+config.TokenEnvVar+" env var)")
	cmd.Flags().BoolVar(&f.insecure, "insecure", true, "Skip TLS certificate verification")
	cmd.Flags().StringVarP(&f.filename, "filename", "f", "", "Output filename; .issues and .activities are inserted before the extension")
	cmd.Flags().StringVar(&f.compress, "compress", "none", "Output compression: none or zstd")
	cmd.Flags().StringSliceVar(&f.categories, "categories", nil, "Activity categories to download (default all)")
	cmd.Flags().IntVar(&f.pageSize, "page-size", youtrack.DefaultPageSize, "Records requested per page")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print progress and a run summary")

	// Database URL for the optional record mirror
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL; when set every record is mirrored to the database")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Append log lines to this file instead of stderr")
}

// applyTo copies the explicitly set flags onto cfg.
func (f *commonFlags) applyTo(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("server-address") {
		cfg.ServerAddress = f.serverAddress
	}
	if flags.Changed("access-token") {
		cfg.AccessToken = f.accessToken
	}
	if flags.Changed("insecure") {
		insecure := f.insecure
		cfg.Insecure = &insecure
	}
	if flags.Changed("filename") {
		cfg.Filename = f.filename
	}
	if flags.Changed("compress") {
		cfg.Compression = f.compress
	}
	if flags.Changed("categories") {
		cfg.Categories = f.categories
	}
	if flags.Changed("page-size") {
		cfg.PageSize = f.pageSize
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if flags.Changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if flags.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
}

// loadSettings merges the config file, explicitly set flags and defaults,
// in that order of increasing priority for the first two.
func loadSettings(cmd *cobra.Command, common *commonFlags, override func(*config.Config)) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if common.configPath != "" {
		loaded, err := config.LoadConfig(common.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	common.applyTo(cmd, &cfg)
	if override != nil {
		override(&cfg)
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger returns a logger writing to stderr, or appending to path when
// one is given. The returned func closes the log file.
func newLogger(path string) (*log.Logger, func() error, error) {
	if path == "" {
		return log.New(os.Stderr, "", logFlags), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return log.New(f, "", logFlags), f.Close, nil
}

func newClient(cfg config.Config) (*youtrack.Client, error) {
	token, err := config.ResolveToken(cfg.AccessToken)
	if err != nil {
		return nil, err
	}
	opts := youtrack.DefaultOptions()
	opts.Token = token
	opts.InsecureSkipVerify = cfg.InsecureOrDefault()
	return youtrack.NewClient(cfg.ServerAddress, opts)
}

// joinQuery joins repeated --query terms the way they were typed.
func joinQuery(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// recordMirror tees records into PostgreSQL for one run.
type recordMirror struct {
	ctx      context.Context
	database *db.DB
	runID    uuid.UUID
	sink     *db.Mirror
	logger   *log.Logger
}

func openMirror(ctx context.Context, databaseURL string, run *db.Run, logger *log.Logger) (*recordMirror, error) {
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	if err := database.CreateRun(ctx, run); err != nil {
		database.Close()
		return nil, err
	}
	return &recordMirror{
		ctx:      ctx,
		database: database,
		runID:    run.ID,
		sink:     database.NewMirror(run.ID),
		logger:   logger,
	}, nil
}

// wrap fans writes out to s and the database.
func (m *recordMirror) wrap(s sink.Sink) sink.Sink {
	if m == nil {
		return s
	}
	return sink.Tee{s, m.sink}
}

// observe records every finished window. Failures are logged, not fatal.
func (m *recordMirror) observe(ev export.ProgressEvent) {
	if m == nil || ev.Step != export.StepWindowDone {
		return
	}
	_, err := m.database.RecordWindow(m.ctx, m.runID, &db.RunWindowInput{
		Seq:        ev.Index,
		Start:      ev.Window.Lower(),
		End:        ev.Window.Upper(),
		Query:      ev.Message,
		Issues:     ev.WindowTotals.Issues,
		Activities: ev.WindowTotals.Activities,
	})
	if err != nil {
		m.logger.Printf("Warning: %v", err)
	}
}

// progress combines the verbose printer and the mirror into one callback.
func progress(verbose bool, mirror *recordMirror) export.ProgressCallback {
	var printer *observability.Printer
	if verbose {
		printer = observability.NewPrinter(os.Stdout)
	}
	if printer == nil && mirror == nil {
		return nil
	}
	return func(ev export.ProgressEvent) {
		if printer != nil {
			printer.PrintProgress(ev)
		}
		mirror.observe(ev)
	}
}

// complete records the final run status. It uses its own context so that an
// interrupted run is still marked failed.
func (m *recordMirror) complete(result *export.Result, runErr error) {
	if m == nil {
		return
	}
	defer m.database.Close()

	status := db.RunStatusCompleted
	if runErr != nil {
		status = db.RunStatusFailed
	}
	var totals export.Totals
	if result != nil {
		totals = result.Totals
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.database.CompleteRun(ctx, m.runID, status, totals.Issues, totals.Activities); err != nil {
		m.logger.Printf("Warning: failed to complete run %s in database: %v", m.runID, err)
	}
}

// finishRun writes the manifest and prints the summary. The run error, if
// any, takes precedence over errors raised here.
func finishRun(manifestPath string, m export.Manifest, result *export.Result, runErr error, verbose bool, logger *log.Logger) error {
	if result != nil && result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
		result.Elapsed = result.FinishedAt.Sub(result.StartedAt)
	}
	manifest := export.NewManifest(m, result, runErr)

	err := export.WriteManifest(manifestPath, manifest)
	if err != nil {
		logger.Printf("Warning: %v", err)
	}
	if verbose {
		observability.NewPrinter(os.Stdout).PrintRunSummary(&manifest)
	}

	if runErr != nil {
		return runErr
	}
	return err
}
