package app

import (
	"context"
	"fmt"
	"os"

	"gitingest-go/internal/config"
	"gitingest-go/internal/dbmeta"
	"gitingest-go/internal/fs"
	"gitingest-go/internal/ingest"
)

// App is the application layer between the CLI and the scan service.
// It constructs all dependencies from config, exposes operations that
// accept raw string paths, and closes the log on Close.
type App struct {
	cfg     *config.Config
	fsmgr   ingest.FilesystemManager
	service *ingest.Service
	logger  ingest.Logger
	clock   ingest.Clock
	run     *Run
	logFile *os.File
}

// Options are per-invocation settings that are not part of the config file.
type Options struct {
	// Command names the CLI command being run, e.g. "scan".
	Command    string
	Parameters string
	Verbose    bool
}

// NewApp creates a fully wired App from the given config.
// The caller must call Close when done.
func NewApp(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	idgen := ingest.UUIDGenerator{}
	clock := ingest.RealClock{}
	run := NewRun(idgen.New(), opts.Command, opts.Parameters, clock.Now())

	l, logFile, err := newLogger(cfg.LogDir, run.ID, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}

	fsmgr := fs.NewOSFilesystemManager(cfg.Filters.Ignore, cfg.Filters.UseGitignore)
	analyzer := dbmeta.NewAnalyzer(dbmeta.Options{
		Enabled:             cfg.DatabaseAnalysis.Enabled,
		ExtractSchema:       cfg.DatabaseAnalysis.ExtractSchema,
		IncludeSystemTables: cfg.DatabaseAnalysis.IncludeSystemTables,
	})
	svc := ingest.NewService(analyzer, fsmgr, logger, clock, fixedID(run.ID), ingest.Options{
		MaxFileSize: cfg.MaxFileSizeBytes(),
		Workers:     cfg.Workers,
	})

	logger.Info("run started", "command", run.Command, "parameters", run.Parameters)

	return &App{
		cfg:     cfg,
		fsmgr:   fsmgr,
		service: svc,
		logger:  logger,
		clock:   clock,
		run:     run,
		logFile: logFile,
	}, nil
}

// fixedID hands out the run ID so reports carry the same ID as the log.
type fixedID string

func (id fixedID) New() string { return string(id) }

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// RunID identifies this invocation in the log and in JSON digests.
func (a *App) RunID() string {
	return a.run.ID
}

// Scan resolves rawPath and scans the directory tree under it.
func (a *App) Scan(ctx context.Context, rawPath string) (*ingest.Report, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, a.fail(fmt.Errorf("resolving path: %w", err))
	}
	report, err := a.service.Scan(ctx, p)
	if err != nil {
		return nil, a.fail(err)
	}
	return report, nil
}

// AnalyzeFile resolves rawPath and analyzes that single file. The bool is
// false when the file is not a database file or analysis is disabled.
func (a *App) AnalyzeFile(rawPath string) (*dbmeta.Metadata, bool, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, false, a.fail(fmt.Errorf("resolving path: %w", err))
	}
	m, ok, err := a.service.AnalyzeFile(p)
	if err != nil {
		return nil, false, a.fail(err)
	}
	return m, ok, nil
}

func (a *App) fail(err error) error {
	a.run.Fail()
	a.logger.Error("run failed", "error", err)
	return err
}

// Close logs the outcome of the run and closes the log file.
func (a *App) Close() error {
	a.logger.Info("run finished",
		"status", a.run.Status,
		"elapsed", a.run.Elapsed(a.clock.Now()).String())

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
	}
	return nil
}
