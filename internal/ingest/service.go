// Package ingest walks a project tree, selects the files that go into the
// digest and analyzes the database files among them.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"gitingest-go/internal/dbmeta"
)

// Options are the scan limits taken from the configuration.
type Options struct {
	// MaxFileSize skips larger files. Zero means no limit.
	MaxFileSize int64
	// Workers bounds the number of files analyzed at once.
	Workers int
}

// Service coordinates the filesystem, ignore rules and the database
// analyzer to produce scan reports.
type Service struct {
	analyzer *dbmeta.Analyzer
	fsmgr    FilesystemManager
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	opts     Options
}

// NewService creates a Service with the provided dependencies.
func NewService(analyzer *dbmeta.Analyzer, fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Service {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Service{
		analyzer: analyzer,
		fsmgr:    fsmgr,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		opts:     opts,
	}
}

// Scan walks root and returns a report of every included file, sorted by
// relative path. Database files are analyzed concurrently. A file that
// cannot be read is recorded in its FileReport; only walk failures and
// cancellation fail the scan.
func (s *Service) Scan(ctx context.Context, root *Path) (*Report, error) {
	if !root.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root.String())
	}

	report := &Report{
		Root:        root.String(),
		Name:        filepath.Base(root.String()),
		RunID:       s.idgen.New(),
		GeneratedAt: s.clock.Now(),
		Stats:       Stats{Kinds: make(map[string]int)},
	}
	s.logger.Info("scan started", "root", root.String(), "run_id", report.RunID)

	found, err := s.fsmgr.FindFiles(root, true)
	if err != nil {
		return nil, fmt.Errorf("finding files: %w", err)
	}

	var paths []*Path
	for _, f := range found {
		report.Stats.Scanned++

		ignored, err := s.fsmgr.IsIgnored(f, root.String())
		if err != nil {
			return nil, fmt.Errorf("checking ignore rules: %w", err)
		}
		if ignored {
			report.Stats.Ignored++
			continue
		}
		if s.opts.MaxFileSize > 0 && f.Size() > s.opts.MaxFileSize {
			report.Stats.Oversized++
			s.logger.Debug("file too large", "path", f.String(), "size", f.Size())
			continue
		}

		rel, err := filepath.Rel(root.String(), f.String())
		if err != nil {
			return nil, fmt.Errorf("calculating relative path: %w", err)
		}
		report.Files = append(report.Files, FileReport{
			RelativePath: filepath.ToSlash(rel),
			Size:         f.Size(),
		})
		paths = append(paths, f)
	}

	if err := s.analyzeAll(ctx, paths, report.Files); err != nil {
		return nil, err
	}

	sort.Slice(report.Files, func(i, j int) bool {
		return report.Files[i].RelativePath < report.Files[j].RelativePath
	})
	report.tally()

	s.logger.Info("scan complete",
		"files", len(report.Files),
		"databases", report.Stats.Databases,
		"ignored", report.Stats.Ignored,
		"oversized", report.Stats.Oversized)
	return report, nil
}

// analyzeAll fills in Metadata for the database files among paths.
// files[i] belongs to paths[i]; each goroutine writes only its own entry.
func (s *Service) analyzeAll(ctx context.Context, paths []*Path, files []FileReport) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, p := range paths {
		if !dbmeta.IsDatabaseExtension(filepath.Ext(p.String())) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, ok, err := s.AnalyzeFile(p)
			if err != nil {
				s.logger.Warn("analyzing file failed", "path", p.String(), "error", err)
				files[i].Err = err
				return nil
			}
			if ok {
				files[i].Metadata = m
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("analyzing files: %w", err)
	}
	return nil
}

// AnalyzeFile opens path and runs the database analyzer on it. The bool
// is false when analysis is disabled or the file has no database
// extension. Only failing to open the file is an error.
func (s *Service) AnalyzeFile(path *Path) (*dbmeta.Metadata, bool, error) {
	if path.IsDir() {
		return nil, false, fmt.Errorf("path is a directory: %s", path.String())
	}

	f, err := s.fsmgr.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	info, err := s.fsmgr.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("stat file: %w", err)
	}

	m, ok := s.analyzer.Analyze(dbmeta.Source{
		Path:   path.String(),
		Size:   info.Size(),
		Reader: f,
	})
	if !ok {
		return nil, false, nil
	}

	for _, d := range m.Diagnostics {
		s.logger.Debug("analysis diagnostic", "path", path.String(), "detail", d.Error())
	}
	s.logger.Debug("database analyzed", "path", path.String(), "kind", m.Kind.String())
	return m, true, nil
}
