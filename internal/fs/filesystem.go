package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gitingest-go/internal/ingest"
)

// OSFilesystemManager implements ingest.FilesystemManager on the local
// disk. Ignore matchers are built once per scan root.
type OSFilesystemManager struct {
	patterns     []string
	useGitignore bool

	mu       sync.Mutex
	matchers map[string]*IgnoreMatcher
}

// NewOSFilesystemManager creates a filesystem manager that applies the given
// ignore patterns, plus each scan root's .gitignore when useGitignore is set.
func NewOSFilesystemManager(patterns []string, useGitignore bool) *OSFilesystemManager {
	return &OSFilesystemManager{
		patterns:     patterns,
		useGitignore: useGitignore,
		matchers:     make(map[string]*IgnoreMatcher),
	}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*ingest.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	switch mode := info.Mode(); {
	case mode&os.ModeDevice != 0, mode&os.ModeNamedPipe != 0, mode&os.ModeSocket != 0:
		return nil, fmt.Errorf("unsupported file type %s: %s", mode.Type(), absPath)
	}

	return ingest.NewPath(absPath, info.IsDir(), info), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *ingest.Path) (ingest.File, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

// Stat returns fresh file info for a path.
func (m *OSFilesystemManager) Stat(path *ingest.Path) (fs.FileInfo, error) {
	return os.Stat(path.String())
}

// FindFiles discovers regular files under the given directory path.
// Directories matched by the ignore rules are skipped entirely.
func (m *OSFilesystemManager) FindFiles(path *ingest.Path, recursive bool) ([]*ingest.Path, error) {
	if !path.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path.String())
	}

	matcher, err := m.matcherFor(path.String())
	if err != nil {
		return nil, err
	}

	var paths []*ingest.Path

	if recursive {
		root := path.String()
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p == root {
					return nil
				}
				rel, err := filepath.Rel(root, p)
				if err != nil {
					return err
				}
				if matcher.Match(rel, true) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", p, err)
			}
			paths = append(paths, ingest.NewPath(p, false, info))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking directory: %w", err)
		}
	} else {
		entries, err := os.ReadDir(path.String())
		if err != nil {
			return nil, fmt.Errorf("reading directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
			}
			fullPath := filepath.Join(path.String(), entry.Name())
			paths = append(paths, ingest.NewPath(fullPath, false, info))
		}
	}

	return paths, nil
}

// IsIgnored reports whether path, relative to root, is excluded by the
// configured patterns or the root's .gitignore.
func (m *OSFilesystemManager) IsIgnored(path *ingest.Path, root string) (bool, error) {
	matcher, err := m.matcherFor(root)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(root, path.String())
	if err != nil {
		return false, fmt.Errorf("calculating relative path: %w", err)
	}
	return matcher.Ignored(rel, path.IsDir()), nil
}

// matcherFor builds, once per root, the matcher combining the default,
// configured and .gitignore patterns.
func (m *OSFilesystemManager) matcherFor(root string) (*IgnoreMatcher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if matcher, ok := m.matchers[root]; ok {
		return matcher, nil
	}

	patterns := append([]string{}, defaultIgnorePatterns...)
	patterns = append(patterns, m.patterns...)
	if m.useGitignore {
		gitignore, err := ParseIgnoreFile(filepath.Join(root, GitignoreFile))
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, gitignore...)
	}

	matcher := NewIgnoreMatcher(patterns)
	m.matchers[root] = matcher
	return matcher, nil
}

// Compile-time check that OSFilesystemManager implements ingest.FilesystemManager interface
var _ ingest.FilesystemManager = (*OSFilesystemManager)(nil)
