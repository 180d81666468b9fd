package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// GitignoreFile is the per-root ignore file read when enabled.
const GitignoreFile = ".gitignore"

// defaultIgnorePatterns are always applied regardless of config or .gitignore.
var defaultIgnorePatterns = []string{".git/"}

// IgnoreMatcher checks relative paths against a set of gitignore-style
// patterns, including "**" segments, '!' negation, trailing '/' for
// directories and leading '/' anchoring. The last matching pattern wins.
type IgnoreMatcher struct {
	patterns []string
	compiled *ignore.GitIgnore
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped, as are patterns
// that do not compile.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []string
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, raw)
	}
	return &IgnoreMatcher{
		patterns: patterns,
		compiled: ignore.CompileIgnoreLines(patterns...),
	}
}

// Match reports whether the given relative path itself is ignored.
// relativePath uses filepath separators and is relative to the root.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	if len(m.patterns) == 0 || relativePath == "" {
		return false
	}
	target := filepath.ToSlash(relativePath)
	// Directory-only patterns match a trailing slash.
	if isDir {
		target += "/"
	}
	return m.compiled.MatchesPath(target)
}

// Ignored reports whether relativePath or any of its parent directories
// is ignored. A file below an ignored directory cannot be re-included.
func (m *IgnoreMatcher) Ignored(relativePath string, isDir bool) bool {
	parts := strings.Split(filepath.ToSlash(relativePath), "/")
	for i := 1; i < len(parts); i++ {
		if m.Match(filepath.FromSlash(strings.Join(parts[:i], "/")), true) {
			return true
		}
	}
	return m.Match(relativePath, isDir)
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
