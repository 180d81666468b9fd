package testutil

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gitingest-go/internal/ingest"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
	// OpenErr, when set, is returned by Open.
	OpenErr error
}

// MockFilesystemManager is an in-memory filesystem for testing.
type MockFilesystemManager struct {
	files   map[string]*MockFile
	ignored map[string]bool
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:   make(map[string]*MockFile),
		ignored: make(map[string]bool),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) *MockFile {
	f := &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     time.Now(),
	}
	m.files[path] = f
	return f
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.files[path] = &MockFile{
		Permissions: 0755,
		ModTime:     time.Now(),
		IsDirectory: true,
	}
}

// Ignore marks path as excluded by the ignore rules.
func (m *MockFilesystemManager) Ignore(path string) {
	m.ignored[path] = true
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*ingest.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}
	return ingest.NewPath(absPath, file.IsDirectory, newMockFileInfo(absPath, file)), nil
}

func (m *MockFilesystemManager) Open(path *ingest.Path) (ingest.File, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}
	if file.OpenErr != nil {
		return nil, file.OpenErr
	}
	return nopCloser{bytes.NewReader(file.Content)}, nil
}

func (m *MockFilesystemManager) Stat(path *ingest.Path) (fs.FileInfo, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	return newMockFileInfo(path.String(), file), nil
}

// FindFiles returns the regular files below root in lexical order.
func (m *MockFilesystemManager) FindFiles(root *ingest.Path, recursive bool) ([]*ingest.Path, error) {
	if !root.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root.String())
	}

	prefix := root.String() + string(filepath.Separator)
	var names []string
	for name, file := range m.files {
		if file.IsDirectory || !strings.HasPrefix(name, prefix) {
			continue
		}
		if !recursive && strings.ContainsRune(name[len(prefix):], filepath.Separator) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]*ingest.Path, 0, len(names))
	for _, name := range names {
		paths = append(paths, ingest.NewPath(name, false, newMockFileInfo(name, m.files[name])))
	}
	return paths, nil
}

func (m *MockFilesystemManager) IsIgnored(path *ingest.Path, root string) (bool, error) {
	return m.ignored[path.String()], nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name     string
	size     int64
	mode     fs.FileMode
	modTime  time.Time
	isDir    bool
	mockFile *MockFile
}

func newMockFileInfo(path string, file *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:     filepath.Base(path),
		size:     int64(len(file.Content)),
		mode:     file.Permissions,
		modTime:  file.ModTime,
		isDir:    file.IsDirectory,
		mockFile: file,
	}
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return m.mockFile }

// Compile-time check
var _ ingest.FilesystemManager = (*MockFilesystemManager)(nil)
