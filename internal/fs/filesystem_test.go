package fs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("creating directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
}

func relPaths(t *testing.T, root string, m *OSFilesystemManager, recursive bool) []string {
	t.Helper()
	rootPath, err := m.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	found, err := m.FindFiles(rootPath, recursive)
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}
	var rels []string
	for _, p := range found {
		rel, err := filepath.Rel(rootPath.String(), p.String())
		if err != nil {
			t.Fatalf("Rel() error = %v", err)
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	sort.Strings(rels)
	return rels
}

func TestOSFilesystemManager_FindFiles(t *testing.T) {
	t.Run("recursive walk prunes ignored directories", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, map[string]string{
			"app.db":              "x",
			"src/main.go":         "package main",
			"build/cache.db":      "x",
			".git/HEAD":           "ref",
			"docs/notes/todo.txt": "x",
		})

		m := NewOSFilesystemManager([]string{"build/"}, false)
		got := relPaths(t, root, m, true)
		want := []string{"app.db", "docs/notes/todo.txt", "src/main.go"}
		if len(got) != len(want) {
			t.Fatalf("FindFiles() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("FindFiles()[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("non-recursive lists only top level", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, map[string]string{
			"a.db":     "x",
			"sub/b.db": "x",
		})

		m := NewOSFilesystemManager(nil, false)
		got := relPaths(t, root, m, false)
		if len(got) != 1 || got[0] != "a.db" {
			t.Errorf("FindFiles() = %v, want [a.db]", got)
		}
	})

	t.Run("rejects a file root", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTree(t, root, map[string]string{"a.db": "x"})

		m := NewOSFilesystemManager(nil, false)
		p, err := m.Resolve(filepath.Join(root, "a.db"))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if _, err := m.FindFiles(p, true); err == nil {
			t.Error("expected error for file root")
		}
	})
}

func TestOSFilesystemManager_IsIgnored(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":     "*.sqlite\n!keep.sqlite\n",
		"a.sqlite":       "x",
		"keep.sqlite":    "x",
		"tmp/scratch.db": "x",
		"data.db":        "x",
	})

	tests := []struct {
		name         string
		useGitignore bool
		rel          string
		want         bool
	}{
		{"gitignore pattern applies", true, "a.sqlite", true},
		{"gitignore negation applies", true, "keep.sqlite", false},
		{"gitignore disabled", false, "a.sqlite", false},
		{"configured pattern applies to parent directory", true, "tmp/scratch.db", true},
		{"unmatched file", true, "data.db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewOSFilesystemManager([]string{"tmp/"}, tt.useGitignore)
			p, err := m.Resolve(filepath.Join(root, filepath.FromSlash(tt.rel)))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			got, err := m.IsIgnored(p, root)
			if err != nil {
				t.Fatalf("IsIgnored() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsIgnored(%s) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}

func TestOSFilesystemManager_Open(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.db": "hello"})

	m := NewOSFilesystemManager(nil, false)
	p, err := m.Resolve(filepath.Join(root, "a.db"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	f, err := m.Open(p)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	buf := make([]byte, 3)
	if _, err := f.ReadAt(buf, 2); err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if string(buf) != "llo" {
		t.Errorf("ReadAt() = %q, want %q", buf, "llo")
	}

	dir, err := m.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := m.Open(dir); err == nil {
		t.Error("expected error opening a directory")
	}
}
