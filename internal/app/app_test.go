package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitingest-go/internal/config"
	"gitingest-go/internal/dbmeta"
	"gitingest-go/internal/testutil"
)

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := NewApp(cfg, Options{Command: "scan", Parameters: "test"})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Output.Format = "yaml"

	if _, err := NewApp(cfg, Options{Command: "scan"}); err == nil {
		t.Fatal("NewApp() with an invalid format should fail")
	}
}

func TestApp_Scan(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.DatabaseAnalysis.ExtractSchema = true

	project := t.TempDir()
	testutil.NewSQLiteFile(t, project, "app.db", testutil.UsersSchema...)
	if err := os.WriteFile(filepath.Join(project, "main.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(project, "node_modules", "x"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, "node_modules", "x", "cache.db"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	a := newTestApp(t, cfg)
	report, err := a.Scan(context.Background(), project)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if report.RunID != a.RunID() {
		t.Errorf("report RunID = %q, app RunID = %q", report.RunID, a.RunID())
	}
	if len(report.Files) != 2 {
		t.Fatalf("files = %+v, want app.db and main.go", report.Files)
	}
	db := report.Files[0]
	if db.RelativePath != "app.db" || db.Metadata == nil {
		t.Fatalf("app.db = %+v", db)
	}
	if db.Metadata.Kind != dbmeta.Sqlite || len(db.Metadata.SchemaInfo()) != 2 {
		t.Errorf("metadata = %+v", db.Metadata)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	logData, err := os.ReadFile(filepath.Join(cfg.LogDir, logFileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	for _, want := range []string{"run started", "scan complete", "run finished", a.RunID(), "status=success"} {
		if !strings.Contains(string(logData), want) {
			t.Errorf("log missing %q:\n%s", want, logData)
		}
	}
}

func TestApp_Scan_MissingPath(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	a := newTestApp(t, cfg)

	if _, err := a.Scan(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("Scan() on a missing path should fail")
	}
	if !a.run.Failed() {
		t.Error("run should be marked failed")
	}
}

func TestApp_AnalyzeFile(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	a := newTestApp(t, cfg)
	dir := t.TempDir()

	dbPath := testutil.NewSQLiteFile(t, dir, "app.sqlite3", testutil.UsersSchema...)
	m, ok, err := a.AnalyzeFile(dbPath)
	if err != nil || !ok {
		t.Fatalf("AnalyzeFile() = %v, %v", ok, err)
	}
	if m.TableCount == nil || *m.TableCount != 2 {
		t.Errorf("TableCount = %v", m.TableCount)
	}
	if m.SchemaInfo() != nil {
		t.Error("schema should not be extracted by default")
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := a.AnalyzeFile(txt); err != nil || ok {
		t.Errorf("AnalyzeFile(notes.txt) = %v, %v", ok, err)
	}
}
