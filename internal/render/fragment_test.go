package render

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gitingest-go/internal/dbmeta"
	"gitingest-go/internal/schemasql"
	"gitingest-go/internal/sqlitefile"
)

func count(n uint32) *uint32 { return &n }

func sampleMetadata(extracted bool) *dbmeta.Metadata {
	return &dbmeta.Metadata{
		Kind:            dbmeta.Sqlite,
		SizeBytes:       8192,
		TableCount:      count(2),
		SchemaExtracted: extracted,
		Tables: []dbmeta.TableDefinition{
			{
				Name:      "users",
				CreateSQL: "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
				HasSQL:    true,
				Columns: []schemasql.Column{
					{Name: "id", Type: "INTEGER", PrimaryKey: true},
					{Name: "name", Type: "TEXT", NotNull: true},
				},
			},
			{
				Name:      "accounts",
				CreateSQL: "CREATE TABLE accounts (id INTEGER);",
				HasSQL:    true,
				Columns:   []schemasql.Column{{Name: "id", Type: "INTEGER"}},
			},
		},
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0 B"},
		{1, "1.0 B"},
		{1023, "1023.0 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
		{1 << 40, "1.0 TB"},
		{1 << 50, "1024.0 TB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.n); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestMarkdownFragment(t *testing.T) {
	t.Run("with schema", func(t *testing.T) {
		t.Parallel()
		got := MarkdownFragment(sampleMetadata(true))
		want := "**Méret:** 8.0 KB | **Adatbázis típusa:** sqlite | **Táblák száma:** 2\n" +
			"\n```sql\n" +
			"CREATE TABLE accounts (id INTEGER);\n" +
			"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL);\n" +
			"```\n"
		if got != want {
			t.Errorf("MarkdownFragment() =\n%s\nwant\n%s", got, want)
		}
	})

	t.Run("without schema", func(t *testing.T) {
		t.Parallel()
		got := MarkdownFragment(sampleMetadata(false))
		want := "**Méret:** 8.0 KB | **Adatbázis típusa:** sqlite | **Táblák száma:** 2\n"
		if got != want {
			t.Errorf("MarkdownFragment() = %q, want %q", got, want)
		}
	})

	t.Run("without table count", func(t *testing.T) {
		t.Parallel()
		got := MarkdownFragment(&dbmeta.Metadata{Kind: dbmeta.Unknown, SizeBytes: 12})
		want := "**Méret:** 12.0 B | **Adatbázis típusa:** unknown\n"
		if got != want {
			t.Errorf("MarkdownFragment() = %q, want %q", got, want)
		}
	})

	t.Run("tables without sql are left out", func(t *testing.T) {
		t.Parallel()
		m := sampleMetadata(true)
		m.Tables = append(m.Tables, dbmeta.TableDefinition{Name: "ghost", Columns: []schemasql.Column{}})
		got := MarkdownFragment(m)
		if strings.Contains(got, "ghost") {
			t.Errorf("MarkdownFragment() mentions a table without sql:\n%s", got)
		}
	})
}

func TestJSONFragment(t *testing.T) {
	tests := []struct {
		name string
		m    *dbmeta.Metadata
		want string
	}{
		{
			name: "schema not extracted",
			m:    sampleMetadata(false),
			want: `{"type":"sqlite","table_count":2}`,
		},
		{
			name: "unknown file",
			m:    &dbmeta.Metadata{Kind: dbmeta.Unknown, SizeBytes: 3},
			want: `{"type":"unknown"}`,
		},
		{
			name: "no tables",
			m:    &dbmeta.Metadata{Kind: dbmeta.Sqlite, TableCount: count(0), SchemaExtracted: true},
			want: `{"type":"sqlite","table_count":0,"schema_info":{}}`,
		},
		{
			name: "columns are never null",
			m: &dbmeta.Metadata{
				Kind:            dbmeta.Sqlite,
				TableCount:      count(1),
				SchemaExtracted: true,
				Tables:          []dbmeta.TableDefinition{{Name: "t", CreateSQL: "CREATE VIRTUAL TABLE t USING fts5(a)", HasSQL: true}},
			},
			want: `{"type":"sqlite","table_count":1,"schema_info":{"t":{"create_sql":"CREATE VIRTUAL TABLE t USING fts5(a)","columns":[]}}}`,
		},
		{
			name: "columns",
			m: &dbmeta.Metadata{
				Kind:            dbmeta.Sqlite,
				TableCount:      count(1),
				SchemaExtracted: true,
				Tables: []dbmeta.TableDefinition{{
					Name:      "t",
					CreateSQL: "CREATE TABLE t (a INT NOT NULL)",
					HasSQL:    true,
					Columns:   []schemasql.Column{{Name: "a", Type: "INT", NotNull: true}},
				}},
			},
			want: `{"type":"sqlite","table_count":1,"schema_info":{"t":{"create_sql":"CREATE TABLE t (a INT NOT NULL)","columns":[{"name":"a","type":"INT","not_null":true,"primary_key":false}]}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := JSONFragment(tt.m)
			if err != nil {
				t.Fatalf("JSONFragment() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("JSONFragment() = %s, want %s", got, tt.want)
			}
			if !json.Valid(got) {
				t.Errorf("JSONFragment() produced invalid JSON")
			}
		})
	}
}

func TestSummary(t *testing.T) {
	m := sampleMetadata(true)
	m.Header = &sqlitefile.Header{PageSize: 4096, PageCount: 2}
	m.Diagnostics = []error{errors.New("size mismatch")}

	got := Summary(m)
	want := strings.Join([]string{
		"[Adatbázis fájl - sqlite]",
		"Fájl mérete: 8192 bytes",
		"Táblák száma: 2",
		"Page méret: 4096 bytes",
		"Page-ek száma: 2",
		"Becsült adatbázis méret: 8192 bytes",
		"Táblák: users, accounts",
		"  - users: 2 oszlop",
		"  - accounts: 1 oszlop",
		"Figyelmeztetés: size mismatch",
	}, "\n")
	if got != want {
		t.Errorf("Summary() =\n%s\nwant\n%s", got, want)
	}
}

func TestSummary_Minimal(t *testing.T) {
	got := Summary(&dbmeta.Metadata{Kind: dbmeta.Redis, SizeBytes: 10})
	want := "[Adatbázis fájl - redis]\nFájl mérete: 10 bytes"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestSummary_FileType(t *testing.T) {
	got := Summary(&dbmeta.Metadata{Kind: dbmeta.MySQL, FileType: "InnoDB data file", SizeBytes: 4})
	want := "[Adatbázis fájl - mysql]\nFájl mérete: 4 bytes\nFájl típus: InnoDB data file"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestFragments_Deterministic(t *testing.T) {
	m := sampleMetadata(true)
	for i := 0; i < 5; i++ {
		if MarkdownFragment(m) != MarkdownFragment(sampleMetadata(true)) {
			t.Fatal("markdown fragment differs between renders")
		}
		a, _ := JSONFragment(m)
		b, _ := JSONFragment(sampleMetadata(true))
		if string(a) != string(b) {
			t.Fatalf("json fragment differs between renders: %s vs %s", a, b)
		}
	}
}
