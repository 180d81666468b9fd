package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gitingest-go/internal/ingest"
)

const generator = "GitIngest"

// WriteMarkdown writes the whole digest for report as Markdown.
func WriteMarkdown(w io.Writer, report *ingest.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Projekt Összefoglaló: %s\n\n", report.Name)
	fmt.Fprintf(&b, "**Generálva:** %s\n", report.GeneratedAt.Format(time.DateTime))
	fmt.Fprintf(&b, "**Gyökérkönyvtár:** %s\n\n", report.Root)

	st := report.Stats
	b.WriteString("## Statisztikák\n\n")
	fmt.Fprintf(&b, "- **Összes fájl:** %d\n", st.Scanned)
	fmt.Fprintf(&b, "- **Feldolgozott fájlok:** %d\n", st.Included)
	fmt.Fprintf(&b, "- **Kihagyott fájlok:** %d\n", st.Ignored)
	fmt.Fprintf(&b, "- **Túl nagy fájlok:** %d\n", st.Oversized)
	fmt.Fprintf(&b, "- **Adatbázis fájlok:** %d\n", st.Databases)
	fmt.Fprintf(&b, "- **Hibás fájlok:** %d\n", st.Errors)
	fmt.Fprintf(&b, "- **Teljes méret:** %s\n", FormatSize(uint64(st.TotalSize)))
	if len(st.Kinds) > 0 {
		b.WriteString("\n### Adatbázis típusok\n\n")
		for _, kind := range sortedKeys(st.Kinds) {
			fmt.Fprintf(&b, "- **%s:** %d\n", kind, st.Kinds[kind])
		}
	}
	b.WriteString("\n")

	b.WriteString("## 1. Fájlstruktúra\n\n```\n")
	for _, f := range report.Files {
		b.WriteString(f.RelativePath)
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")

	b.WriteString("## 2. Adatbázis fájlok\n\n")
	for _, f := range report.Files {
		if f.Metadata == nil && f.Err == nil {
			continue
		}
		fmt.Fprintf(&b, "### [%s]\n", f.RelativePath)
		if f.Err != nil {
			fmt.Fprintf(&b, "**Hiba:** %s\n\n", f.Err)
			continue
		}
		b.WriteString(MarkdownFragment(f.Metadata))
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "*Generálva a %s segítségével*\n", generator)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing markdown digest: %w", err)
	}
	return nil
}

type jsonProject struct {
	Name        string    `json:"name"`
	RootPath    string    `json:"root_path"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Generator   string    `json:"generator"`
}

type jsonStats struct {
	TotalFiles     int            `json:"total_files"`
	ProcessedFiles int            `json:"processed_files"`
	IgnoredFiles   int            `json:"ignored_files"`
	OversizedFiles int            `json:"oversized_files"`
	DatabaseFiles  int            `json:"database_files"`
	ErrorFiles     int            `json:"error_files"`
	TotalSize      int64          `json:"total_size"`
	DatabaseKinds  map[string]int `json:"database_kinds"`
}

type jsonFile struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Error    string    `json:"error,omitempty"`
	Database *Fragment `json:"database,omitempty"`
}

type jsonDigest struct {
	Project jsonProject         `json:"project"`
	Stats   jsonStats           `json:"stats"`
	Files   map[string]jsonFile `json:"files"`
}

// WriteJSON writes the whole digest for report as indented JSON.
func WriteJSON(w io.Writer, report *ingest.Report) error {
	st := report.Stats
	digest := jsonDigest{
		Project: jsonProject{
			Name:        report.Name,
			RootPath:    report.Root,
			RunID:       report.RunID,
			GeneratedAt: report.GeneratedAt,
			Generator:   generator,
		},
		Stats: jsonStats{
			TotalFiles:     st.Scanned,
			ProcessedFiles: st.Included,
			IgnoredFiles:   st.Ignored,
			OversizedFiles: st.Oversized,
			DatabaseFiles:  st.Databases,
			ErrorFiles:     st.Errors,
			TotalSize:      st.TotalSize,
			DatabaseKinds:  st.Kinds,
		},
		Files: make(map[string]jsonFile, len(report.Files)),
	}
	if digest.Stats.DatabaseKinds == nil {
		digest.Stats.DatabaseKinds = map[string]int{}
	}

	for _, f := range report.Files {
		jf := jsonFile{Path: f.RelativePath, Size: f.Size}
		if f.Err != nil {
			jf.Error = f.Err.Error()
		}
		if f.Metadata != nil {
			frag := NewFragment(f.Metadata)
			jf.Database = &frag
		}
		digest.Files[f.RelativePath] = jf
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(digest); err != nil {
		return fmt.Errorf("writing json digest: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
