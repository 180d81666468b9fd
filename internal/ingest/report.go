package ingest

import (
	"time"

	"gitingest-go/internal/dbmeta"
)

// Report is the result of one scan.
type Report struct {
	Root        string
	Name        string
	RunID       string
	GeneratedAt time.Time
	Files       []FileReport
	Stats       Stats
}

// FileReport describes one file included in the digest.
type FileReport struct {
	// RelativePath uses forward slashes.
	RelativePath string
	Size         int64
	// Metadata is set for analyzed database files.
	Metadata *dbmeta.Metadata
	// Err is set when the file could not be read.
	Err error
}

// Stats summarizes a scan.
type Stats struct {
	// Scanned counts every regular file found under the root.
	Scanned   int
	Ignored   int
	Oversized int
	// Included counts the files in the report.
	Included  int
	Databases int
	Errors    int
	TotalSize int64
	// Kinds counts analyzed database files by kind.
	Kinds map[string]int
}

// DatabaseFiles returns the files that carry metadata.
func (r *Report) DatabaseFiles() []FileReport {
	var out []FileReport
	for _, f := range r.Files {
		if f.Metadata != nil {
			out = append(out, f)
		}
	}
	return out
}

func (r *Report) tally() {
	r.Stats.Included = len(r.Files)
	for _, f := range r.Files {
		r.Stats.TotalSize += f.Size
		if f.Err != nil {
			r.Stats.Errors++
		}
		if f.Metadata != nil {
			r.Stats.Databases++
			r.Stats.Kinds[f.Metadata.Kind.String()]++
		}
	}
}
