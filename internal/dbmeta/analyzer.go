package dbmeta

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"gitingest-go/internal/schemasql"
	"gitingest-go/internal/sqlitefile"
)

// ErrUnsupportedKind is recorded for engines that are recognised but have
// no structural decoder.
var ErrUnsupportedKind = errors.New("no structural decoder for database kind")

// Options controls what the Analyzer does.
type Options struct {
	// Enabled gates all analysis.
	Enabled bool
	// ExtractSchema parses every table's CREATE TABLE statement.
	ExtractSchema bool
	// IncludeSystemTables keeps sqlite_ internal tables.
	IncludeSystemTables bool
}

// Source is a file to analyze.
type Source struct {
	// Path is only used for its extension.
	Path   string
	Size   int64
	Reader io.ReaderAt
}

// Analyzer turns database files into Metadata. It holds no mutable state
// and is safe for concurrent use.
type Analyzer struct {
	opts Options
}

// NewAnalyzer creates an Analyzer with the given options.
func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{opts: opts}
}

// Options returns the options the Analyzer was created with.
func (a *Analyzer) Options() Options {
	return a.opts
}

// Analyze classifies src and, for SQLite files, decodes its header and
// catalog. It returns false when analysis is disabled or src does not have
// a database extension. Problems with the file never fail the call; they
// are recorded in Metadata.Diagnostics.
func (a *Analyzer) Analyze(src Source) (*Metadata, bool) {
	if !a.opts.Enabled || !IsDatabaseExtension(filepath.Ext(src.Path)) {
		return nil, false
	}

	var diags []error
	prefix, err := readPrefix(src)
	if err != nil {
		diags = append(diags, fmt.Errorf("reading header: %w", err))
	}

	kind := Classify(filepath.Ext(src.Path), prefix)
	if kind != Sqlite {
		m := &Metadata{Kind: kind, SizeBytes: uint64(max(src.Size, 0))}
		if kind != Unknown {
			m.FileType = FileType(filepath.Ext(src.Path))
			diags = append(diags, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind))
		}
		m.Diagnostics = diags
		return m, true
	}

	header, err := sqlitefile.ParseHeader(prefix)
	if err != nil {
		m := &Metadata{Kind: kind, SizeBytes: uint64(max(src.Size, 0))}
		m.Diagnostics = append(diags, err)
		return m, true
	}
	if err := header.CheckFileSize(src.Size); err != nil {
		diags = append(diags, err)
	}

	catalog, err := sqlitefile.ReadCatalog(src.Reader, header, src.Size)
	if err != nil {
		diags = append(diags, err)
	}

	m := Assemble(kind, src.Size, header, catalog, a.opts)
	m.Diagnostics = append(diags, m.Diagnostics...)
	return m, true
}

// readPrefix reads up to the first sqlitefile.HeaderSize bytes of src.
func readPrefix(src Source) ([]byte, error) {
	if src.Reader == nil {
		return nil, errors.New("no reader")
	}
	n := min(src.Size, sqlitefile.HeaderSize)
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read, err := src.Reader.ReadAt(buf, 0)
	if read == len(buf) {
		return buf, nil
	}
	return buf[:read], err
}

// Assemble composes a Metadata record from already decoded parts. header
// and catalog may be nil. Statements that cannot be parsed leave the
// table's columns empty and add a diagnostic.
func Assemble(kind Kind, size int64, header *sqlitefile.Header, catalog *sqlitefile.Catalog, opts Options) *Metadata {
	m := &Metadata{
		Kind:      kind,
		SizeBytes: uint64(max(size, 0)),
		Header:    header,
	}
	if kind != Sqlite || catalog == nil {
		return m
	}

	entries := catalog.Tables(opts.IncludeSystemTables)
	count := uint32(len(entries))
	m.TableCount = &count
	m.SchemaExtracted = opts.ExtractSchema

	m.Tables = make([]TableDefinition, 0, len(entries))
	for _, e := range entries {
		def := TableDefinition{
			Name:      e.Name,
			CreateSQL: e.SQL,
			HasSQL:    e.HasSQL,
			Columns:   []schemasql.Column{},
		}
		if opts.ExtractSchema && e.HasSQL {
			table, err := schemasql.ParseCreateTable(e.SQL)
			if err != nil {
				m.Diagnostics = append(m.Diagnostics, fmt.Errorf("table %q: %w", e.Name, err))
			} else {
				def.Columns = table.Columns
				for _, s := range table.Skipped {
					m.Diagnostics = append(m.Diagnostics, fmt.Errorf("table %q: skipped definition %q", e.Name, s))
				}
			}
		}
		m.Tables = append(m.Tables, def)
	}
	return m
}
