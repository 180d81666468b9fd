package dbmeta

import (
	"gitingest-go/internal/schemasql"
	"gitingest-go/internal/sqlitefile"
)

// TableDefinition describes one table of a SQLite catalog.
type TableDefinition struct {
	Name      string
	CreateSQL string
	// HasSQL is false when the catalog stores NULL instead of a statement.
	HasSQL  bool
	Columns []schemasql.Column
}

// Metadata is the analysis result for one file. It is built once by the
// Analyzer and not modified afterwards.
type Metadata struct {
	Kind Kind
	// FileType describes engines without a structural decoder, for
	// example "InnoDB data file".
	FileType string
	// SizeBytes is the size reported by the filesystem.
	SizeBytes uint64
	// TableCount is nil when the catalog could not be read.
	TableCount *uint32
	// Tables lists the catalog's tables in catalog order. Columns are only
	// filled when SchemaExtracted is set.
	Tables          []TableDefinition
	SchemaExtracted bool
	Header          *sqlitefile.Header
	// Diagnostics collects the problems met while analyzing the file.
	Diagnostics []error
}

// SchemaInfo returns the tables keyed by name. It returns nil when the
// schema was not extracted or the catalog could not be read, and an empty
// map for a database without tables.
func (m *Metadata) SchemaInfo() map[string]TableDefinition {
	if !m.SchemaExtracted || m.TableCount == nil {
		return nil
	}
	info := make(map[string]TableDefinition, len(m.Tables))
	for _, t := range m.Tables {
		info[t.Name] = t
	}
	return info
}

// TableNames returns the table names in catalog order.
func (m *Metadata) TableNames() []string {
	names := make([]string, len(m.Tables))
	for i, t := range m.Tables {
		names[i] = t.Name
	}
	return names
}
