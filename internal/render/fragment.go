// Package render turns analysis results into the Markdown and JSON forms
// embedded in the digest.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gitingest-go/internal/dbmeta"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders n bytes with one decimal in base-1024 units, for
// example "1.5 KB". Zero is "0 B".
func FormatSize(n uint64) string {
	if n == 0 {
		return "0 B"
	}
	size := float64(n)
	i := 0
	for size >= 1024 && i < len(sizeUnits)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[i])
}

// MarkdownFragment renders the metadata line of a database file followed,
// when the schema was extracted, by a sql block holding every table's
// CREATE statement in name order.
func MarkdownFragment(m *dbmeta.Metadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Méret:** %s | **Adatbázis típusa:** %s", FormatSize(m.SizeBytes), m.Kind)
	if m.TableCount != nil {
		fmt.Fprintf(&b, " | **Táblák száma:** %d", *m.TableCount)
	}
	b.WriteString("\n")

	info := m.SchemaInfo()
	if info == nil {
		return b.String()
	}

	b.WriteString("\n```sql\n")
	for _, name := range sortedNames(info) {
		def := info[name]
		if !def.HasSQL {
			continue
		}
		b.WriteString(strings.TrimRight(strings.TrimSpace(def.CreateSQL), ";"))
		b.WriteString(";\n")
	}
	b.WriteString("```\n")
	return b.String()
}

// FragmentColumn is one column in the JSON form.
type FragmentColumn struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	PrimaryKey bool   `json:"primary_key"`
}

// FragmentTable is one schema_info entry in the JSON form.
type FragmentTable struct {
	CreateSQL string           `json:"create_sql"`
	Columns   []FragmentColumn `json:"columns"`
}

// Fragment is the JSON form of a Metadata record.
type Fragment struct {
	Type       string                    `json:"type"`
	TableCount *uint32                   `json:"table_count,omitempty"`
	SchemaInfo *map[string]FragmentTable `json:"schema_info,omitempty"`
}

// NewFragment converts m into its JSON form. SchemaInfo is nil when the
// schema is absent and points to an empty map when there are no tables.
func NewFragment(m *dbmeta.Metadata) Fragment {
	f := Fragment{
		Type:       m.Kind.String(),
		TableCount: m.TableCount,
	}
	info := m.SchemaInfo()
	if info == nil {
		return f
	}

	tables := make(map[string]FragmentTable, len(info))
	for name, def := range info {
		cols := make([]FragmentColumn, 0, len(def.Columns))
		for _, c := range def.Columns {
			cols = append(cols, FragmentColumn{
				Name:       c.Name,
				Type:       c.Type,
				NotNull:    c.NotNull,
				PrimaryKey: c.PrimaryKey,
			})
		}
		tables[name] = FragmentTable{CreateSQL: def.CreateSQL, Columns: cols}
	}
	f.SchemaInfo = &tables
	return f
}

// JSONFragment renders m as a compact JSON object.
func JSONFragment(m *dbmeta.Metadata) ([]byte, error) {
	data, err := json.Marshal(NewFragment(m))
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return data, nil
}

func sortedNames(info map[string]dbmeta.TableDefinition) []string {
	names := make([]string, 0, len(info))
	for name := range info {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
