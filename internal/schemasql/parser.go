// Package schemasql extracts column definitions from the CREATE TABLE
// statements stored in a SQLite catalog.
//
// It is not a SQL parser. It tokenizes just enough of the statement to find
// the column list, splits it at top-level commas and reads each item as a
// column definition or a table constraint. Anything it cannot read is
// reported in Table.Skipped rather than failing the statement.
package schemasql

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnparseableSchema is returned when a statement has no readable column list.
var ErrUnparseableSchema = errors.New("unparseable create table statement")

// Column is one column definition.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// Table is the result of parsing a CREATE TABLE statement.
type Table struct {
	Name    string
	Columns []Column
	// Skipped holds list items that were neither a column nor a table
	// constraint, as they appeared in the statement.
	Skipped []string
}

// tableConstraints are the keywords that start a table constraint instead
// of a column definition.
var tableConstraints = map[string]bool{
	"CONSTRAINT": true,
	"PRIMARY":    true,
	"FOREIGN":    true,
	"UNIQUE":     true,
	"CHECK":      true,
}

// columnConstraints end the type name of a column definition.
var columnConstraints = map[string]bool{
	"CONSTRAINT": true,
	"PRIMARY":    true,
	"NOT":        true,
	"NULL":       true,
	"UNIQUE":     true,
	"CHECK":      true,
	"DEFAULT":    true,
	"COLLATE":    true,
	"REFERENCES": true,
	"GENERATED":  true,
	"AS":         true,
}

// ParseCreateTable reads the columns of a CREATE TABLE statement. Columns
// are returned in declaration order. A column is a primary key when it
// carries PRIMARY KEY itself or is listed in a table-level PRIMARY KEY.
func ParseCreateTable(sql string) (*Table, error) {
	tokens, err := tokenize(sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableSchema, err)
	}

	groupAt := -1
	for i, t := range tokens {
		if t.kind == tokenGroup {
			groupAt = i
			break
		}
	}
	if groupAt < 0 {
		return nil, fmt.Errorf("%w: no column list", ErrUnparseableSchema)
	}

	name, err := tableName(tokens[:groupAt])
	if err != nil {
		return nil, err
	}

	items, err := tokenize(tokens[groupAt].inner())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableSchema, err)
	}

	table := &Table{Name: name}
	var keyColumns []string
	for _, item := range splitTopLevel(items) {
		if len(item) == 0 {
			continue
		}
		if tableConstraints[item[0].upper()] {
			keyColumns = append(keyColumns, primaryKeyColumns(item)...)
			continue
		}
		col, ok := parseColumn(item)
		if !ok {
			table.Skipped = append(table.Skipped, joinRaw(item))
			continue
		}
		table.Columns = append(table.Columns, col)
	}

	for _, key := range keyColumns {
		for i := range table.Columns {
			if strings.EqualFold(table.Columns[i].Name, key) {
				table.Columns[i].PrimaryKey = true
			}
		}
	}

	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("%w: no columns in %q", ErrUnparseableSchema, name)
	}
	return table, nil
}

// tableName checks the tokens before the column list read
// CREATE [TEMP|TEMPORARY] TABLE [IF NOT EXISTS] [schema.]name and returns name.
func tableName(prefix []token) (string, error) {
	i := 0
	next := func(keywords ...string) bool {
		if i >= len(prefix) {
			return false
		}
		for _, kw := range keywords {
			if prefix[i].upper() == kw {
				i++
				return true
			}
		}
		return false
	}

	if !next("CREATE") {
		return "", fmt.Errorf("%w: not a CREATE statement", ErrUnparseableSchema)
	}
	next("TEMP", "TEMPORARY")
	if !next("TABLE") {
		return "", fmt.Errorf("%w: not a CREATE TABLE statement", ErrUnparseableSchema)
	}
	if next("IF") {
		if !next("NOT") || !next("EXISTS") {
			return "", fmt.Errorf("%w: malformed IF NOT EXISTS", ErrUnparseableSchema)
		}
	}

	rest := prefix[i:]
	switch {
	case len(rest) == 1 && rest[0].identifier():
		return rest[0].value, nil
	case len(rest) == 3 && rest[0].identifier() && rest[1].raw == "." && rest[2].identifier():
		return rest[2].value, nil
	}
	return "", fmt.Errorf("%w: unexpected tokens before column list", ErrUnparseableSchema)
}

// parseColumn reads name, type and the NOT NULL and PRIMARY KEY flags of a
// column definition. Words inside groups and string literals never count
// as constraints.
func parseColumn(item []token) (Column, bool) {
	if !item[0].identifier() {
		return Column{}, false
	}
	col := Column{Name: item[0].value}

	i := 1
	var typ strings.Builder
	for ; i < len(item); i++ {
		t := item[i]
		if t.kind == tokenGroup {
			typ.WriteString(t.raw)
			continue
		}
		if (t.kind != tokenWord && t.kind != tokenQuoted) || columnConstraints[t.upper()] {
			break
		}
		if typ.Len() > 0 {
			typ.WriteByte(' ')
		}
		typ.WriteString(t.value)
	}
	col.Type = typ.String()

	for ; i < len(item); i++ {
		if i+1 >= len(item) {
			break
		}
		switch item[i].upper() {
		case "NOT":
			if item[i+1].upper() == "NULL" {
				col.NotNull = true
			}
		case "PRIMARY":
			if item[i+1].upper() == "KEY" {
				col.PrimaryKey = true
			}
		}
	}
	return col, true
}

// primaryKeyColumns returns the column names of a PRIMARY KEY (...) table
// constraint, or nil for any other constraint.
func primaryKeyColumns(item []token) []string {
	for i := 0; i+2 < len(item); i++ {
		if item[i].upper() != "PRIMARY" || item[i+1].upper() != "KEY" || item[i+2].kind != tokenGroup {
			continue
		}
		inner, err := tokenize(item[i+2].inner())
		if err != nil {
			return nil
		}
		var names []string
		for _, part := range splitTopLevel(inner) {
			if len(part) > 0 && part[0].identifier() {
				names = append(names, part[0].value)
			}
		}
		return names
	}
	return nil
}

func joinRaw(item []token) string {
	parts := make([]string, len(item))
	for i, t := range item {
		parts[i] = t.raw
	}
	return strings.Join(parts, " ")
}
