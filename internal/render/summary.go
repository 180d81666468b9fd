package render

import (
	"fmt"
	"strings"

	"gitingest-go/internal/dbmeta"
)

// summaryTableLimit is how many tables get a column count line.
const summaryTableLimit = 3

// Summary renders the plain-text description of a database file shown by
// the analyze command.
func Summary(m *dbmeta.Metadata) string {
	lines := []string{
		fmt.Sprintf("[Adatbázis fájl - %s]", m.Kind),
		fmt.Sprintf("Fájl mérete: %d bytes", m.SizeBytes),
	}
	if m.TableCount != nil {
		lines = append(lines, fmt.Sprintf("Táblák száma: %d", *m.TableCount))
	}
	if h := m.Header; h != nil {
		lines = append(lines,
			fmt.Sprintf("Page méret: %d bytes", h.PageSize),
			fmt.Sprintf("Page-ek száma: %d", h.PageCount),
			fmt.Sprintf("Becsült adatbázis méret: %d bytes", h.FileSize()),
		)
	}

	if m.FileType != "" {
		lines = append(lines, "Fájl típus: "+m.FileType)
	}

	if names := m.TableNames(); len(names) > 0 {
		lines = append(lines, "Táblák: "+strings.Join(names, ", "))
		if m.SchemaExtracted {
			for _, t := range m.Tables[:min(len(m.Tables), summaryTableLimit)] {
				lines = append(lines, fmt.Sprintf("  - %s: %d oszlop", t.Name, len(t.Columns)))
			}
		}
	}

	for _, d := range m.Diagnostics {
		lines = append(lines, "Figyelmeztetés: "+d.Error())
	}
	return strings.Join(lines, "\n")
}
