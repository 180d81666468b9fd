package dbmeta

import (
	"bytes"
	"strings"

	"gitingest-go/internal/sqlitefile"
)

// Kind identifies the database engine a file belongs to.
type Kind int

const (
	Unknown Kind = iota
	Sqlite
	MySQL
	PostgreSQL
	MongoDB
	Redis
	Access
	DBase
)

var kindNames = map[Kind]string{
	Unknown:    "unknown",
	Sqlite:     "sqlite",
	MySQL:      "mysql",
	PostgreSQL: "postgresql",
	MongoDB:    "mongodb",
	Redis:      "redis",
	Access:     "access",
	DBase:      "dbase",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// MaxPrefixLen is the number of leading content bytes Classify looks at.
const MaxPrefixLen = 16

// SignatureRule maps file extensions to an engine. When Magic is set the
// content must start with it, otherwise the file is Unknown.
type SignatureRule struct {
	Extensions []string
	Magic      []byte
	Kind       Kind
	// FileTypes describes what a file with each extension holds. Engines
	// that are decoded structurally have none.
	FileTypes map[string]string
}

// signatureRules is consulted in order; the first rule naming the
// extension decides.
var signatureRules = []SignatureRule{
	{Extensions: []string{"db", "sqlite", "sqlite3"}, Magic: []byte(sqlitefile.HeaderString), Kind: Sqlite},
	{
		Extensions: []string{"frm", "myd", "myi", "ibd"},
		Kind:       MySQL,
		FileTypes: map[string]string{
			"frm": "Table definition file",
			"myd": "MyISAM data file",
			"myi": "MyISAM index file",
			"ibd": "InnoDB data file",
		},
	},
	{
		Extensions: []string{"pgc", "pgd"},
		Kind:       PostgreSQL,
		FileTypes: map[string]string{
			"pgc": "PostgreSQL global cache file",
			"pgd": "PostgreSQL data file",
		},
	},
	{
		Extensions: []string{"bson", "wt"},
		Kind:       MongoDB,
		FileTypes: map[string]string{
			"bson": "MongoDB BSON data file",
			"wt":   "MongoDB WiredTiger data file",
		},
	},
	{
		Extensions: []string{"rdb"},
		Kind:       Redis,
		FileTypes:  map[string]string{"rdb": "Redis RDB file"},
	},
	{
		Extensions: []string{"mdb", "accdb"},
		Kind:       Access,
		FileTypes: map[string]string{
			"mdb":   "access database file",
			"accdb": "access database file",
		},
	},
	{
		Extensions: []string{"dbf", "dbc"},
		Kind:       DBase,
		FileTypes: map[string]string{
			"dbf": "dbase database file",
			"dbc": "dbase database file",
		},
	},
}

// SignatureRules returns a copy of the classification table.
func SignatureRules() []SignatureRule {
	rules := make([]SignatureRule, len(signatureRules))
	copy(rules, signatureRules)
	return rules
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func ruleFor(ext string) (SignatureRule, bool) {
	ext = normalizeExt(ext)
	if ext == "" {
		return SignatureRule{}, false
	}
	for _, rule := range signatureRules {
		for _, e := range rule.Extensions {
			if e == ext {
				return rule, true
			}
		}
	}
	return SignatureRule{}, false
}

// IsDatabaseExtension reports whether ext (with or without the leading dot,
// any case) belongs to a known database engine.
func IsDatabaseExtension(ext string) bool {
	_, ok := ruleFor(ext)
	return ok
}

// Classify returns the engine for a file with extension ext whose content
// starts with prefix. Only the first MaxPrefixLen bytes of prefix are used.
func Classify(ext string, prefix []byte) Kind {
	rule, ok := ruleFor(ext)
	if !ok {
		return Unknown
	}
	if len(prefix) > MaxPrefixLen {
		prefix = prefix[:MaxPrefixLen]
	}
	if len(rule.Magic) > 0 && !bytes.HasPrefix(prefix, rule.Magic) {
		return Unknown
	}
	return rule.Kind
}

// FileType returns the description of a file with extension ext, or ""
// when the extension is unknown or its engine is decoded structurally.
func FileType(ext string) string {
	rule, ok := ruleFor(ext)
	if !ok {
		return ""
	}
	return rule.FileTypes[normalizeExt(ext)]
}
