package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// NewSQLiteFile creates the SQLite database dir/name by running stmts in
// order and returns its path. The connection is closed before returning so
// the file is complete on disk.
func NewSQLiteFile(t *testing.T, dir, name string, stmts ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// PRAGMAs such as page_size only apply to the connection they run on.
	db.SetMaxOpenConns(1)

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			t.Fatalf("failed to run %q: %v", stmt, err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("failed to close database: %v", err)
	}
	return path
}

// NewSQLiteBytes is NewSQLiteFile in a temporary directory, returning the
// file contents.
func NewSQLiteBytes(t *testing.T, stmts ...string) []byte {
	t.Helper()

	path := NewSQLiteFile(t, t.TempDir(), "fixture.db", stmts...)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read database: %v", err)
	}
	return data
}

// UsersSchema is a small two-table schema used across tests.
var UsersSchema = []string{
	`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, email TEXT UNIQUE NOT NULL)`,
	`CREATE TABLE orders (
		order_id INTEGER,
		user_id INTEGER REFERENCES users(id),
		total DECIMAL(10,2) CHECK (total >= 0),
		PRIMARY KEY (order_id, user_id)
	)`,
	`CREATE INDEX idx_orders_user ON orders(user_id)`,
	`CREATE VIEW big_orders AS SELECT * FROM orders WHERE total > 100`,
}
