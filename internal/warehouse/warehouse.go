// Package warehouse owns the embedded DuckDB database the dashboard queries.
// The service opens it read-only once per session; only the build step opens
// it for writing.
package warehouse

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

type AccessMode string

const (
	ReadOnly  AccessMode = "read_only"
	ReadWrite AccessMode = "read_write"
)

func Open(path string, mode AccessMode) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("warehouse path is required")
	}
	dsn := path
	if mode == ReadOnly {
		dsn = path + "?access_mode=read_only"
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse %q: %w", path, err)
	}
	// DuckDB is single-process; a single connection avoids lock contention
	// between the pool's handles on the same file.
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenMemory opens a throwaway in-memory database, used by tests and the
// build step's dry-run mode.
func OpenMemory() (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open in-memory warehouse: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
