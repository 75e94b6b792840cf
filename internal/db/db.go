// Package db persists simulation runs and their point results in
// SQLite. The schema is managed by versioned migrations embedded in
// the binary.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/groundsight-data/groundsight/internal/timeutil"
)

// DB wraps the runs database. SQLite serialises writers; the busy
// timeout in the DSN absorbs short contention instead of surfacing
// SQLITE_BUSY.
type DB struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

// OpenDB opens (creating if needed) the SQLite database at path with
// the standard pragma set: WAL journaling, a 5s busy timeout, NORMAL
// synchronous writes and in-memory temp tables. The pragmas ride the
// DSN so they apply to every pooled connection.
func OpenDB(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	return &DB{DB: sqlDB, path: path, clock: timeutil.RealClock{}}, nil
}

// Path returns the filesystem path the database was opened with.
func (db *DB) Path() string { return db.path }

// SetClock replaces the time source used for created_at stamps.
func (db *DB) SetClock(c timeutil.Clock) { db.clock = c }
