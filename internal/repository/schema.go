package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// The date_only index lives in Migrate: legacy tables may not have the
// column yet when InitDB runs.
const tableDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint TEXT NOT NULL,
	request_data TEXT NOT NULL,
	response_status TEXT NOT NULL,
	response_time REAL,
	response_count INTEGER DEFAULT 1,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	date_only DATE
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_response_status ON %[1]s(response_status);
CREATE INDEX IF NOT EXISTS idx_%[1]s_request_data ON %[1]s(request_data);
`

// openDB opens path with the pragmas every log database uses.
func openDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect db %s: %w", path, err)
	}
	return db, nil
}

// InitDB creates the log tables if they are missing. Safe on every start.
func (r *SQLiteRepository) InitDB(ctx context.Context) error {
	for _, table := range Tables {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf(tableDDL, table)); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	return nil
}
