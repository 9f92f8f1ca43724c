package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// InitDB opens the sqlite database and creates the tables if needed.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			request TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS repair_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			attempt_number INTEGER,
			source TEXT,
			feedback TEXT,
			result TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			run_id TEXT,
			status TEXT,
			decided_by TEXT,
			decided_at DATETIME,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS insights (
			run_id TEXT PRIMARY KEY,
			insight TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS delivery_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			persona TEXT,
			channel TEXT,
			status TEXT,
			error TEXT,
			sent_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			persona TEXT,
			subject TEXT,
			file_path TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			level TEXT,
			message TEXT,
			details TEXT,
			created_at DATETIME
		);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
