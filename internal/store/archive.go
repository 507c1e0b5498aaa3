// Package store archives verification batches in SQLite so runs can be
// compared over time without re-parsing result files.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"leanverify/internal/logging"
	"leanverify/internal/report"
)

// Archive is an insert-only SQLite store: one batch row per run, one
// result row per record.
type Archive struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open initializes the archive database at the given path, creating the
// schema on first use.
func Open(path string) (*Archive, error) {
	log := logging.Named("store")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debugw("failed to set busy_timeout", "error", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debugw("failed to set journal_mode=WAL", "error", err)
	}

	a := &Archive{db: db, path: path}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	log.Infow("archive opened", "path", path)
	return a, nil
}

// initialize creates the required tables.
func (a *Archive) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		input_path TEXT NOT NULL,
		total INTEGER NOT NULL,
		pass_rate REAL NOT NULL,
		completion_rate REAL NOT NULL,
		mean_verify_time REAL NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id INTEGER NOT NULL REFERENCES batches(id),
		idx INTEGER NOT NULL,
		verification_status TEXT NOT NULL,
		verification_pass INTEGER NOT NULL,
		verification_complete INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		sorries INTEGER NOT NULL,
		verify_time REAL NOT NULL,
		verified_lean_code TEXT NOT NULL,
		error_check TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_batch ON results(batch_id);
	CREATE INDEX IF NOT EXISTS idx_results_status ON results(verification_status);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return nil
}

// SaveBatch stores a whole run atomically: the summary row first, then
// every record keyed to it.
func (a *Archive) SaveBatch(inputPath string, records []report.ResultRecord, sum report.Summary) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO batches (input_path, total, pass_rate, completion_rate, mean_verify_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inputPath, sum.Total, sum.PassRate, sum.CompletionRate, sum.MeanVerifyTime, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch row: %w", err)
	}
	batchID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read batch id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO results
		 (batch_id, idx, verification_status, verification_pass, verification_complete,
		  errors, warnings, sorries, verify_time, verified_lean_code, error_check)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(
			batchID, rec.Idx, string(rec.VerificationStatus),
			rec.VerificationPass, rec.VerificationComplete,
			rec.Errors, rec.Warnings, rec.Sorries, rec.VerifyTime,
			rec.VerifiedLeanCode, rec.ErrorCheck,
		); err != nil {
			return fmt.Errorf("failed to insert result row for idx %d: %w", rec.Idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	logging.Named("store").Infow("batch archived", "batch_id", batchID, "records", len(records))
	return nil
}

// BatchCount reports how many batches the archive holds.
func (a *Archive) BatchCount() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM batches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return n, nil
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
