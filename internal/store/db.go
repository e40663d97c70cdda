// Package store keeps a SQLite ledger of review runs and their score
// history for the history command.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/pawgate/pkg/models"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// DB wraps an SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// Run is one finished review run.
type Run struct {
	ID            string
	Topic         string
	Tier          models.SafetyTier
	Success       bool
	Conditional   bool
	FailPoint     string
	Attempts      int
	TechScore     float64
	CreativeScore float64
	Message       string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Open opens an SQLite database at the given path and applies migrations.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
		{2, migrationV2Scores},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	tier TEXT NOT NULL,
	success INTEGER NOT NULL,
	conditional INTEGER NOT NULL DEFAULT 0,
	fail_point TEXT,
	attempts INTEGER NOT NULL,
	tech_score REAL NOT NULL DEFAULT 0,
	creative_score REAL NOT NULL DEFAULT 0,
	message TEXT,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_topic ON runs(topic);
CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
`

const migrationV2Scores = `
CREATE TABLE IF NOT EXISTS scores (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	attempt INTEGER NOT NULL,
	phase TEXT NOT NULL,
	score REAL NOT NULL,
	verdict TEXT NOT NULL,
	feedback TEXT,
	recorded_at TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// RecordRun stores a run and its score history in one transaction.
func (db *DB) RecordRun(ctx context.Context, run Run, history []models.ScoreEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, topic, tier, success, conditional, fail_point, attempts,
			tech_score, creative_score, message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Topic, string(run.Tier), boolToInt(run.Success), boolToInt(run.Conditional),
		nullString(run.FailPoint), run.Attempts, run.TechScore, run.CreativeScore,
		nullString(run.Message), formatTime(run.StartedAt), formatTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, e := range history {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scores (run_id, seq, attempt, phase, score, verdict, feedback, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, e.Attempt, string(e.Phase), e.Score, string(e.Verdict), e.Feedback, formatTime(e.Timestamp))
		if err != nil {
			return fmt.Errorf("insert score %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the newest runs first. An empty topic matches all.
func (db *DB) ListRuns(ctx context.Context, topic string, limit int) ([]Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, topic, tier, success, conditional, fail_point, attempts,
			tech_score, creative_score, message, started_at, finished_at
		FROM runs
		WHERE (? = '' OR topic = ?)
		ORDER BY finished_at DESC, id
		LIMIT ?`, topic, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run.
func (db *DB) GetRun(ctx context.Context, id string) (Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, topic, tier, success, conditional, fail_point, attempts,
			tech_score, creative_score, message, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// History returns a run's score history in recorded order.
func (db *DB) History(ctx context.Context, runID string) ([]models.ScoreEntry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT attempt, phase, score, verdict, COALESCE(feedback, ''), recorded_at
		FROM scores WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.ScoreEntry
	for rows.Next() {
		var e models.ScoreEntry
		var phase, verdict, ts string
		if err := rows.Scan(&e.Attempt, &phase, &e.Score, &verdict, &e.Feedback, &ts); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		e.Timestamp = t
		e.Phase = models.Phase(phase)
		e.Verdict = models.Verdict(verdict)
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var tier string
	var success, conditional int
	var failPoint, message sql.NullString
	var started, finished string
	err := s.Scan(&r.ID, &r.Topic, &tier, &success, &conditional, &failPoint, &r.Attempts,
		&r.TechScore, &r.CreativeScore, &message, &started, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Tier = models.SafetyTier(tier)
	r.Success = success != 0
	r.Conditional = conditional != 0
	r.FailPoint = failPoint.String
	r.Message = message.String
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return r, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
