// Package history keeps a local log of reconciliation runs in SQLite.
//
// The log only observes runs; reconciliation itself never reads it.
package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Run is one recorded reconciliation run.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	Outcome          string // "applied" or "failed"
	Devices          int
	Folders          int
	RestartTriggered bool
	Error            string
}

// Run outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
)

// timeFormat is fixed-width so that lexicographic ordering of the stored
// column matches chronological ordering.
const timeFormat = "2006-01-02 15:04:05.000000000"

// NewRunID returns a new lexicographically sortable run identifier.
func NewRunID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Store wraps the SQLite run log.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates and migrates) the run log at the given
// path. The parent directory is created if missing.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	// WAL mode and a busy timeout; SQLite works best with a single
	// connection for writes.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the run log.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a run to the log.
func (s *Store) Record(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, outcome, devices, folders, restart_triggered, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.UTC().Format(timeFormat),
		run.FinishedAt.UTC().Format(timeFormat),
		run.Outcome,
		run.Devices,
		run.Folders,
		boolToInt(run.RestartTriggered),
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, outcome, devices, folders, restart_triggered, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		var restart int
		if err := rows.Scan(&run.ID, &started, &finished, &run.Outcome,
			&run.Devices, &run.Folders, &restart, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.ParseInLocation(timeFormat, started, time.UTC)
		run.FinishedAt, _ = time.ParseInLocation(timeFormat, finished, time.UTC)
		run.RestartTriggered = restart != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
