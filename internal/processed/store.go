// Package processed persists the set of message UIDs a previous run has
// already acted on, plus per-run history. The exclusion set keeps
// repeated runs from re-classifying (and re-billing) the same messages.
package processed

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Run summarizes one triage run for the history table.
type Run struct {
	ID           string    `db:"id"`
	Mailbox      string    `db:"mailbox"`
	Model        string    `db:"model"`
	StartedAt    time.Time `db:"started_at"`
	FinishedAt   time.Time `db:"finished_at"`
	Fetched      int       `db:"fetched"`
	Classified   int       `db:"classified"`
	Succeeded    int       `db:"succeeded"`
	Failed       int       `db:"failed"`
	InputTokens  int       `db:"input_tokens"`
	OutputTokens int       `db:"output_tokens"`
}

// Store implements the processed-UID exclusion set on a local SQLite
// database.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) a SQLite database at dbPath, enables WAL
// mode, and runs any pending schema migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UIDs returns the set of processed UIDs for a mailbox.
func (s *Store) UIDs(ctx context.Context, mailbox string) (map[uint32]struct{}, error) {
	var uids []uint32
	err := s.db.SelectContext(
		ctx, &uids,
		"SELECT uid FROM processed_uids WHERE mailbox = ?", mailbox,
	)
	if err != nil {
		return nil, fmt.Errorf("loading processed uids for %s: %w", mailbox, err)
	}

	set := make(map[uint32]struct{}, len(uids))
	for _, uid := range uids {
		set[uid] = struct{}{}
	}
	return set, nil
}

// Add records UIDs as processed for a mailbox, attributing them to the
// given run. Already-recorded UIDs are ignored. It returns the number of
// newly recorded UIDs.
func (s *Store) Add(ctx context.Context, mailbox string, uids []uint32, runID string) (int, error) {
	if len(uids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, uid := range uids {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO processed_uids (mailbox, uid, run_id) VALUES (?, ?, ?)`,
			mailbox, uid, runID,
		)
		if err != nil {
			return 0, fmt.Errorf("recording uid %d: %w", uid, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing processed uids: %w", err)
	}
	return added, nil
}

// RecordRun appends one run to the history table.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO runs (
	id, mailbox, model, started_at, finished_at,
	fetched, classified, succeeded, failed, input_tokens, output_tokens
) VALUES (
	:id, :mailbox, :model, :started_at, :finished_at,
	:fetched, :classified, :succeeded, :failed, :input_tokens, :output_tokens
)`, run)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []Run
	err := s.db.SelectContext(
		ctx, &runs,
		"SELECT * FROM runs ORDER BY started_at DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("loading run history: %w", err)
	}
	return runs, nil
}
