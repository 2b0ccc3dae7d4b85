// Package journal keeps a local SQLite history of the mutations the tracker
// accepted, across runs.
package journal

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"ytbatch/internal/processor"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Entry is one applied mutation.
type Entry struct {
	ID        int64     `db:"id"`
	RunID     string    `db:"run_id"`
	BatchFile string    `db:"batch_file"`
	Kind      string    `db:"kind"`
	IssueKey  string    `db:"issue_key"`
	Queue     string    `db:"queue"`
	Summary   string    `db:"summary"`
	Parent    string    `db:"parent"`
	AppliedAt time.Time `db:"applied_at"`
}

// Journal is an open journal database.
type Journal struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens (or creates) the journal at path and applies migrations.
func Open(path string) (*Journal, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, now: time.Now}, nil
}

func applyPragmas(db *sqlx.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			if stmt == "PRAGMA journal_mode=WAL;" {
				log.Warn().Err(err).Msg("journal: WAL mode not enabled")
				continue
			}
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return nil
}

func migrate(db *sqlx.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Run records the mutations of one batch run under a fresh run id.
type Run struct {
	ID        string
	BatchFile string
	journal   *Journal
}

// StartRun returns a processor.Recorder tagging entries with a new run id.
func (j *Journal) StartRun(batchFile string) *Run {
	return &Run{ID: uuid.NewString(), BatchFile: batchFile, journal: j}
}

// Record implements processor.Recorder.
func (r *Run) Record(ctx context.Context, a processor.Applied) error {
	return r.journal.Add(ctx, Entry{
		RunID:     r.ID,
		BatchFile: r.BatchFile,
		Kind:      string(a.Kind),
		IssueKey:  a.IssueKey,
		Queue:     a.Queue,
		Summary:   a.Summary,
		Parent:    a.Parent,
	})
}

// Add inserts e. A zero AppliedAt is set to the current time.
func (j *Journal) Add(ctx context.Context, e Entry) error {
	if e.AppliedAt.IsZero() {
		e.AppliedAt = j.now().UTC()
	}
	_, err := j.db.NamedExecContext(ctx, `
		INSERT INTO applied_mutations (
			run_id, batch_file, kind, issue_key, queue, summary, parent, applied_at
		) VALUES (
			:run_id, :batch_file, :kind, :issue_key, :queue, :summary, :parent, :applied_at
		)`, e)
	if err != nil {
		return fmt.Errorf("recording %s %s: %w", e.Kind, e.IssueKey, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	err := j.db.SelectContext(ctx, &entries, `
		SELECT id, run_id, batch_file, kind, issue_key, queue, summary, parent, applied_at
		FROM applied_mutations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing journal: %w", err)
	}
	return entries, nil
}
