package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"infobeamer-cms/internal/config"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Store persists sync run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Record stores a finished run and its per-setup outcomes. An empty ID is
// replaced with a new one.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if _, err := uuid.Parse(run.ID); err != nil {
		return "", fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin record tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_runs (id, started_at, finished_at, live_count, setups, writes, failures, reported, error)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.LiveCount,
		len(run.Setups),
		run.Writes,
		run.Failures,
		boolToInt(run.Reported),
		nullableString(run.Error),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, setup := range run.Setups {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sync_run_setups (run_id, setup_id, outcome, shown_count, error) VALUES (?, ?, ?, ?, ?)`,
			run.ID, setup.SetupID, string(setup.Outcome), setup.ShownCount, nullableString(setup.Error),
		)
		if err != nil {
			return "", fmt.Errorf("insert setup outcome %d: %w", setup.SetupID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return run.ID, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, live_count, writes, failures, reported, error
         FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		setups, err := s.setups(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Setups = setups
	}
	return runs, nil
}

// Get returns a single run.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, live_count, writes, failures, reported, error
         FROM sync_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	setups, err := s.setups(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Setups = setups
	return &run, nil
}

// Prune deletes all but the newest keep runs and returns the number removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_runs WHERE id NOT IN (
            SELECT id FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

func (s *Store) setups(ctx context.Context, runID string) ([]SetupOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT setup_id, outcome, shown_count, error FROM sync_run_setups WHERE run_id = ? ORDER BY setup_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query setup outcomes: %w", err)
	}
	defer rows.Close()

	var out []SetupOutcome
	for rows.Next() {
		var (
			outcome SetupOutcome
			kind    string
			errText sql.NullString
		)
		if err := rows.Scan(&outcome.SetupID, &kind, &outcome.ShownCount, &errText); err != nil {
			return nil, fmt.Errorf("scan setup outcome: %w", err)
		}
		outcome.Outcome = Outcome(kind)
		outcome.Error = errText.String
		out = append(out, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setup outcomes: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		started, finished string
		reported          int
		errText           sql.NullString
	)
	if err := row.Scan(&run.ID, &started, &finished, &run.LiveCount, &run.Writes, &run.Failures, &reported, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.Reported = reported != 0
	run.Error = errText.String
	return run, nil
}

// timeLayout has fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
