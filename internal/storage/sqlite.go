package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazz-dev/reachprobe/internal/control"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT    NOT NULL,
    control     TEXT    NOT NULL,
    title       TEXT    NOT NULL,
    subject     TEXT    NOT NULL,
    example     TEXT    NOT NULL,
    status      TEXT    NOT NULL CHECK(status IN ('passed', 'failed')),
    error       TEXT    NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL,
    started_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_control ON results(control, id DESC);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

const resultColumns = `id, run_id, control, title, subject, example, status, error, duration_ms, started_at`

// Result is a stored example result.
type Result struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Control    string    `json:"control"`
	Title      string    `json:"title"`
	Subject    string    `json:"subject"`
	Example    string    `json:"example"`
	Status     string    `json:"status"`
	Error      string    `json:"error"`
	DurationMs int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
}

// DB wraps a SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertReport persists every result of a run in one transaction.
func (d *DB) InsertReport(ctx context.Context, r *control.Report) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for run %s: %w", r.ID, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, control, title, subject, example, status, error, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range r.Results {
		_, err := stmt.ExecContext(ctx,
			r.ID,
			res.Control,
			res.Title,
			res.Subject,
			res.Example,
			string(res.Status),
			res.Error,
			res.Duration.Milliseconds(),
			res.StartedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("inserting result for %q: %w", res.Control, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", r.ID, err)
	}
	return nil
}

// LatestResult returns the result standing for the control's most recent run,
// or nil if the control never ran. A failed example wins over passed ones, so
// the returned status is the control's status for that run.
func (d *DB) LatestResult(ctx context.Context, controlID string) (*Result, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT `+resultColumns+`
		FROM results
		WHERE control = ?
		  AND run_id = (SELECT run_id FROM results WHERE control = ? ORDER BY id DESC LIMIT 1)
		ORDER BY status = 'failed' DESC, id DESC
		LIMIT 1`,
		controlID, controlID,
	)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest result for %q: %w", controlID, err)
	}
	return r, nil
}

// AllLatest returns LatestResult for every control with history, ordered by control.
func (d *DB) AllLatest(ctx context.Context) ([]Result, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT DISTINCT control FROM results ORDER BY control`)
	if err != nil {
		return nil, fmt.Errorf("querying controls: %w", err)
	}
	var controls []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning control: %w", err)
		}
		controls = append(controls, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating controls: %w", err)
	}

	results := make([]Result, 0, len(controls))
	for _, c := range controls {
		r, err := d.LatestResult(ctx, c)
		if err != nil {
			return nil, err
		}
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, nil
}

// ControlHistory returns paginated results for a control, newest first, plus the total count.
func (d *DB) ControlHistory(ctx context.Context, controlID string, limit, offset int) ([]Result, int, error) {
	var total int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM results WHERE control = ?`, controlID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting results for %q: %w", controlID, err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE control = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		controlID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying history for %q: %w", controlID, err)
	}
	defer rows.Close()

	results, err := scanResults(rows)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// PassRate returns the percentage of passed results in the last N results for a control.
func (d *DB) PassRate(ctx context.Context, controlID string, last int) (float64, error) {
	var total int
	var passed sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END)
		FROM (
			SELECT status FROM results WHERE control = ? ORDER BY id DESC LIMIT ?
		)
	`, controlID, last).Scan(&total, &passed)
	if err != nil {
		return 0, fmt.Errorf("calculating pass rate for %q: %w", controlID, err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(passed.Int64) / float64(total) * 100, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (*Result, error) {
	var r Result
	var startedAt string
	err := row.Scan(&r.ID, &r.RunID, &r.Control, &r.Title, &r.Subject, &r.Example,
		&r.Status, &r.Error, &r.DurationMs, &startedAt)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
	}
	r.StartedAt = t
	return &r, nil
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		results = append(results, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows: %w", err)
	}
	return results, nil
}
