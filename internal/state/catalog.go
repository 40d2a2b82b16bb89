// Package state keeps the conversion-run catalog in a local SQLite
// database: one row per converted application plus its review findings
// (unconverted functions, synthetic keys, fallback warnings). The
// catalog backs the runs and report commands.
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Finding kinds recorded against a run.
const (
	FindingUnconverted  = "unconverted"
	FindingSyntheticKey = "synthetic_key"
	FindingWarning      = "warning"
)

// Run is one catalog entry.
type Run struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	App         string    `json:"app,omitempty"`
	OutputDir   string    `json:"output_dir,omitempty"`
	Status      RunStatus `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
	Error       string    `json:"error,omitempty"`
	Tables      int       `json:"tables"`
	Pages       int       `json:"pages"`
	Mapped      int       `json:"mapped"`
	Unconverted int       `json:"unconverted"`
}

// Rate is the conversion coverage of the run in percent; a run that
// encountered nothing convertible counts as fully covered.
func (r Run) Rate() float64 {
	total := r.Mapped + r.Unconverted
	if total == 0 {
		return 100
	}
	return float64(r.Mapped) / float64(total) * 100
}

// Metrics summarizes a finished run.
type Metrics struct {
	App         string
	OutputDir   string
	Tables      int
	Pages       int
	Mapped      int
	Unconverted int
}

// Finding is one review item attached to a run.
type Finding struct {
	RunID  string
	Kind   string
	Detail string
}

// Catalog is an open run catalog.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the catalog at path and applies pending
// migrations. Use ":memory:" for a throwaway catalog.
func Open(path string) (*Catalog, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = path + "?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open run catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping run catalog: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Catalog{db: db, path: path}, nil
}

// Close releases the underlying database.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CreateRun records the start of a conversion.
func (c *Catalog) CreateRun(source string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Source:    source,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := c.db.Exec(
		`INSERT INTO runs (id, source, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Source, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run finished and stores its metrics.
func (c *Catalog) CompleteRun(id string, m Metrics) error {
	res, err := c.db.Exec(
		`UPDATE runs
		 SET status = ?, completed_at = ?, app = ?, output_dir = ?,
		     tables = ?, pages = ?, mapped = ?, unconverted = ?
		 WHERE id = ?`,
		RunStatusCompleted, time.Now().UTC(), m.App, m.OutputDir,
		m.Tables, m.Pages, m.Mapped, m.Unconverted, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return checkRowFound(res, id)
}

// FailRun marks a run failed with its error message.
func (c *Catalog) FailRun(id, message string) error {
	res, err := c.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		RunStatusFailed, time.Now().UTC(), message, id,
	)
	if err != nil {
		return fmt.Errorf("failed to record run failure: %w", err)
	}
	return checkRowFound(res, id)
}

// GetRun retrieves a run by id.
func (c *Catalog) GetRun(id string) (*Run, error) {
	row := c.db.QueryRow(
		`SELECT id, source, app, output_dir, status, started_at,
		        completed_at, error, tables, pages, mapped, unconverted
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently started run, or nil when the
// catalog is empty.
func (c *Catalog) LatestRun() (*Run, error) {
	runs, err := c.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ListRuns returns runs newest first, at most limit when limit > 0.
func (c *Catalog) ListRuns(limit int) ([]Run, error) {
	query := `SELECT id, source, app, output_dir, status, started_at,
	                 completed_at, error, tables, pages, mapped, unconverted
	          FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// AddFindings attaches review items of one kind to a run.
func (c *Catalog) AddFindings(runID, kind string, details []string) error {
	if len(details) == 0 {
		return nil
	}
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to record findings: %w", err)
	}
	for _, detail := range details {
		if _, err := tx.Exec(
			`INSERT INTO findings (run_id, kind, detail) VALUES (?, ?, ?)`,
			runID, kind, detail,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record finding: %w", err)
		}
	}
	return tx.Commit()
}

// ListFindings returns a run's findings in insertion order.
func (c *Catalog) ListFindings(runID string) ([]Finding, error) {
	rows, err := c.db.Query(
		`SELECT run_id, kind, detail FROM findings WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.RunID, &f.Kind, &f.Detail); err != nil {
			return nil, fmt.Errorf("failed to read finding: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString
	err := row.Scan(
		&run.ID, &run.Source, &run.App, &run.OutputDir, &run.Status,
		&run.StartedAt, &completedAt, &errMsg,
		&run.Tables, &run.Pages, &run.Mapped, &run.Unconverted,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

func checkRowFound(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}
