// Package sqlite persists review history in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evanmcb/autoreview/internal/domain"
	"github.com/evanmcb/autoreview/internal/usecase/review"
)

// Store implements the orchestrator's Store port on SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a store at the given path. Use ":memory:" for an
// in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
	-- Metadata about each review run
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		repository TEXT NOT NULL,
		base_ref TEXT NOT NULL,
		target_ref TEXT NOT NULL,
		degraded INTEGER NOT NULL DEFAULT 0,
		provider TEXT,
		summary TEXT
	);

	-- Per-tool outcome of each run
	CREATE TABLE IF NOT EXISTS tool_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tool TEXT NOT NULL,
		version TEXT NOT NULL,
		category TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		cached INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		finding_count INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	-- Individual findings of each run
	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		finding_id TEXT NOT NULL,
		tool TEXT NOT NULL,
		file TEXT NOT NULL,
		line_start INTEGER NOT NULL,
		line_end INTEGER NOT NULL,
		severity TEXT NOT NULL,
		category TEXT NOT NULL,
		message TEXT NOT NULL,
		suggestion TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_tool_results_run ON tool_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
	CREATE INDEX IF NOT EXISTS idx_findings_id ON findings(finding_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores a run record.
func (s *Store) SaveRun(ctx context.Context, run review.RunRecord) error {
	query := `
		INSERT INTO runs (run_id, created_at, repository, base_ref, target_ref, degraded, provider, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.CreatedAt.Unix(),
		run.Repository,
		run.BaseRef,
		run.TargetRef,
		boolToInt(run.Degraded),
		run.Provider,
		run.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// SaveToolResults stores the per-tool outcomes of a run.
func (s *Store) SaveToolResults(ctx context.Context, runID string, results []domain.ToolResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO tool_results (run_id, tool, version, category, duration_ms, cached, failed, error, finding_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, r := range results {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Message
		}
		if _, err := tx.ExecContext(ctx, query,
			runID,
			r.Tool,
			r.Version,
			string(r.Category),
			r.Metrics.Duration.Milliseconds(),
			boolToInt(r.Metrics.Cached),
			boolToInt(r.Err != nil),
			errMsg,
			len(r.Findings),
		); err != nil {
			return fmt.Errorf("failed to save tool result for %s: %w", r.Tool, err)
		}
	}
	return tx.Commit()
}

// SaveFindings stores the merged findings of a run.
func (s *Store) SaveFindings(ctx context.Context, runID string, findings []domain.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO findings (run_id, finding_id, tool, file, line_start, line_end, severity, category, message, suggestion)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, f := range findings {
		if _, err := tx.ExecContext(ctx, query,
			runID,
			f.ID,
			f.Tool,
			f.File,
			f.LineStart,
			f.LineEnd,
			f.Severity,
			string(f.Category),
			f.Message,
			f.Suggestion,
		); err != nil {
			return fmt.Errorf("failed to save finding %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]review.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, created_at, repository, base_ref, target_ref, degraded, provider, summary
		FROM runs
		ORDER BY created_at DESC, run_id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []review.RunRecord
	for rows.Next() {
		var run review.RunRecord
		var createdAt int64
		var degraded int
		if err := rows.Scan(&run.RunID, &createdAt, &run.Repository, &run.BaseRef,
			&run.TargetRef, &degraded, &run.Provider, &run.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.CreatedAt = time.Unix(createdAt, 0).UTC()
		run.Degraded = degraded != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetFindings returns the stored findings of a run.
func (s *Store) GetFindings(ctx context.Context, runID string) ([]domain.Finding, error) {
	query := `
		SELECT finding_id, tool, file, line_start, line_end, severity, category, message, suggestion
		FROM findings
		WHERE run_id = ?
		ORDER BY file, line_start, tool
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []domain.Finding
	for rows.Next() {
		var f domain.Finding
		var category string
		if err := rows.Scan(&f.ID, &f.Tool, &f.File, &f.LineStart, &f.LineEnd,
			&f.Severity, &category, &f.Message, &f.Suggestion); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Category = domain.Category(category)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
