package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys are a connection-level setting.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateRun creates a new run record
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, title, status, degraded, total_sub_units, succeeded, failed,
			retry_rounds, duration_ms, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Title,
		run.Status,
		run.Degraded,
		run.TotalSubUnits,
		run.Succeeded,
		run.Failed,
		run.RetryRounds,
		run.DurationMs,
		run.StartedAt,
		run.CompletedAt,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, title, status, degraded, total_sub_units, succeeded, failed,
			retry_rounds, duration_ms, started_at, completed_at, created_at, updated_at
		FROM runs
		WHERE id = ?
	`

	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Title,
		&run.Status,
		&run.Degraded,
		&run.TotalSubUnits,
		&run.Succeeded,
		&run.Failed,
		&run.RetryRounds,
		&run.DurationMs,
		&run.StartedAt,
		&run.CompletedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// FinishRun records a run's terminal status and summary counters.
func (s *SQLiteStore) FinishRun(ctx context.Context, id string, status RunStatus, degraded bool, totalSubUnits, succeeded, failed, retryRounds int, durationMs int64) error {
	query := `
		UPDATE runs
		SET status = ?, degraded = ?, total_sub_units = ?, succeeded = ?, failed = ?,
			retry_rounds = ?, duration_ms = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		status, degraded, totalSubUnits, succeeded, failed,
		retryRounds, durationMs, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// ListRuns lists runs with pagination, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	query := `
		SELECT id, title, status, degraded, total_sub_units, succeeded, failed,
			retry_rounds, duration_ms, started_at, completed_at, created_at, updated_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID,
			&run.Title,
			&run.Status,
			&run.Degraded,
			&run.TotalSubUnits,
			&run.Succeeded,
			&run.Failed,
			&run.RetryRounds,
			&run.DurationMs,
			&run.StartedAt,
			&run.CompletedAt,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun deletes a run by ID. Phase events and unit results cascade.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// AppendPhaseEvent records a phase transition for a run.
func (s *SQLiteStore) AppendPhaseEvent(ctx context.Context, event *PhaseEvent) error {
	query := `
		INSERT INTO phase_events (run_id, phase, entered_at)
		VALUES (?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, event.RunID, event.Phase, event.EnteredAt)
	if err != nil {
		return fmt.Errorf("failed to append phase event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event id: %w", err)
	}
	event.ID = id

	return nil
}

// ListPhaseEvents returns a run's phase transitions in order.
func (s *SQLiteStore) ListPhaseEvents(ctx context.Context, runID string) ([]*PhaseEvent, error) {
	query := `
		SELECT id, run_id, phase, entered_at
		FROM phase_events
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phase events: %w", err)
	}
	defer rows.Close()

	events := []*PhaseEvent{}
	for rows.Next() {
		event := &PhaseEvent{}
		if err := rows.Scan(&event.ID, &event.RunID, &event.Phase, &event.EnteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan phase event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating phase events: %w", err)
	}

	return events, nil
}

// AppendUnitResult records one worker attempt.
func (s *SQLiteStore) AppendUnitResult(ctx context.Context, result *UnitResult) error {
	query := `
		INSERT INTO unit_results (run_id, unit_key, round, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		result.RunID,
		result.UnitKey,
		result.Round,
		result.Status,
		result.Error,
		result.DurationMs,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append unit result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get result id: %w", err)
	}
	result.ID = id

	return nil
}

// ListUnitResultsByRun returns every recorded attempt for a run, oldest
// first, so retry rounds read in arrival order.
func (s *SQLiteStore) ListUnitResultsByRun(ctx context.Context, runID string) ([]*UnitResult, error) {
	query := `
		SELECT id, run_id, unit_key, round, status, error, duration_ms, created_at
		FROM unit_results
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit results: %w", err)
	}
	defer rows.Close()

	results := []*UnitResult{}
	for rows.Next() {
		result := &UnitResult{}
		err := rows.Scan(
			&result.ID,
			&result.RunID,
			&result.UnitKey,
			&result.Round,
			&result.Status,
			&result.Error,
			&result.DurationMs,
			&result.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit result: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unit results: %w", err)
	}

	return results, nil
}

// HealthCheck verifies the database is reachable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
