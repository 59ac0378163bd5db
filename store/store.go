// Package store provides SQLite persistence for loop runs and module
// parameter snapshots.
//
// Information Hiding:
// - SQLite connection management hidden behind the Store type
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/loomworks/loom/module"
	"github.com/loomworks/loom/signature"
)

// Store persists runs and parameter snapshots in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// OpenInMemory creates an in-memory database (useful for testing).
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			module TEXT NOT NULL,
			inputs TEXT NOT NULL,
			outputs TEXT NOT NULL,
			trajectory TEXT NOT NULL DEFAULT '',
			steps INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_module
		ON runs(module, created_at DESC);

		CREATE TABLE IF NOT EXISTS parameter_snapshots (
			id TEXT PRIMARY KEY,
			module TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS parameters (
			snapshot_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			FOREIGN KEY (snapshot_id) REFERENCES parameter_snapshots(id) ON DELETE CASCADE,
			PRIMARY KEY (snapshot_id, position)
		);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Run is one persisted module invocation.
type Run struct {
	ID         string
	Module     string
	Inputs     signature.Values
	Outputs    signature.Values
	Trajectory string
	Steps      int
	CreatedAt  int64
}

// SaveRun persists a run, assigning an ID and timestamp when absent.
// Returns the run's ID.
func (s *Store) SaveRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().Unix()
	}

	inputs, err := json.Marshal(run.Inputs)
	if err != nil {
		return "", fmt.Errorf("failed to encode inputs: %w", err)
	}
	outputs, err := json.Marshal(run.Outputs)
	if err != nil {
		return "", fmt.Errorf("failed to encode outputs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(id, module, inputs, outputs, trajectory, steps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Module,
		string(inputs),
		string(outputs),
		run.Trajectory,
		run.Steps,
		run.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store run: %w", err)
	}
	return run.ID, nil
}

// GetRun loads a run by ID. Returns nil, nil if not found.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	var inputs, outputs string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, module, inputs, outputs, trajectory, steps, created_at
		FROM runs WHERE id = ?`,
		id).Scan(
		&run.ID,
		&run.Module,
		&inputs,
		&outputs,
		&run.Trajectory,
		&run.Steps,
		&run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := json.Unmarshal([]byte(inputs), &run.Inputs); err != nil {
		return nil, fmt.Errorf("invalid inputs in database: %w", err)
	}
	if err := json.Unmarshal([]byte(outputs), &run.Outputs); err != nil {
		return nil, fmt.Errorf("invalid outputs in database: %w", err)
	}

	return &run, nil
}

// ListRuns lists the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, module, inputs, outputs, trajectory, steps, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{} // Start with empty slice, not nil
	for rows.Next() {
		var run Run
		var inputs, outputs string
		err := rows.Scan(
			&run.ID,
			&run.Module,
			&inputs,
			&outputs,
			&run.Trajectory,
			&run.Steps,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(inputs), &run.Inputs); err != nil {
			return nil, fmt.Errorf("invalid inputs in database: %w", err)
		}
		if err := json.Unmarshal([]byte(outputs), &run.Outputs); err != nil {
			return nil, fmt.Errorf("invalid outputs in database: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun removes a run.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// SaveParameters persists a snapshot of a module's parameters.
// Returns the snapshot ID.
func (s *Store) SaveParameters(ctx context.Context, moduleName string, params []module.Parameter) (string, error) {
	snapshotID := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO parameter_snapshots (id, module, created_at) VALUES (?, ?, ?)",
		snapshotID, moduleName, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("failed to store snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO parameters (snapshot_id, position, name, kind, value) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, p := range params {
		value, err := json.Marshal(p.Value)
		if err != nil {
			return "", fmt.Errorf("failed to encode parameter %q: %w", p.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, snapshotID, i, p.Name, p.Kind, string(value)); err != nil {
			return "", fmt.Errorf("failed to insert parameter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return snapshotID, nil
}

// LoadParameters loads a parameter snapshot in its original order.
// Returns nil, nil if the snapshot does not exist.
func (s *Store) LoadParameters(ctx context.Context, snapshotID string) ([]module.Parameter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, value
		FROM parameters
		WHERE snapshot_id = ?
		ORDER BY position ASC`,
		snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters: %w", err)
	}
	defer rows.Close()

	var params []module.Parameter
	for rows.Next() {
		var p module.Parameter
		var value string
		if err := rows.Scan(&p.Name, &p.Kind, &value); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		p.Value, err = decodeParameterValue(p.Kind, value)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter value in database: %w", err)
		}
		params = append(params, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parameters: %w", err)
	}

	return params, nil
}

// decodeParameterValue restores the Go type the parameter kinds carry,
// so loaded snapshots can be fed straight back into WithParameters.
func decodeParameterValue(kind, value string) (any, error) {
	switch kind {
	case module.KindInstructions:
		var s string
		if err := json.Unmarshal([]byte(value), &s); err != nil {
			return nil, err
		}
		return s, nil
	case module.KindExamples:
		var examples []signature.Example
		if err := json.Unmarshal([]byte(value), &examples); err != nil {
			return nil, err
		}
		return examples, nil
	default:
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
