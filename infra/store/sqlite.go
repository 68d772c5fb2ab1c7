// Package store persists optimisation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/hydrothermal/core/model"
)

// ErrRunNotFound is returned by LoadRun for unknown identifiers.
var ErrRunNotFound = errors.New("run not found")

// Config locates the database. An empty Path disables persistence.
type Config struct {
	Path string `json:"path"`
}

// Enabled reports whether persistence was requested.
func (c Config) Enabled() bool { return c.Path != "" }

// Run is one stored optimisation run.
type Run struct {
	ID          string
	StartedAt   time.Time
	State       model.State
	Iterations  int
	Delta       float64
	WaterValues []float64
	Trajectory  model.Trajectory
}

// SQLiteStore persists runs and their period rows in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var schema = []string{`CREATE TABLE IF NOT EXISTS runs (
        run_id TEXT PRIMARY KEY,
        started_at INTEGER,
        state TEXT,
        iterations INTEGER,
        delta REAL,
        total_cost REAL,
        water_values TEXT
    );`,
	`CREATE TABLE IF NOT EXISTS periods (
        run_id TEXT,
        period INTEGER,
        result TEXT,
        hydro_mw REAL,
        thermo_mw REAL,
        storage_after REAL,
        approximate INTEGER,
        PRIMARY KEY(run_id, period)
    );`,
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRun writes the run and its periods in one transaction, replacing any
// previous run with the same identifier.
func (s *SQLiteStore) SaveRun(ctx context.Context, r Run) error {
	wv, err := json.Marshal(r.WaterValues)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO runs
        (run_id, started_at, state, iterations, delta, total_cost, water_values)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixNano(), r.State.String(), r.Iterations, r.Delta,
		r.Trajectory.TotalCost, string(wv)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM periods WHERE run_id = ?`, r.ID); err != nil {
		return err
	}
	for _, p := range r.Trajectory.Periods {
		row, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO periods
            (run_id, period, result, hydro_mw, thermo_mw, storage_after, approximate)
            VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, p.Period.Index, string(row), p.Decision.HydroMW, p.Decision.ThermoMW,
			p.StorageAfter, p.Approximate); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRun reads a run and its periods back.
func (s *SQLiteStore) LoadRun(ctx context.Context, id string) (Run, error) {
	var (
		r       = Run{ID: id}
		started int64
		state   string
		total   float64
		wv      string
	)
	err := s.db.QueryRowContext(ctx, `SELECT started_at, state, iterations, delta, total_cost, water_values
        FROM runs WHERE run_id = ?`, id).Scan(&started, &state, &r.Iterations, &r.Delta, &total, &wv)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = time.Unix(0, started).UTC()
	r.State = parseState(state)
	r.Trajectory.TotalCost = total
	if err := json.Unmarshal([]byte(wv), &r.WaterValues); err != nil {
		return Run{}, fmt.Errorf("decode water values: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT result FROM periods WHERE run_id = ? ORDER BY period`, id)
	if err != nil {
		return Run{}, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return Run{}, err
		}
		var p model.PeriodResult
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return Run{}, fmt.Errorf("decode period: %w", err)
		}
		r.Trajectory.Periods = append(r.Trajectory.Periods, p)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns run identifiers, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func parseState(s string) model.State {
	switch s {
	case model.StateConverged.String():
		return model.StateConverged
	case model.StateExhausted.String():
		return model.StateExhausted
	default:
		return model.StateIterating
	}
}
