// Package store provides SQLite persistence for segmentation runs.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Run is one persisted inference run.
type Run struct {
	ID      string
	Created time.Time
	Mode    string // "stream" or "token"
	Alpha   float64
	Lambda  float64
	Model   string // event model kind
	Steps   int
	Types   int
}

// Step is one per-observation (or per-token) decision within a run.
type Step struct {
	RunID        string
	Idx          int
	BestType     int
	BoundaryProb float64
	Surprise     float64
	PredErr      float64
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	// Build connection string based on database type
	connStr := dbPath
	if dbPath == ":memory:" {
		// For in-memory databases, use shared cache mode so all connections
		// in the pool see the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// For in-memory databases, limit to 1 connection to avoid issues
	// with multiple connections getting different databases
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Enable WAL mode for file-based databases (not :memory:)
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		mode TEXT NOT NULL,
		alpha REAL NOT NULL,
		lambda REAL NOT NULL,
		model TEXT NOT NULL,
		steps INTEGER NOT NULL,
		types INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_steps (
		run_id TEXT NOT NULL REFERENCES runs(id),
		idx INTEGER NOT NULL,
		best_type INTEGER NOT NULL,
		boundary_prob REAL NOT NULL,
		surprise REAL NOT NULL,
		pred_err REAL NOT NULL,
		PRIMARY KEY (run_id, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveRun persists a run and its steps in one transaction, assigning the
// run a fresh ID which is returned.
func (s *Store) SaveRun(run Run, steps []Step) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Created.IsZero() {
		run.Created = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, created_at, mode, alpha, lambda, model, steps, types)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Created, run.Mode, run.Alpha, run.Lambda, run.Model, run.Steps, run.Types)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_steps (run_id, idx, best_type, boundary_prob, surprise, pred_err)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, st := range steps {
		if _, err := stmt.Exec(run.ID, st.Idx, st.BestType, st.BoundaryProb, st.Surprise, st.PredErr); err != nil {
			return "", fmt.Errorf("insert step %d: %w", st.Idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

// GetRuns retrieves the most recent runs, newest first.
// Thread-safe: acquires read lock.
func (s *Store) GetRuns(limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, created_at, mode, alpha, lambda, model, steps, types
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Created, &r.Mode, &r.Alpha, &r.Lambda, &r.Model, &r.Steps, &r.Types); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun retrieves a single run by ID.
// Thread-safe: acquires read lock.
func (s *Store) GetRun(id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r Run
	err := s.db.QueryRow(`
		SELECT id, created_at, mode, alpha, lambda, model, steps, types
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Created, &r.Mode, &r.Alpha, &r.Lambda, &r.Model, &r.Steps, &r.Types)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// GetSteps retrieves a run's steps in order.
// Thread-safe: acquires read lock.
func (s *Store) GetSteps(runID string) ([]Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT run_id, idx, best_type, boundary_prob, surprise, pred_err
		FROM run_steps
		WHERE run_id = ?
		ORDER BY idx
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var st Step
		if err := rows.Scan(&st.RunID, &st.Idx, &st.BestType, &st.BoundaryProb, &st.Surprise, &st.PredErr); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}
