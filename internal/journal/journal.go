// Package journal persists fleet run history in a local SQLite database,
// one row per run plus one per node outcome. The journal is best effort:
// callers log and continue when recording fails, so a broken journal can
// never block a configuration run.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"database/sql"

	_ "modernc.org/sqlite"
)

// Run is one recorded fleet configuration run.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Service    string
	Mode       string
	OK         bool
	Summary    string
	Nodes      []NodeResult
}

// NodeResult is one node's outcome within a run. Probed distinguishes "the
// sweep never reached this node" from "probed and down".
type NodeResult struct {
	Node      string
	Address   string
	Outcome   string
	Stage     string
	Detail    string
	Probed    bool
	Reachable bool
}

// Store is an open journal database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the journal location, honoring XDG_STATE_HOME and
// falling back to ~/.local/state/tforge/history.db.
func DefaultPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "state", "tforge", "history.db")
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "tforge", "history.db")
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS fleet_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	service TEXT NOT NULL,
	mode TEXT NOT NULL,
	ok INTEGER NOT NULL,
	summary TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize fleet_runs schema: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS node_results (
	run_id INTEGER NOT NULL,
	node TEXT NOT NULL,
	address TEXT NOT NULL,
	outcome TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	probed INTEGER NOT NULL DEFAULT 0,
	reachable INTEGER NOT NULL DEFAULT 0
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize node_results schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record writes one run and its node outcomes atomically, returning the
// assigned run ID.
func (s *Store) Record(run Run) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin journal tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO fleet_runs (started_at, finished_at, service, mode, ok, summary)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Service,
		run.Mode,
		boolToInt(run.OK),
		run.Summary,
	)
	if err != nil {
		return 0, fmt.Errorf("insert fleet run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fleet run id: %w", err)
	}

	for _, n := range run.Nodes {
		if _, err := tx.Exec(
			`INSERT INTO node_results (run_id, node, address, outcome, stage, detail, probed, reachable)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, n.Node, n.Address, n.Outcome, n.Stage, n.Detail,
			boolToInt(n.Probed), boolToInt(n.Reachable),
		); err != nil {
			return 0, fmt.Errorf("insert node result %q: %w", n.Node, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit journal tx: %w", err)
	}
	return id, nil
}

// Recent returns the newest runs first, node outcomes included.
func (s *Store) Recent(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, finished_at, service, mode, ok, summary
		 FROM fleet_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list fleet runs: %w", err)
	}
	defer rows.Close()

	out := make([]Run, 0, limit)
	for rows.Next() {
		var r Run
		var started, finished string
		var ok int
		if err := rows.Scan(&r.ID, &started, &finished, &r.Service, &r.Mode, &ok, &r.Summary); err != nil {
			return nil, fmt.Errorf("scan fleet run row: %w", err)
		}
		r.OK = ok != 0
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parse run %d started_at: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("parse run %d finished_at: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fleet run rows: %w", err)
	}

	for i := range out {
		nodes, err := s.nodeResults(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Nodes = nodes
	}
	return out, nil
}

func (s *Store) nodeResults(runID int64) ([]NodeResult, error) {
	rows, err := s.db.Query(
		`SELECT node, address, outcome, stage, detail, probed, reachable
		 FROM node_results WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list node results for run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []NodeResult
	for rows.Next() {
		var n NodeResult
		var probed, reachable int
		if err := rows.Scan(&n.Node, &n.Address, &n.Outcome, &n.Stage, &n.Detail, &probed, &reachable); err != nil {
			return nil, fmt.Errorf("scan node result row: %w", err)
		}
		n.Probed = probed != 0
		n.Reachable = reachable != 0
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node result rows: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
