// SQLite run store for cross-experiment queries.
package runlog

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection holding run history and events.
type Store struct {
	conn *sqlx.DB
}

// OpenStore opens or creates a SQLite database at the given path. The
// connection pool is capped at one: concurrent env workers share the
// store, and serialized writes plus the busy timeout keep inserts from
// failing with SQLITE_BUSY.
func OpenStore(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		exp_id TEXT NOT NULL,
		env_key TEXT NOT NULL,
		scenario_id TEXT NOT NULL,
		seed INTEGER NOT NULL,
		agent_count INTEGER NOT NULL,
		duration_s REAL NOT NULL,
		bins INTEGER NOT NULL,
		status TEXT NOT NULL,
		decisions INTEGER NOT NULL DEFAULT 0,
		arrivals INTEGER NOT NULL DEFAULT 0,
		spend REAL NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		PRIMARY KEY (exp_id, env_key)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exp_id TEXT NOT NULL,
		env_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		agent TEXT NOT NULL,
		category TEXT NOT NULL,
		t_s REAL NOT NULL,
		path_len_cells INTEGER NOT NULL DEFAULT 0,
		travel_time_s REAL NOT NULL DEFAULT 0,
		amount REAL NOT NULL DEFAULT 0,
		fallback INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exp_id TEXT NOT NULL,
		env_key TEXT NOT NULL,
		agent TEXT NOT NULL,
		ts TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(exp_id, env_key);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	CREATE INDEX IF NOT EXISTS idx_memories_run ON memories(exp_id, env_key);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// RunRow mirrors one row of the runs table.
type RunRow struct {
	ExpID      string  `db:"exp_id"`
	EnvKey     string  `db:"env_key"`
	ScenarioID string  `db:"scenario_id"`
	Seed       int64   `db:"seed"`
	AgentCount int     `db:"agent_count"`
	DurationS  float64 `db:"duration_s"`
	Bins       int     `db:"bins"`
	Status     string  `db:"status"`
	Decisions  int     `db:"decisions"`
	Arrivals   int     `db:"arrivals"`
	Spend      float64 `db:"spend"`
	StartedAt  string  `db:"started_at"`
	FinishedAt *string `db:"finished_at"`
}

// InsertRun records a run at start with status "running".
func (s *Store) InsertRun(m RunMeta) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO runs
		(exp_id, env_key, scenario_id, seed, agent_count, duration_s, bins, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'running', ?)`,
		m.ExpID, m.EnvKey, m.ScenarioID, m.Seed, m.AgentCount, m.DurationS, m.Bins, m.StartedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun marks a run done or failed and stores its totals.
func (s *Store) FinishRun(expID, envKey, status, finishedAt string, decisions, arrivals int, spend float64) error {
	_, err := s.conn.Exec(`UPDATE runs
		SET status = ?, finished_at = ?, decisions = ?, arrivals = ?, spend = ?
		WHERE exp_id = ? AND env_key = ?`,
		status, finishedAt, decisions, arrivals, spend, expID, envKey)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// SaveEvents appends a batch of events for one run.
func (s *Store) SaveEvents(expID, envKey string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(exp_id, env_key, kind, agent, category, t_s, path_len_cells, travel_time_s, amount, fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		fallback := 0
		if r.Fallback {
			fallback = 1
		}
		if _, err := stmt.Exec(
			expID, envKey, r.Kind, r.Agent, r.Category, r.TS,
			r.PathLenCells, r.TravelTimeS, r.Amount, fallback,
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

// SaveMemories stores one run's end-of-run memory snapshot.
func (s *Store) SaveMemories(expID, envKey string, recs []MemoryRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO memories
		(exp_id, env_key, agent, ts, kind, text)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.Exec(expID, envKey, r.Agent, r.TS, r.Kind, r.Text); err != nil {
			return fmt.Errorf("insert memory: %w", err)
		}
	}
	return tx.Commit()
}

// AgentMemories returns one run's memory snapshot in insertion order.
func (s *Store) AgentMemories(expID, envKey string) ([]MemoryRecord, error) {
	var recs []MemoryRecord
	err := s.conn.Select(&recs,
		`SELECT agent, ts, kind, text FROM memories
		WHERE exp_id = ? AND env_key = ? ORDER BY id`, expID, envKey)
	if err != nil {
		return nil, fmt.Errorf("select memories: %w", err)
	}
	return recs, nil
}

// Runs returns all runs for an experiment, env1 first.
func (s *Store) Runs(expID string) ([]RunRow, error) {
	var rows []RunRow
	err := s.conn.Select(&rows,
		"SELECT * FROM runs WHERE exp_id = ? ORDER BY env_key", expID)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return rows, nil
}
