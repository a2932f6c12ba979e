// Package runlog persists per-run simulation output: an append-only JSONL
// event log the live publisher can replay mid-run, a run_meta.json
// describing the run, and a SQLite store for cross-run queries.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event kinds.
const (
	KindDecision = "decision"
	KindArrival  = "arrival"
	KindPurchase = "purchase"
)

// Record is one simulation event in occurrence order per agent.
type Record struct {
	Kind     string  `json:"kind"`
	Agent    string  `json:"agent"`
	Category string  `json:"category"`
	TS       float64 `json:"t_s"`

	// arrival only
	PathLenCells int     `json:"path_len_cells,omitempty"`
	TravelTimeS  float64 `json:"travel_time_s,omitempty"`

	// purchase only
	Amount float64 `json:"amount,omitempty"`

	// decision only
	Thought  string `json:"thought,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// RunMeta describes one scenario run; written once at run start.
type RunMeta struct {
	ExpID      string  `json:"exp_id"`
	EnvKey     string  `json:"env_key"`
	ScenarioID string  `json:"scenario_id"`
	Title      string  `json:"title,omitempty"`
	Seed       int64   `json:"seed"`
	AgentCount int     `json:"agent_count"`
	DurationS  float64 `json:"duration_s"`
	Bins       int     `json:"bins"`
	StartedAt  string  `json:"started_at"`
}

const eventsFile = "events.jsonl"

// Log appends events to <dir>/events.jsonl. Each Append flushes so a
// concurrent reader always sees whole lines up to the latest event.
type Log struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

// OpenLog creates the run directory and opens its event log for append.
func OpenLog(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, eventsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &Log{f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one record as a JSON line.
func (l *Log) Append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := l.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return l.w.Flush()
}

// Close flushes and closes the log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

// ScanEvents reads all complete records from a run directory's event log.
// A truncated trailing line (writer mid-append) is skipped, not an error.
// A missing log yields an empty slice.
func ScanEvents(dir string) ([]Record, error) {
	f, err := os.Open(filepath.Join(dir, eventsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("scan event log: %w", err)
	}
	return out, nil
}

const memoriesFile = "memories.jsonl"

// MemoryRecord is one agent memory entry, persisted at run end.
type MemoryRecord struct {
	Agent string `json:"agent" db:"agent"`
	TS    string `json:"ts" db:"ts"`
	Kind  string `json:"kind" db:"kind"`
	Text  string `json:"text" db:"text"`
}

// WriteMemories writes the full memory snapshot to <dir>/memories.jsonl,
// replacing any previous snapshot.
func WriteMemories(dir string, recs []MemoryRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, memoriesFile))
	if err != nil {
		return fmt.Errorf("create memories file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, r := range recs {
		data, err := json.Marshal(r)
		if err != nil {
			f.Close()
			return fmt.Errorf("marshal memory: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("write memory: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ScanMemories reads the memory snapshot from a run directory. A missing
// file yields an empty slice.
func ScanMemories(dir string) ([]MemoryRecord, error) {
	f, err := os.Open(filepath.Join(dir, memoriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open memories file: %w", err)
	}
	defer f.Close()

	var out []MemoryRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var r MemoryRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("scan memories file: %w", err)
	}
	return out, nil
}

// WriteMeta writes run_meta.json into the run directory.
func WriteMeta(dir string, m RunMeta) error {
	if m.StartedAt == "" {
		m.StartedAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run_meta.json"), data, 0o644); err != nil {
		return fmt.Errorf("write run meta: %w", err)
	}
	return nil
}

// ReadMeta reads run_meta.json from a run directory.
func ReadMeta(dir string) (RunMeta, error) {
	var m RunMeta
	data, err := os.ReadFile(filepath.Join(dir, "run_meta.json"))
	if err != nil {
		return m, fmt.Errorf("read run meta: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse run meta: %w", err)
	}
	return m, nil
}
