package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/twin-engine/internal/classify"
	"github.com/danielpatrickdp/twin-engine/internal/engine"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id             TEXT PRIMARY KEY,
	impact             INTEGER NOT NULL,
	label              TEXT NOT NULL,
	status             TEXT NOT NULL,
	inputs_json        TEXT NOT NULL,
	contributions_json TEXT NOT NULL,
	started_at         TEXT NOT NULL,
	completed_at       TEXT NOT NULL,
	recorded_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_completed_at ON runs(completed_at);
`

// #endregion schema

// timeFormat is fixed-width so lexical order in SQLite matches time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// #region store-struct
// Store records completed simulation results in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// #endregion store-struct

// #region constructor
// Open opens (or creates) the journal database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region record
// Record inserts one completed result. Recording the same run twice is a no-op.
func (s *Store) Record(res engine.Result) error {
	inputsJSON, err := json.Marshal(res.Inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}
	contribJSON, err := json.Marshal(res.Contributions)
	if err != nil {
		return fmt.Errorf("marshal contributions: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, impact, label, status, inputs_json, contributions_json, started_at, completed_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO NOTHING`,
		res.RunID, res.Impact, res.Label, string(res.Status),
		string(inputsJSON), string(contribJSON),
		res.StartedAt.UTC().Format(timeFormat),
		res.CompletedAt.UTC().Format(timeFormat),
		s.now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", res.RunID, err)
	}
	return nil
}

// Subscriber returns an engine subscriber that records every published result.
func (s *Store) Subscriber() engine.Subscriber {
	return s.Record
}

// #endregion record

// #region get
// Get returns a single recorded run.
func (s *Store) Get(runID string) (Entry, error) {
	row := s.db.QueryRow(
		`SELECT run_id, impact, label, status, inputs_json, contributions_json, started_at, completed_at, recorded_at
		 FROM runs WHERE run_id = ?`, runID,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("get run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return e, nil
}

// #endregion get

// #region list
// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT run_id, impact, label, status, inputs_json, contributions_json, started_at, completed_at, recorded_at
		 FROM runs ORDER BY completed_at DESC, recorded_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list

// #region summarize
// Summarize aggregates every recorded run.
func (s *Store) Summarize() (Summary, error) {
	sum := Summary{ByStatus: make(map[classify.Status]int)}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Summary{}, fmt.Errorf("scan status: %w", err)
		}
		sum.ByStatus[classify.Status(status)] = n
		sum.Total += n
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	if sum.Total == 0 {
		return sum, nil
	}

	err = s.db.QueryRow(`SELECT MIN(impact), MAX(impact), AVG(impact) FROM runs`).
		Scan(&sum.MinImpact, &sum.MaxImpact, &sum.AvgImpact)
	if err != nil {
		return Summary{}, fmt.Errorf("impact range: %w", err)
	}
	return sum, nil
}

// #endregion summarize

// #region scan
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var status, inputsJSON, contribJSON string
	var startedStr, completedStr, recordedStr string

	if err := sc.Scan(&e.RunID, &e.Impact, &e.Label, &status, &inputsJSON, &contribJSON,
		&startedStr, &completedStr, &recordedStr); err != nil {
		return Entry{}, err
	}
	e.Status = classify.Status(status)
	if err := json.Unmarshal([]byte(inputsJSON), &e.Inputs); err != nil {
		return Entry{}, fmt.Errorf("unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(contribJSON), &e.Contributions); err != nil {
		return Entry{}, fmt.Errorf("unmarshal contributions: %w", err)
	}
	var err error
	if e.StartedAt, err = time.Parse(timeFormat, startedStr); err != nil {
		return Entry{}, fmt.Errorf("parse started_at: %w", err)
	}
	if e.CompletedAt, err = time.Parse(timeFormat, completedStr); err != nil {
		return Entry{}, fmt.Errorf("parse completed_at: %w", err)
	}
	if e.RecordedAt, err = time.Parse(timeFormat, recordedStr); err != nil {
		return Entry{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	return e, nil
}

// #endregion scan
