package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"fscner/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS predictions (
  key TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  status TEXT NOT NULL,
  rowCount INTEGER NOT NULL DEFAULT 0,
  countsJson TEXT NOT NULL DEFAULT '{}',
  outputCsv TEXT,
  outputXlsx TEXT,
  error TEXT,
  startedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  finishedAt TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_startedAt ON runs(startedAt);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// GetPrediction implements recognizer.Store.
func (d *DB) GetPrediction(ctx context.Context, key string) ([]byte, bool, error) {
	var payload string
	err := d.conn.QueryRowContext(ctx, `SELECT payload FROM predictions WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

// PutPrediction implements recognizer.Store.
func (d *DB) PutPrediction(ctx context.Context, key string, payload []byte) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO predictions (key, payload) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, createdAt = CURRENT_TIMESTAMP
`, key, string(payload))
	return err
}

func (d *DB) CountPredictions() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM predictions`).Scan(&n)
	return n, err
}

func (d *DB) ClearPredictions() error {
	_, err := d.conn.Exec(`DELETE FROM predictions`)
	return err
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a run identifier that sorts after every ID issued before it.
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

func (d *DB) InsertRun(run internal.RunRow) error {
	_, err := d.conn.Exec(`INSERT INTO runs (id, source, status) VALUES (?, ?, ?)`, run.ID, run.Source, string(run.Status))
	return err
}

// FinishRun records the outcome of a run started with InsertRun.
func (d *DB) FinishRun(run internal.RunRow) error {
	countsJSON, _ := json.Marshal(run.Counts)
	if run.Counts == nil {
		countsJSON = []byte("{}")
	}
	_, err := d.conn.Exec(`
UPDATE runs
SET status = ?, rowCount = ?, countsJson = ?, outputCsv = ?, outputXlsx = ?, error = ?, finishedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, string(run.Status), run.Rows, string(countsJSON), nullString(run.OutputCSV), nullString(run.OutputXLSX), nullString(run.Error), run.ID)
	return err
}

func (d *DB) GetRun(id string) (*internal.RunRow, error) {
	row := d.conn.QueryRow(`
SELECT id, source, status, rowCount, countsJson, outputCsv, outputXlsx, error, startedAt, finishedAt
FROM runs WHERE id = ?
`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
SELECT id, source, status, rowCount, countsJson, outputCsv, outputXlsx, error, startedAt, finishedAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.RunRow{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (internal.RunRow, error) {
	var (
		run                               internal.RunRow
		status, countsJSON                string
		outCSV, outXLSX, errMsg, finished sql.NullString
	)
	if err := s.Scan(&run.ID, &run.Source, &status, &run.Rows, &countsJSON, &outCSV, &outXLSX, &errMsg, &run.StartedAt, &finished); err != nil {
		return internal.RunRow{}, err
	}
	run.Status = internal.RunStatus(status)
	run.Counts = map[string]int{}
	_ = json.Unmarshal([]byte(countsJSON), &run.Counts)
	run.OutputCSV = outCSV.String
	run.OutputXLSX = outXLSX.String
	run.Error = errMsg.String
	run.FinishedAt = finished.String
	return run, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
