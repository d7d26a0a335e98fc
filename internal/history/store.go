// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package history persists benchmark runs in SQLite and serves the time
// series the dashboard charts. Writes go through a bounded lock-free
// queue so submitting a run never waits on disk.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/perfcount"
)

const schemaVersion = 1

// ErrNotFound indicates the requested run is not persisted.
var ErrNotFound = errors.New("history: run not found")

// Store is the SQLite-backed run archive.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and migrates its schema.
func Open(path string) (*Store, error) {
	// The _pragma DSN options apply to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate %s: %w", path, err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var currentVersion int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		date_ms INTEGER NOT NULL,
		commit_hash TEXT,
		go_version TEXT NOT NULL,
		goos TEXT NOT NULL,
		goarch TEXT NOT NULL,
		cpu TEXT,
		host TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date_ms);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		pos INTEGER NOT NULL,
		name TEXT NOT NULL,
		iterations INTEGER NOT NULL,
		ns_per_op REAL NOT NULL,
		allocs_per_op INTEGER NOT NULL,
		bytes_per_op INTEGER NOT NULL,
		PRIMARY KEY (run_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_results_name ON results(name);

	CREATE TABLE IF NOT EXISTS counters (
		run_id TEXT NOT NULL,
		result_name TEXT NOT NULL,
		event TEXT NOT NULL,
		per_op REAL NOT NULL,
		total INTEGER NOT NULL,
		scaled BOOLEAN NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, result_name, event),
		FOREIGN KEY (run_id, result_name) REFERENCES results(run_id, name) ON DELETE CASCADE
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveRun persists a run with its results and counters. Saving an already
// stored run ID replaces the previous record.
func (s *Store) SaveRun(ctx context.Context, run benchlab.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Reingest replaces: the delete cascades into results and counters.
	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", run.ID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, date_ms, commit_hash, go_version, goos, goarch, cpu, host)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Date.UnixMilli(), run.Commit, run.GoVersion, run.GOOS, run.GOARCH, run.CPU, run.Host,
	)
	if err != nil {
		return err
	}

	resStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, pos, name, iterations, ns_per_op, allocs_per_op, bytes_per_op)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer resStmt.Close()

	ctrStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO counters (run_id, result_name, event, per_op, total, scaled)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ctrStmt.Close()

	for pos, res := range run.Results {
		if _, err := resStmt.ExecContext(ctx, run.ID, pos, res.Name, res.N, res.NsPerOp, res.AllocsPerOp, res.BytesPerOp); err != nil {
			return err
		}
		for _, c := range res.Counters {
			if _, err := ctrStmt.ExecContext(ctx, run.ID, res.Name, string(c.Event), c.PerOp, int64(c.Total), c.Scaled); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// Run loads one run by ID.
func (s *Store) Run(ctx context.Context, id string) (benchlab.Run, error) {
	var (
		run    benchlab.Run
		dateMs int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, date_ms, commit_hash, go_version, goos, goarch, cpu, host
		FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &dateMs, &run.Commit, &run.GoVersion, &run.GOOS, &run.GOARCH, &run.CPU, &run.Host)
	if errors.Is(err, sql.ErrNoRows) {
		return benchlab.Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return benchlab.Run{}, err
	}
	run.Date = time.UnixMilli(dateMs).UTC()

	if run.Results, err = s.loadResults(ctx, id); err != nil {
		return benchlab.Run{}, err
	}
	return run, nil
}

func (s *Store) loadResults(ctx context.Context, runID string) ([]benchlab.Result, error) {
	counters, err := s.loadCounters(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, iterations, ns_per_op, allocs_per_op, bytes_per_op
		FROM results WHERE run_id = ? ORDER BY pos`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []benchlab.Result
	for rows.Next() {
		var res benchlab.Result
		if err := rows.Scan(&res.Name, &res.N, &res.NsPerOp, &res.AllocsPerOp, &res.BytesPerOp); err != nil {
			return nil, err
		}
		res.Counters = counters[res.Name]
		results = append(results, res)
	}
	return results, rows.Err()
}

func (s *Store) loadCounters(ctx context.Context, runID string) (map[string][]benchlab.Counter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT result_name, event, per_op, total, scaled
		FROM counters WHERE run_id = ? ORDER BY result_name, event`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counters := make(map[string][]benchlab.Counter)
	for rows.Next() {
		var (
			name  string
			event string
			c     benchlab.Counter
			total int64
		)
		if err := rows.Scan(&name, &event, &c.PerOp, &total, &c.Scaled); err != nil {
			return nil, err
		}
		c.Event = perfcount.Event(event)
		c.Total = uint64(total)
		counters[name] = append(counters[name], c)
	}
	return counters, rows.Err()
}

// Runs loads the latest limit runs, oldest first. limit <= 0 loads all.
func (s *Store) Runs(ctx context.Context, limit int) ([]benchlab.Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative limit as unbounded
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM runs ORDER BY date_ms DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]benchlab.Run, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		run, err := s.Run(ctx, ids[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// CountRuns returns the number of persisted runs.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}

// DeleteRun removes one run with its results and counters.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// BenchNames lists every benchmark name that appears in history.
func (s *Store) BenchNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT name FROM results ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Point is one sample of a benchmark's time series.
type Point struct {
	Date   time.Time
	Commit string
	Value  float64
}

// Series returns ns/op of one benchmark over the latest limit runs,
// oldest first. limit <= 0 returns the full series.
func (s *Store) Series(ctx context.Context, bench string, limit int) ([]Point, error) {
	return s.series(ctx, `
		SELECT date_ms, commit_hash, value FROM (
			SELECT r.date_ms AS date_ms, r.commit_hash AS commit_hash, res.ns_per_op AS value
			FROM results res JOIN runs r ON r.id = res.run_id
			WHERE res.name = ?
			ORDER BY r.date_ms DESC LIMIT ?
		) ORDER BY date_ms ASC`, bench, limitOrAll(limit))
}

// CounterSeries returns one hardware event of one benchmark per op over
// the latest limit runs, oldest first.
func (s *Store) CounterSeries(ctx context.Context, bench string, event perfcount.Event, limit int) ([]Point, error) {
	return s.series(ctx, `
		SELECT date_ms, commit_hash, value FROM (
			SELECT r.date_ms AS date_ms, r.commit_hash AS commit_hash, c.per_op AS value
			FROM counters c JOIN runs r ON r.id = c.run_id
			WHERE c.result_name = ? AND c.event = ?
			ORDER BY r.date_ms DESC LIMIT ?
		) ORDER BY date_ms ASC`, bench, string(event), limitOrAll(limit))
}

func (s *Store) series(ctx context.Context, query string, args ...any) ([]Point, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var (
			p      Point
			dateMs int64
		)
		if err := rows.Scan(&dateMs, &p.Commit, &p.Value); err != nil {
			return nil, err
		}
		p.Date = time.UnixMilli(dateMs).UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
