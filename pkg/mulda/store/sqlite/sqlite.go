package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/cognicore/mulda/pkg/mulda/internalerr"
	"github.com/cognicore/mulda/pkg/mulda/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	// Enable WAL mode so reconcile can read while translate writes
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL on %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	input TEXT,
	batch_size INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS batches (
	key TEXT PRIMARY KEY,
	run_id TEXT,
	seq INTEGER NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	inputs TEXT NOT NULL,
	outputs TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS batches_run ON batches(run_id, seq);
`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return migrateRuns(ctx, db)
}

// migrateRuns adds columns introduced after the runs table was first created.
func migrateRuns(ctx context.Context, db *sql.DB) error {
	var n int
	const q = `SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name = 'batch_size'`
	if err := db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return fmt.Errorf("inspect runs table: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, `ALTER TABLE runs ADD COLUMN batch_size INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("add runs.batch_size: %w", err)
	}
	return nil
}

// GetBatch returns a batch by key.
func (s *sqliteStore) GetBatch(ctx context.Context, key string) (store.Batch, bool, error) {
	const q = `
SELECT key, COALESCE(run_id, ''), seq, source, target, inputs, outputs, created_at
FROM batches WHERE key = ?`
	b, err := scanBatch(s.db.QueryRowContext(ctx, q, key))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Batch{}, false, nil
	}
	if err != nil {
		return store.Batch{}, false, err
	}
	return b, true, nil
}

// PutBatch inserts a batch. An existing batch with the same key is kept.
func (s *sqliteStore) PutBatch(ctx context.Context, b store.Batch) error {
	if b.Key == "" {
		return fmt.Errorf("batch key required: %w", internalerr.ErrInvalidInput)
	}
	if len(b.Inputs) != len(b.Outputs) {
		return fmt.Errorf("batch %s has %d inputs and %d outputs: %w", b.Key, len(b.Inputs), len(b.Outputs), internalerr.ErrInvalidInput)
	}

	inputs, err := json.Marshal(nonNil(b.Inputs))
	if err != nil {
		return err
	}
	outputs, err := json.Marshal(nonNil(b.Outputs))
	if err != nil {
		return err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}

	const stmt = `
INSERT INTO batches (key, run_id, seq, source, target, inputs, outputs, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO NOTHING`
	_, err = s.db.ExecContext(ctx, stmt,
		b.Key,
		runIDText(b.RunID),
		b.Seq,
		b.Source,
		b.Target,
		string(inputs),
		string(outputs),
		b.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// BatchesForRun returns the batches written by one run in sequence order.
func (s *sqliteStore) BatchesForRun(ctx context.Context, runID ulid.ULID) ([]store.Batch, error) {
	const q = `
SELECT key, COALESCE(run_id, ''), seq, source, target, inputs, outputs, created_at
FROM batches WHERE run_id = ? ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, q, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RecordRun inserts a run record.
func (s *sqliteStore) RecordRun(ctx context.Context, r store.Run) error {
	const stmt = `
INSERT INTO runs (id, strategy, source, target, input, batch_size, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, stmt,
		r.ID.String(),
		r.Strategy,
		r.Source,
		r.Target,
		r.Input,
		r.BatchSize,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", r.ID, internalerr.ErrDuplicate)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *sqliteStore) GetRun(ctx context.Context, id ulid.ULID) (store.Run, bool, error) {
	const q = `SELECT id, strategy, source, target, COALESCE(input, ''), batch_size, started_at FROM runs WHERE id = ?`
	r, err := scanRun(s.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	return r, true, nil
}

// Runs returns every run, oldest first. ULIDs sort by creation time.
func (s *sqliteStore) Runs(ctx context.Context) ([]store.Run, error) {
	const q = `SELECT id, strategy, source, target, COALESCE(input, ''), batch_size, started_at FROM runs ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (store.Batch, error) {
	var (
		b                      store.Batch
		runID, inputs, outputs string
		created                string
	)
	if err := row.Scan(&b.Key, &runID, &b.Seq, &b.Source, &b.Target, &inputs, &outputs, &created); err != nil {
		return store.Batch{}, err
	}
	if runID != "" {
		id, err := ulid.Parse(runID)
		if err != nil {
			return store.Batch{}, fmt.Errorf("batch %s run id %q: %w", b.Key, runID, err)
		}
		b.RunID = id
	}
	if err := json.Unmarshal([]byte(inputs), &b.Inputs); err != nil {
		return store.Batch{}, fmt.Errorf("batch %s inputs: %w", b.Key, err)
	}
	if err := json.Unmarshal([]byte(outputs), &b.Outputs); err != nil {
		return store.Batch{}, fmt.Errorf("batch %s outputs: %w", b.Key, err)
	}
	if parsed, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
		b.CreatedAt = parsed
	}
	return b, nil
}

func scanRun(row scanner) (store.Run, error) {
	var (
		r           store.Run
		id, started string
	)
	if err := row.Scan(&id, &r.Strategy, &r.Source, &r.Target, &r.Input, &r.BatchSize, &started); err != nil {
		return store.Run{}, err
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return store.Run{}, fmt.Errorf("run id %q: %w", id, err)
	}
	r.ID = parsed
	if ts, perr := time.Parse(time.RFC3339Nano, started); perr == nil {
		r.StartedAt = ts
	}
	return r, nil
}

func runIDText(id ulid.ULID) any {
	if id == (ulid.ULID{}) {
		return nil
	}
	return id.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
