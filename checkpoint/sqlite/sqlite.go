// Package sqlite implements the CHECKPOINT_STORE=local_durable variant: a
// single-file, single-writer/concurrent-readers embedded store with
// write-ahead-log semantics.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/agentkernel/checkpoint"
	"github.com/hupe1980/agentkernel/core"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Store is a SQLite-backed checkpoint.Checkpointer.
type Store struct {
	db *sql.DB
}

// Open opens or creates a checkpoint database at path, running migrations
// and enabling WAL journal mode so concurrent readers never block the
// single writer.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint/sqlite: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("checkpoint/sqlite: set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("checkpoint/sqlite: enable foreign keys: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id     TEXT NOT NULL,
			checkpoint_id TEXT NOT NULL,
			state_json    TEXT NOT NULL,
			meta_json     TEXT NOT NULL DEFAULT '{}',
			created_at    TEXT NOT NULL,
			PRIMARY KEY (thread_id, checkpoint_id)
		);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_thread ON checkpoints(thread_id, checkpoint_id DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("checkpoint/sqlite: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

var _ checkpoint.Checkpointer = (*Store)(nil)

// Put implements checkpoint.Checkpointer. SQLite serializes writers by
// itself: a WAL database admits one write transaction at a time across all
// of the pool's connections, which already gives us "concurrent puts for the
// same thread_id are serialized".
func (s *Store) Put(ctx context.Context, threadID, checkpointID string, snapshot *core.RunState, meta checkpoint.Meta) error {
	stateJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("checkpoint/sqlite: marshal snapshot: %w", err)
	}
	metaJSON, err := marshalMeta(meta)
	if err != nil {
		return fmt.Errorf("checkpoint/sqlite: marshal meta: %w", err)
	}

	const upsert = `
		INSERT INTO checkpoints (thread_id, checkpoint_id, state_json, meta_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(thread_id, checkpoint_id) DO UPDATE SET
			state_json = excluded.state_json,
			meta_json  = excluded.meta_json,
			created_at = excluded.created_at
	`
	_, err = s.db.ExecContext(ctx, upsert, threadID, checkpointID, string(stateJSON), string(metaJSON), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("checkpoint/sqlite: put: %w", err)
	}
	return nil
}

// Get implements checkpoint.Checkpointer.
func (s *Store) Get(ctx context.Context, threadID, checkpointID string) (*core.RunState, checkpoint.Meta, error) {
	var (
		stateJSON, metaJSON, createdAt string
		row                            *sql.Row
	)
	if checkpointID == "" {
		row = s.db.QueryRowContext(ctx, `
			SELECT state_json, meta_json, created_at FROM checkpoints
			WHERE thread_id = ? ORDER BY checkpoint_id DESC LIMIT 1
		`, threadID)
	} else {
		row = s.db.QueryRowContext(ctx, `
			SELECT state_json, meta_json, created_at FROM checkpoints
			WHERE thread_id = ? AND checkpoint_id = ?
		`, threadID, checkpointID)
	}

	if err := row.Scan(&stateJSON, &metaJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("checkpoint/sqlite: get: %w", err)
	}

	var snap core.RunState
	if err := json.Unmarshal([]byte(stateJSON), &snap); err != nil {
		return nil, nil, fmt.Errorf("checkpoint/sqlite: unmarshal snapshot: %w", err)
	}
	return &snap, unmarshalMeta(metaJSON), nil
}

// List implements checkpoint.Checkpointer, newest first (checkpoint ids are
// ulid-derived and therefore lexically sortable by creation time).
func (s *Store) List(ctx context.Context, threadID string) ([]checkpoint.Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT checkpoint_id, meta_json, created_at FROM checkpoints
		WHERE thread_id = ? ORDER BY checkpoint_id DESC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint/sqlite: list: %w", err)
	}
	defer rows.Close()

	var out []checkpoint.Info
	for rows.Next() {
		var id, metaJSON, createdAt string
		if err := rows.Scan(&id, &metaJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("checkpoint/sqlite: scan: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, checkpoint.Info{CheckpointID: id, Meta: unmarshalMeta(metaJSON), CreatedAt: ts})
	}
	return out, rows.Err()
}

// Delete implements checkpoint.Checkpointer.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("checkpoint/sqlite: delete: %w", err)
	}
	return nil
}

// marshalMeta builds the meta_json column without round-tripping through a
// concrete Go struct, using sjson field-by-field like an event-sourced index
// keeps its side tables in sync.
func marshalMeta(meta checkpoint.Meta) (string, error) {
	doc := "{}"
	var err error
	for k, v := range meta {
		doc, err = sjson.Set(doc, k, v)
		if err != nil {
			return "", err
		}
	}
	return doc, nil
}

func unmarshalMeta(doc string) checkpoint.Meta {
	result := gjson.Parse(doc)
	if !result.IsObject() {
		return nil
	}
	out := checkpoint.Meta{}
	result.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.Value()
		return true
	})
	return out
}
