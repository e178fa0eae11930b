// Package checkpoint defines the session-keyed persistence contract (C2) and
// its two variants: an in-memory store for tests and dev, and a durable
// SQLite-backed store (see the sqlite subpackage) for single-process
// production deployments.
package checkpoint

import (
	"context"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// Meta is caller-supplied metadata attached to a checkpoint (e.g. which
// group index it was taken at).
type Meta map[string]any

// Info describes one stored checkpoint without its full snapshot payload,
// as returned by List.
type Info struct {
	CheckpointID string    `json:"checkpoint_id"`
	Meta         Meta      `json:"meta,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Checkpointer is the session-scoped persistence contract every variant
// implements. Concurrent Put calls for the same threadID are serialized by
// the implementation.
type Checkpointer interface {
	// Put durably writes snapshot under (threadID, checkpointID). At-least-once.
	Put(ctx context.Context, threadID, checkpointID string, snapshot *core.RunState, meta Meta) error

	// Get returns the snapshot for (threadID, checkpointID), or the latest
	// snapshot for threadID if checkpointID is empty. Returns (nil, nil, nil)
	// if no checkpoint exists.
	Get(ctx context.Context, threadID, checkpointID string) (*core.RunState, Meta, error)

	// List returns every checkpoint for threadID, newest first.
	List(ctx context.Context, threadID string) ([]Info, error)

	// Delete removes every checkpoint for threadID.
	Delete(ctx context.Context, threadID string) error
}
