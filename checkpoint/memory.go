package checkpoint

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

type memoryEntry struct {
	checkpointID string
	snapshot     *core.RunState
	meta         Meta
	createdAt    time.Time
}

// MemoryStore is the volatile, single-process Checkpointer variant, intended
// for tests and local development (CHECKPOINT_STORE=memory).
type MemoryStore struct {
	mu    sync.Mutex
	byThr map[string][]memoryEntry
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byThr: make(map[string][]memoryEntry)}
}

// Put implements Checkpointer.
func (m *MemoryStore) Put(_ context.Context, threadID, checkpointID string, snapshot *core.RunState, meta Meta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{
		checkpointID: checkpointID,
		snapshot:     snapshot.Clone(),
		meta:         meta,
		createdAt:    time.Now(),
	}
	entries := m.byThr[threadID]
	for i, e := range entries {
		if e.checkpointID == checkpointID {
			entries[i] = entry
			m.byThr[threadID] = entries
			return nil
		}
	}
	m.byThr[threadID] = append(entries, entry)
	return nil
}

// Get implements Checkpointer.
func (m *MemoryStore) Get(_ context.Context, threadID, checkpointID string) (*core.RunState, Meta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.byThr[threadID]
	if len(entries) == 0 {
		return nil, nil, nil
	}
	if checkpointID == "" {
		latest := latestOf(entries)
		return latest.snapshot.Clone(), latest.meta, nil
	}
	for _, e := range entries {
		if e.checkpointID == checkpointID {
			return e.snapshot.Clone(), e.meta, nil
		}
	}
	return nil, nil, nil
}

// List implements Checkpointer, newest first.
func (m *MemoryStore) List(_ context.Context, threadID string) ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := append([]memoryEntry(nil), m.byThr[threadID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].checkpointID > entries[j].checkpointID })

	out := make([]Info, len(entries))
	for i, e := range entries {
		out[i] = Info{CheckpointID: e.checkpointID, Meta: e.meta, CreatedAt: e.createdAt}
	}
	return out, nil
}

// Delete implements Checkpointer.
func (m *MemoryStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byThr, threadID)
	return nil
}

func latestOf(entries []memoryEntry) memoryEntry {
	latest := entries[0]
	for _, e := range entries[1:] {
		if e.checkpointID > latest.checkpointID {
			latest = e
		}
	}
	return latest
}
