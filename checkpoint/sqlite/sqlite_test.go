package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/agentkernel/checkpoint"
	"github.com/hupe1980/agentkernel/core"
)

func TestStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	snap := core.NewRunState("t-1", "search info, write doc, check compliance")
	snap.ExecutionPlan = []string{"search", "document", "compliance"}
	snap.CurrentGroup = 1

	if err := store.Put(ctx, "t-1", checkpoint.NewCheckpointID(), snap, checkpoint.Meta{"group": 1}); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, meta, err := store.Get(ctx, "t-1", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a snapshot, got nil")
	}
	if got.TaskDescription != snap.TaskDescription || got.CurrentGroup != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if meta["group"].(float64) != 1 {
		t.Fatalf("expected meta group 1, got %+v", meta)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	snap := core.NewRunState("t-1", "task")
	ids := []string{checkpoint.NewCheckpointID(), checkpoint.NewCheckpointID(), checkpoint.NewCheckpointID()}
	for _, id := range ids {
		if err := store.Put(ctx, "t-1", id, snap, nil); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	list, err := store.List(ctx, "t-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].CheckpointID != ids[2] {
		t.Fatalf("expected newest-first order matching ulid generation order, got %+v", list)
	}
}

func TestStore_DeleteRemovesThread(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	snap := core.NewRunState("t-1", "task")
	if err := store.Put(ctx, "t-1", checkpoint.NewCheckpointID(), snap, nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "t-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, _, err := store.Get(ctx, "t-1", "")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}
