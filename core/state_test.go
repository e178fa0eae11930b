package core

import (
	"testing"
	"time"
)

func TestStore_PatchAccumulatesAppendOnlyFields(t *testing.T) {
	st := NewStore(NewRunState("t-1", "do the thing"))

	if _, err := st.Patch(Patch{Messages: []Message{{Role: "user", Content: "hi", Timestamp: time.Now()}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := st.Patch(Patch{Messages: []Message{{Role: "assistant", Content: "hello", Timestamp: time.Now()}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := st.Get()
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Content != "hi" || got.Messages[1].Content != "hello" {
		t.Fatalf("messages out of order or wrong content: %+v", got.Messages)
	}
}

func TestStore_PatchRejectsDecreasingCurrentGroup(t *testing.T) {
	st := NewStore(NewRunState("t-1", "task"))

	two := 2
	if _, err := st.Patch(Patch{CurrentGroup: &two}); err != nil {
		t.Fatalf("unexpected error advancing group: %v", err)
	}

	one := 1
	_, err := st.Patch(Patch{CurrentGroup: &one})
	if err == nil {
		t.Fatal("expected error decreasing current_group, got nil")
	}
	kerr, ok := err.(*KernelError)
	if !ok || kerr.Kind != ErrorKindInvalidStateUpdate {
		t.Fatalf("expected ErrorKindInvalidStateUpdate, got %v", err)
	}
}

func TestStore_GetReturnsIndependentCopy(t *testing.T) {
	st := NewStore(NewRunState("t-1", "task"))
	snap := st.Get()
	snap.Context["mutated"] = true
	snap.Messages = append(snap.Messages, Message{Role: "user", Content: "leaked"})

	fresh := st.Get()
	if _, ok := fresh.Context["mutated"]; ok {
		t.Fatal("mutation of a returned snapshot leaked into the store")
	}
	if len(fresh.Messages) != 0 {
		t.Fatal("message append to a returned snapshot leaked into the store")
	}
}

func TestStore_ResultsMergeKeyed(t *testing.T) {
	st := NewStore(NewRunState("t-1", "task"))

	_, err := st.Patch(Patch{Results: map[string]AgentResult{
		"search": {Status: ResultSuccess, Timestamp: time.Now()},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = st.Patch(Patch{Results: map[string]AgentResult{
		"analytics": {Status: ResultSuccess, Timestamp: time.Now()},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := st.Get()
	if len(got.Results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(got.Results), got.Results)
	}
}

func TestAgentSet_SortedIsDeterministic(t *testing.T) {
	s := NewAgentSet("compliance", "analytics", "search")
	got := s.Sorted()
	want := []string{"analytics", "compliance", "search"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sorted() = %v, want %v", got, want)
		}
	}
}
