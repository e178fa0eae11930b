package evaluation

import (
	"testing"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

func TestCheckAppendOnly_DetectsShrunkenErrors(t *testing.T) {
	s1 := core.NewRunState("t-1", "task")
	s1.Errors = []core.ErrorEntry{{Agent: "search", Timestamp: time.Now()}}
	s2 := core.NewRunState("t-1", "task")

	got := CheckAppendOnly([]*core.RunState{s1, s2})
	if got.OK() {
		t.Fatal("expected a violation when errors shrink between snapshots")
	}
}

func TestCheckAppendOnly_PassesForGrowingSequences(t *testing.T) {
	s1 := core.NewRunState("t-1", "task")
	s1.Messages = []core.Message{{Role: "user", Content: "hi"}}
	s2 := core.NewRunState("t-1", "task")
	s2.Messages = append(append([]core.Message(nil), s1.Messages...), core.Message{Role: "assistant", Content: "hello"})

	got := CheckAppendOnly([]*core.RunState{s1, s2})
	if !got.OK() {
		t.Fatalf("expected no violations, got %v", got.Violations)
	}
}

func TestCheckLevelization_DetectsBackwardDependency(t *testing.T) {
	groups := []core.AgentSet{core.NewAgentSet("document"), core.NewAgentSet("search")}
	deps := map[string]core.AgentSet{"document": core.NewAgentSet("search")}

	got := CheckLevelization(groups, deps)
	if got.OK() {
		t.Fatal("expected a violation: document (group 0) cannot depend on search (group 1)")
	}
}

func TestCheckLevelization_PassesForValidLevelization(t *testing.T) {
	groups := []core.AgentSet{core.NewAgentSet("search"), core.NewAgentSet("document")}
	deps := map[string]core.AgentSet{"document": core.NewAgentSet("search")}

	got := CheckLevelization(groups, deps)
	if !got.OK() {
		t.Fatalf("expected no violations, got %v", got.Violations)
	}
}

func TestCheckSingleCompletion_FlagsMissingResult(t *testing.T) {
	snap := core.NewRunState("t-1", "task")
	snap.ExecutionPlan = []string{"search"}

	got := CheckSingleCompletion(snap)
	if got.OK() {
		t.Fatal("expected a violation for a plan agent with no terminal result")
	}
}

func TestCheckRetryBound_FlagsExceedingMaxRetries(t *testing.T) {
	snap := core.NewRunState("t-1", "task")
	for i := 0; i < 5; i++ {
		snap.Errors = append(snap.Errors, core.ErrorEntry{Agent: "search"})
	}

	got := CheckRetryBound(snap, 3)
	if got.OK() {
		t.Fatal("expected a violation: 5 error entries exceeds MAX_RETRIES=3")
	}
}
