package router

import (
	"testing"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

func TestDecide_CriticalFailureGuardTerminatesAfterThreeErrors(t *testing.T) {
	snap := core.NewRunState("t-1", "task")
	snap.CurrentAgent = "search"
	snap.Errors = []core.ErrorEntry{
		{Agent: "search", Kind: core.ErrorKindAgentFailure, ErrorMessage: "1", Timestamp: time.Now()},
		{Agent: "search", Kind: core.ErrorKindAgentFailure, ErrorMessage: "2", Timestamp: time.Now()},
		{Agent: "search", Kind: core.ErrorKindAgentFailure, ErrorMessage: "3", Timestamp: time.Now()},
	}

	got := Decide(snap)
	if got.Next != Terminal {
		t.Fatalf("expected terminal, got %+v", got)
	}
}

func TestDecide_ParallelModeContinuesBeforeLastGroup(t *testing.T) {
	snap := core.NewRunState("t-1", "task")
	snap.ParallelGroups = []core.AgentSet{core.NewAgentSet("search"), core.NewAgentSet("analytics")}
	snap.CurrentGroup = 0

	got := Decide(snap)
	if got.Next != "parallel_executor" {
		t.Fatalf("expected parallel_executor, got %+v", got)
	}
}

func TestDecide_DocumentRoutesToComplianceWhenRequired(t *testing.T) {
	snap := core.NewRunState("t-1", "task")
	snap.CurrentAgent = "document"
	snap.Context["requires_compliance"] = true

	got := Decide(snap)
	if got.Next != "compliance" {
		t.Fatalf("expected compliance, got %+v", got)
	}
}

func TestDecide_ComplianceReworkUsesTargetOverride(t *testing.T) {
	snap := core.NewRunState("t-1", "task")
	snap.CurrentAgent = "compliance"
	snap.Context["needs_rework"] = true
	snap.Context["rework_target"] = "analytics"

	got := Decide(snap)
	if got.Next != "analytics" {
		t.Fatalf("expected analytics, got %+v", got)
	}
}

func TestDecide_ComplianceReworkDefaultsToDocument(t *testing.T) {
	snap := core.NewRunState("t-1", "task")
	snap.CurrentAgent = "compliance"
	snap.Context["needs_rework"] = true

	got := Decide(snap)
	if got.Next != "document" {
		t.Fatalf("expected document, got %+v", got)
	}
}

func TestDecide_PlanCompletionTerminatesWhenAllAgentsHaveResults(t *testing.T) {
	snap := core.NewRunState("t-1", "task")
	snap.CurrentAgent = "search"
	snap.ExecutionPlan = []string{"search"}
	snap.Results["search"] = core.AgentResult{Status: core.ResultSuccess}

	got := Decide(snap)
	if got.Next != Terminal || got.Rule != "plan_completion" {
		t.Fatalf("expected terminal via plan_completion, got %+v", got)
	}
}

func TestDecide_DefaultsToSupervisorWhenNothingElseMatches(t *testing.T) {
	snap := core.NewRunState("t-1", "task")
	snap.CurrentAgent = "search"
	snap.ExecutionPlan = []string{"search", "analytics"}
	snap.Results["search"] = core.AgentResult{Status: core.ResultSuccess}

	got := Decide(snap)
	if got.Next != Supervisor {
		t.Fatalf("expected supervisor, got %+v", got)
	}
}

func TestDecide_IsDeterministic(t *testing.T) {
	snap := core.NewRunState("t-1", "task")
	snap.CurrentAgent = "document"
	snap.Context["requires_compliance"] = true

	first := Decide(snap)
	second := Decide(snap)
	if first != second {
		t.Fatalf("expected deterministic decision, got %+v then %+v", first, second)
	}
}
