package plan

import (
	"context"
	"testing"

	"github.com/hupe1980/agentkernel/core"
)

func TestSupervisor_SingleAgentPlan(t *testing.T) {
	sup := NewSupervisor(nil)
	snap := core.NewRunState("t-1", "analyze last quarter sales")

	patch := sup.Plan(context.Background(), snap)

	if len(patch.ExecutionPlan) != 1 || patch.ExecutionPlan[0] != "analytics" {
		t.Fatalf("expected plan [analytics], got %v", patch.ExecutionPlan)
	}
	if patch.Context["planner_degraded"] != nil {
		t.Fatalf("expected a non-degraded plan, got context %+v", patch.Context)
	}
}

func TestSupervisor_ParallelIndependentIntents(t *testing.T) {
	sup := NewSupervisor(nil)
	snap := core.NewRunState("t-1", "find competitors and analyze our revenue")

	patch := sup.Plan(context.Background(), snap)

	want := core.NewAgentSet("search", "analytics")
	got := core.NewAgentSet(patch.ExecutionPlan...)
	if len(got) != len(want) || !got.Has("search") || !got.Has("analytics") {
		t.Fatalf("expected plan {search, analytics}, got %v", patch.ExecutionPlan)
	}
}

func TestSupervisor_DegradesOnUnclassifiableInput(t *testing.T) {
	sup := NewSupervisor(nil)
	snap := core.NewRunState("t-1", "asdkjhasdkjh qwoiuqwoiu")

	patch := sup.Plan(context.Background(), snap)

	if len(patch.ExecutionPlan) != 1 || patch.ExecutionPlan[0] != defaultAgent {
		t.Fatalf("expected minimal fallback plan [%s], got %v", defaultAgent, patch.ExecutionPlan)
	}
	if patch.Context["planner_degraded"] != true {
		t.Fatalf("expected planner_degraded=true, got %+v", patch.Context)
	}
}

func TestSupervisor_AugmentsWithoutShrinking(t *testing.T) {
	sup := NewSupervisor(nil)
	snap := core.NewRunState("t-1", "check compliance")
	snap.ExecutionPlan = []string{"search", "document"}
	snap.Results = map[string]core.AgentResult{
		"search":   {Status: core.ResultSuccess},
		"document": {Status: core.ResultSuccess},
	}

	patch := sup.Plan(context.Background(), snap)

	got := core.NewAgentSet(patch.ExecutionPlan...)
	if !got.Has("search") || !got.Has("document") || !got.Has("compliance") {
		t.Fatalf("expected augmented plan to retain search+document and add compliance, got %v", patch.ExecutionPlan)
	}
	if patch.ExecutionPlan[0] != "search" || patch.ExecutionPlan[1] != "document" {
		t.Fatalf("expected existing agents to keep their order, got %v", patch.ExecutionPlan)
	}
}

func TestSupervisor_ComplianceDependsOnDocument(t *testing.T) {
	sup := NewSupervisor(nil)
	snap := core.NewRunState("t-1", "search info, write doc, check compliance")

	patch := sup.Plan(context.Background(), snap)

	deps := patch.Dependencies["compliance"]
	if !deps.Has("document") {
		t.Fatalf("expected compliance to depend on document, got deps %+v", deps)
	}
}
