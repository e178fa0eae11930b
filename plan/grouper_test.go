package plan

import (
	"testing"

	"github.com/hupe1980/agentkernel/core"
)

func TestLevelize_DependencyChain(t *testing.T) {
	execPlan := []string{"search", "document", "compliance"}
	deps := staticDependencies(execPlan)

	groups, err := Levelize(execPlan, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 sequential groups, got %d: %+v", len(groups), groups)
	}
	if !groups[0].Has("search") || !groups[1].Has("document") || !groups[2].Has("compliance") {
		t.Fatalf("unexpected group order: %+v", groups)
	}
}

func TestLevelize_ParallelIndependentAgents(t *testing.T) {
	execPlan := []string{"search", "analytics"}
	deps := staticDependencies(execPlan)

	groups, err := Levelize(execPlan, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected a single parallel group, got %d: %+v", len(groups), groups)
	}
	if !groups[0].Has("search") || !groups[0].Has("analytics") {
		t.Fatalf("expected both agents in the single group, got %+v", groups[0])
	}
}

func TestLevelize_DetectsCycle(t *testing.T) {
	execPlan := []string{"a", "b"}
	deps := map[string]core.AgentSet{
		"a": core.NewAgentSet("b"),
		"b": core.NewAgentSet("a"),
	}

	_, err := Levelize(execPlan, deps)
	if err == nil {
		t.Fatal("expected a cyclic_plan error, got nil")
	}
	kerr, ok := err.(*core.KernelError)
	if !ok || kerr.Kind != core.ErrorKindCyclicPlan {
		t.Fatalf("expected ErrorKindCyclicPlan, got %v", err)
	}
}
