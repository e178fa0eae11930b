package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/agentkernel/agents"
	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/plan"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	registry := core.NewRegistry()
	agents.RegisterAll(registry)

	cfg := DefaultConfig()
	cfg.RunDeadline = 5 * time.Second
	cfg.AgentTimeout = time.Second

	k, err := New(plan.NewSupervisor(nil), registry, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k
}

func TestKernel_RunSingleAgentPlanCompletesToTerminal(t *testing.T) {
	k := newTestKernel(t)

	result, err := k.Run(context.Background(), InvokeRequest{Input: "search for the latest quarterly filings"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.IsComplete {
		t.Fatalf("expected run to complete, got %+v", result)
	}
	if _, ok := result.Results["search"]; !ok {
		t.Fatalf("expected a search result, got %+v", result.Results)
	}
}

func TestKernel_RunMultiAgentPlanRunsAllGroups(t *testing.T) {
	k := newTestKernel(t)

	result, err := k.Run(context.Background(), InvokeRequest{Input: "compare quarterly revenue and predict next quarter, then generate a report"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.IsComplete {
		t.Fatalf("expected run to complete, got %+v", result)
	}
	for _, agent := range []string{"analytics", "comparator", "predictor", "document"} {
		if _, ok := result.Results[agent]; !ok {
			t.Fatalf("expected a result for %q, got %+v", agent, result.Results)
		}
	}
}

func TestKernel_RunRoutesDocumentThroughComplianceWhenRequired(t *testing.T) {
	registry := core.NewRegistry()
	registry.Register(agents.Document(true))
	registry.Register(agents.Compliance{})

	cfg := DefaultConfig()
	cfg.RunDeadline = 5 * time.Second
	cfg.AgentTimeout = time.Second

	k, err := New(plan.NewSupervisor(nil), registry, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := k.Run(context.Background(), InvokeRequest{Input: "draft a quarterly report"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.IsComplete {
		t.Fatalf("expected run to complete, got %+v", result)
	}
	if _, ok := result.Results["document"]; !ok {
		t.Fatalf("expected a document result, got %+v", result.Results)
	}
	if _, ok := result.Results["compliance"]; !ok {
		t.Fatalf("expected the router to schedule and run compliance, got %+v", result.Results)
	}
}

func TestKernel_ResumeReturnsMostRecentCheckpointForCompletedRun(t *testing.T) {
	k := newTestKernel(t)

	first, err := k.Run(context.Background(), InvokeRequest{Input: "search for filings"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	resumed, err := k.Resume(context.Background(), first.ThreadID, nil)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.ThreadID != first.ThreadID {
		t.Fatalf("expected resumed thread_id %q, got %q", first.ThreadID, resumed.ThreadID)
	}
	if !resumed.IsComplete {
		t.Fatalf("expected the resumed run to already be complete, got %+v", resumed)
	}
	if _, ok := resumed.Results["search"]; !ok {
		t.Fatalf("expected the completed search result to survive resume, got %+v", resumed.Results)
	}
}

func TestKernel_ResumeErrorsWithoutAnyCheckpoint(t *testing.T) {
	k := newTestKernel(t)

	if _, err := k.Resume(context.Background(), "no-such-thread", nil); err == nil {
		t.Fatal("expected Resume to error for a thread with no checkpoints")
	}
}

func TestKernel_RunPersistsAndResumesByThreadID(t *testing.T) {
	k := newTestKernel(t)

	first, err := k.Run(context.Background(), InvokeRequest{Input: "search for filings"}, nil)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second, err := k.Run(context.Background(), InvokeRequest{Input: "now analyze them", ThreadID: first.ThreadID}, nil)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.ThreadID != first.ThreadID {
		t.Fatalf("expected resumed run to keep thread_id %q, got %q", first.ThreadID, second.ThreadID)
	}
	if _, ok := second.Results["analytics"]; !ok {
		t.Fatalf("expected an analytics result on resume, got %+v", second.Results)
	}
}
