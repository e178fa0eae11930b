package agentkernel

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/agentkernel/agents"
	"github.com/hupe1980/agentkernel/kernel"
)

func TestAgentKernel_InvokeSyncRunsRegisteredAgents(t *testing.T) {
	ak := New(func(o *Options) {
		o.Config = kernel.DefaultConfig()
		o.Config.RunDeadline = 5 * time.Second
	})
	ak.RegisterAgent(agents.Search())
	ak.RegisterAgent(agents.Analytics())

	result, err := ak.InvokeSync(context.Background(), "", "find competitors and analyze our revenue")
	if err != nil {
		t.Fatalf("InvokeSync: %v", err)
	}
	if !result.IsComplete {
		t.Fatalf("expected run to complete, got %+v", result)
	}
	if _, ok := result.Results["search"]; !ok {
		t.Fatalf("expected a search result, got %+v", result.Results)
	}
	if _, ok := result.Results["analytics"]; !ok {
		t.Fatalf("expected an analytics result, got %+v", result.Results)
	}
}

func TestAgentKernel_InvokeStreamsExecutionPlanEvent(t *testing.T) {
	ak := New(func(o *Options) {
		o.Config = kernel.DefaultConfig()
		o.Config.RunDeadline = 5 * time.Second
	})
	ak.RegisterAgent(agents.Search())

	events, outcome, err := ak.Invoke(context.Background(), "", "search for filings")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	sawExecutionPlan := false
	for ev := range events {
		if ev.Type == "execution_plan" {
			sawExecutionPlan = true
		}
	}
	if !sawExecutionPlan {
		t.Fatal("expected an execution_plan event on the stream")
	}

	final := <-outcome
	if final.err != nil {
		t.Fatalf("unexpected error: %v", final.err)
	}
	if !final.result.IsComplete {
		t.Fatalf("expected completed run, got %+v", final.result)
	}
}
