package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// countingAgent fails failuresBeforeSuccess times, then succeeds.
type countingAgent struct {
	name                string
	failuresBeforeSuccess int
	calls               int
}

func (a *countingAgent) Name() string { return a.name }

func (a *countingAgent) Invoke(_ context.Context, _ *core.RunState, _ core.EventEmitter) (core.Patch, error) {
	a.calls++
	if a.calls <= a.failuresBeforeSuccess {
		return core.Patch{}, fmt.Errorf("attempt %d failed", a.calls)
	}
	return core.Patch{Results: map[string]core.AgentResult{
		a.name: {Status: core.ResultSuccess, Timestamp: time.Now()},
	}}, nil
}

func fastPolicy() Policy {
	return Policy{Type: BackoffExponential, Base: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxRetries: 3}
}

func TestWrapper_RetriesThenSucceeds(t *testing.T) {
	agent := &countingAgent{name: "analytics", failuresBeforeSuccess: 2}
	w := NewWrapper(fastPolicy(), NewRegistry(5, time.Minute), time.Second)
	snap := core.NewRunState("t-1", "task")

	patch, err := w.Invoke(context.Background(), agent, snap, core.NoopEmitter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patch.Errors) != 2 {
		t.Fatalf("expected exactly 2 error entries, got %d: %+v", len(patch.Errors), patch.Errors)
	}
	if patch.Results["analytics"].Status != core.ResultSuccess {
		t.Fatalf("expected eventual success, got %+v", patch.Results["analytics"])
	}
}

func TestWrapper_ExhaustionProducesFallback(t *testing.T) {
	agent := &countingAgent{name: "analytics", failuresBeforeSuccess: 99}
	w := NewWrapper(fastPolicy(), NewRegistry(5, time.Minute), time.Second)
	snap := core.NewRunState("t-1", "task")

	patch, err := w.Invoke(context.Background(), agent, snap, core.NoopEmitter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.Results["analytics"].Status != core.ResultFallback {
		t.Fatalf("expected fallback status, got %+v", patch.Results["analytics"])
	}
	if patch.Context["analytics_fallback_used"] != true || patch.Context["analytics_needs_retry"] != true {
		t.Fatalf("expected fallback context flags set, got %+v", patch.Context)
	}
	if len(patch.Errors) != 3 {
		t.Fatalf("expected MAX_RETRIES=3 error entries, got %d", len(patch.Errors))
	}
}

func TestBreaker_OpensAfterThresholdAndShortCircuits(t *testing.T) {
	agent := &countingAgent{name: "search", failuresBeforeSuccess: 99}
	registry := NewRegistry(2, time.Hour)
	w := NewWrapper(Policy{Type: BackoffExponential, Base: time.Millisecond, MaxDelay: time.Millisecond, MaxRetries: 1}, registry, time.Second)
	snap := core.NewRunState("t-1", "task")

	// Two invocations, each exhausting its single retry attempt, trips the breaker.
	if _, err := w.Invoke(context.Background(), agent, snap, core.NoopEmitter); err != nil {
		t.Fatalf("invoke 1: %v", err)
	}
	if _, err := w.Invoke(context.Background(), agent, snap, core.NoopEmitter); err != nil {
		t.Fatalf("invoke 2: %v", err)
	}

	callsBefore := agent.calls
	patch, err := w.Invoke(context.Background(), agent, snap, core.NoopEmitter)
	if err != nil {
		t.Fatalf("invoke 3: %v", err)
	}
	if agent.calls != callsBefore {
		t.Fatalf("expected breaker to short-circuit without calling the agent body, calls went %d -> %d", callsBefore, agent.calls)
	}
	if patch.Results["search"].Status != core.ResultFallback {
		t.Fatalf("expected fallback from open breaker, got %+v", patch.Results["search"])
	}
}
