// Package agents provides deterministic reference implementations of the
// domain agents named by the planner's static agent/intent tables: search,
// analytics, comparator, predictor, document and compliance. They exist to
// exercise the kernel end to end and in tests; real deployments plug in
// their own agents behind the same core.Agent contract.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// deterministic is a small core.Agent that writes a fixed-shape result and
// optionally sets context flags the router's declarative rules key off.
type deterministic struct {
	name       string
	summary    string
	setContext map[string]any
}

func (d deterministic) Name() string { return d.name }

func (d deterministic) Invoke(ctx context.Context, snap *core.RunState, emit core.EventEmitter) (core.Patch, error) {
	emit.Emit(core.AgentEvent{Agent: d.name, Message: "starting " + d.name, Status: "processing"})

	select {
	case <-ctx.Done():
		return core.Patch{}, ctx.Err()
	default:
	}

	emit.Emit(core.AgentEvent{Agent: d.name, Message: d.summary, Status: "completed", ProgressPercent: 100})

	return core.Patch{
		Results: map[string]core.AgentResult{
			d.name: {
				Status:    core.ResultSuccess,
				Timestamp: time.Now(),
				Message:   d.summary,
			},
		},
		Context: d.setContext,
	}, nil
}

// Search performs a stand-in retrieval step over the task description.
func Search() core.Agent {
	return deterministic{
		name:    "search",
		summary: "retrieved candidate documents",
	}
}

// Analytics performs a stand-in aggregation/statistics step.
func Analytics() core.Agent {
	return deterministic{
		name:    "analytics",
		summary: "computed summary statistics",
	}
}

// Comparator performs a stand-in side-by-side comparison over analytics output.
func Comparator() core.Agent {
	return deterministic{
		name:    "comparator",
		summary: "compared candidates against baseline",
	}
}

// Predictor performs a stand-in forecast/projection step.
func Predictor() core.Agent {
	return deterministic{
		name:    "predictor",
		summary: "produced a forecast",
	}
}

// Document renders a stand-in report and signals whether it needs a
// compliance pass, driving the router's document -> compliance rule.
func Document(requiresCompliance bool) core.Agent {
	ctx := map[string]any{}
	if requiresCompliance {
		ctx["requires_compliance"] = true
	}
	return deterministic{
		name:       "document",
		summary:    "rendered report draft",
		setContext: ctx,
	}
}

// Compliance validates a document draft. If it flags rework, it also names
// the rework target agent via context.rework_target, driving the router's
// compliance -> rework_target rule.
type Compliance struct {
	NeedsRework  bool
	ReworkTarget string
}

func (c Compliance) Name() string { return "compliance" }

func (c Compliance) Invoke(ctx context.Context, snap *core.RunState, emit core.EventEmitter) (core.Patch, error) {
	emit.Emit(core.AgentEvent{Agent: "compliance", Message: "checking draft against policy", Status: "processing"})

	status := "compliant"
	patchCtx := map[string]any{}
	if c.NeedsRework {
		status = "flagged for rework"
		patchCtx["needs_rework"] = true
		if c.ReworkTarget != "" {
			patchCtx["rework_target"] = c.ReworkTarget
		}
	}

	emit.Emit(core.AgentEvent{Agent: "compliance", Message: fmt.Sprintf("compliance check: %s", status), Status: "completed", ProgressPercent: 100})

	return core.Patch{
		Results: map[string]core.AgentResult{
			"compliance": {Status: core.ResultSuccess, Timestamp: time.Now(), Message: status},
		},
		Context: patchCtx,
	}, nil
}

// RegisterAll registers every reference agent's default configuration into
// registry, useful for demos and integration tests.
func RegisterAll(registry *core.Registry) {
	registry.Register(Search())
	registry.Register(Analytics())
	registry.Register(Comparator())
	registry.Register(Predictor())
	registry.Register(Document(false))
	registry.Register(Compliance{})
}
