package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// intentAgents maps each intent to the downstream agents it requires, in
// canonical (declared) order. Distinct intents may name the same agent;
// Supervisor deduplicates while preserving first-seen order.
var intentAgents = map[Intent][]string{
	IntentSearch:   {"search"},
	IntentAnalyze:  {"analytics"},
	IntentCompare:  {"analytics", "comparator"},
	IntentPredict:  {"predictor"},
	IntentGenerate: {"document"},
	IntentValidate: {"compliance"},
}

// canonicalAgentOrder is the fixed order used to break ties when multiple
// intents contribute to the same plan; it is also §4.9's "canonical order"
// used later by the streaming coordinator, since it equals insertion order
// into ExecutionPlan.
var canonicalAgentOrder = []string{"search", "analytics", "comparator", "predictor", "document", "compliance"}

// staticDependencies is the fixed dependency table §4.4 refers to: compliance
// depends on document; document optionally depends on analytics/search when
// those agents are present in the plan.
func staticDependencies(plan []string) map[string]core.AgentSet {
	present := core.NewAgentSet(plan...)
	deps := map[string]core.AgentSet{}
	for _, agent := range plan {
		deps[agent] = core.AgentSet{}
	}
	if present.Has("compliance") && present.Has("document") {
		deps["compliance"]["document"] = struct{}{}
	}
	if present.Has("document") {
		for _, upstream := range []string{"analytics", "search"} {
			if present.Has(upstream) {
				deps["document"][upstream] = struct{}{}
			}
		}
	}
	if present.Has("comparator") && present.Has("analytics") {
		deps["comparator"]["analytics"] = struct{}{}
	}
	return deps
}

// defaultAgent is the single, most conservative agent the supervisor falls
// back to when classification yields nothing usable.
const defaultAgent = "search"

// Supervisor produces an execution plan and dependency map from the current
// snapshot's task description, per §4.4.
type Supervisor struct {
	Primary  Classifier // optional LLM-backed classifier, may be nil
	Fallback Classifier // always available; defaults to HeuristicClassifier if nil
}

// NewSupervisor builds a Supervisor with the given optional primary
// classifier; Fallback always defaults to HeuristicClassifier.
func NewSupervisor(primary Classifier) *Supervisor {
	return &Supervisor{Primary: primary, Fallback: HeuristicClassifier{}}
}

// Plan classifies snap.TaskDescription and returns the patch the kernel
// should apply. It never returns an error: classification failure degrades
// to a minimal plan rather than failing the run, per §4.4's Failure clause.
func (s *Supervisor) Plan(ctx context.Context, snap *core.RunState) core.Patch {
	intents, degraded := s.classify(ctx, snap.TaskDescription)

	newPlanAgents := agentsFor(intents)
	if len(newPlanAgents) == 0 {
		newPlanAgents = []string{defaultAgent}
		degraded = true
	}

	finalPlan := augment(snap.ExecutionPlan, newPlanAgents)
	deps := staticDependencies(finalPlan)

	msg := core.Message{
		Role:      "system",
		Content:   fmt.Sprintf("supervisor: plan=%v degraded=%v", finalPlan, degraded),
		Timestamp: time.Now(),
		Agent:     "supervisor",
	}

	patch := core.Patch{
		ExecutionPlan: finalPlan,
		Dependencies:  deps,
		Messages:      []core.Message{msg},
		Progress: []core.ProgressEntry{{
			Agent:     "supervisor",
			Action:    core.ProgressCompleted,
			Timestamp: time.Now(),
		}},
	}
	// current_group only resets on a genuinely fresh plan. A re-plan at a
	// group boundary (the router's default_to_supervisor case) must leave it
	// untouched: Store.Patch rejects any patch that would move current_group
	// backwards, and the caller is already sitting at the next unexecuted
	// group by the time it re-plans.
	if len(snap.ParallelGroups) == 0 {
		zero := 0
		patch.CurrentGroup = &zero
	}

	if degraded {
		patch.Context = map[string]any{"planner_degraded": true}
	}
	return patch
}

// classify tries Primary first (if set), falling back to Fallback (or a
// zero-value HeuristicClassifier) on error, timeout, or an empty result.
func (s *Supervisor) classify(ctx context.Context, taskDescription string) ([]Intent, bool) {
	if s.Primary != nil {
		if intents, err := s.Primary.Classify(ctx, taskDescription); err == nil && len(intents) > 0 {
			return intents, false
		}
	}

	fallback := s.Fallback
	if fallback == nil {
		fallback = HeuristicClassifier{}
	}
	intents, err := fallback.Classify(ctx, taskDescription)
	if err != nil || len(intents) == 0 {
		return nil, true
	}
	return intents, false
}

// agentsFor maps intents to a deduplicated, canonically ordered agent list.
func agentsFor(intents []Intent) []string {
	want := map[string]bool{}
	for _, intent := range intents {
		for _, agent := range intentAgents[intent] {
			want[agent] = true
		}
	}
	var out []string
	for _, agent := range canonicalAgentOrder {
		if want[agent] {
			out = append(out, agent)
		}
	}
	return out
}

// augment merges newAgents into existing, preserving existing's order and
// appending any newAgents not already present — the augment-only semantics
// §4.4's re-planning hook requires: agents already in the plan are never
// dropped by a later supervisor invocation.
func augment(existing []string, newAgents []string) []string {
	if len(existing) == 0 {
		return newAgents
	}
	seen := core.NewAgentSet(existing...)
	out := append([]string(nil), existing...)
	for _, agent := range newAgents {
		if !seen.Has(agent) {
			out = append(out, agent)
			seen[agent] = struct{}{}
		}
	}
	return out
}
