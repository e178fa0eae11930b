// Package router implements the router (C8): a pure decision function that,
// given a run snapshot, decides where control flows next: on to the next
// parallel group, along a declarative rule to a specific agent, back
// to the supervisor for re-planning, or to a terminal state.
package router

import "github.com/hupe1980/agentkernel/core"

// Supervisor is the sentinel next-node name meaning "route back to the
// supervisor for re-planning".
const Supervisor = "supervisor"

// Terminal is the sentinel next-node name meaning "the run is complete".
const Terminal = ""

// criticalFailureThreshold is the number of error entries against a single
// agent that trips the critical-failure guard.
const criticalFailureThreshold = 3

// rule pairs a declarative condition with the next-node it selects.
type rule struct {
	name string
	when func(snap *core.RunState) bool
	next func(snap *core.RunState) string
}

var declarativeRules = []rule{
	{
		name: "document_requires_compliance",
		when: func(s *core.RunState) bool {
			return s.CurrentAgent == "document" && truthy(s.Context["requires_compliance"])
		},
		next: func(*core.RunState) string { return "compliance" },
	},
	{
		name: "compliance_needs_rework",
		when: func(s *core.RunState) bool {
			return s.CurrentAgent == "compliance" && truthy(s.Context["needs_rework"])
		},
		next: func(s *core.RunState) string {
			if target, ok := s.Context["rework_target"].(string); ok && target != "" {
				return target
			}
			return "document"
		},
	},
	{
		name: "analytics_search_needed",
		when: func(s *core.RunState) bool {
			return s.CurrentAgent == "analytics" && truthy(s.Context["search_needed"])
		},
		next: func(*core.RunState) string { return "search" },
	},
	{
		name: "search_document_ready",
		when: func(s *core.RunState) bool {
			return s.CurrentAgent == "search" && truthy(s.Context["document_ready"])
		},
		next: func(*core.RunState) string { return "document" },
	},
}

// Decision is the outcome of Decide: the next node to route to (or Terminal)
// plus the name of the rule that produced it, for logging.
type Decision struct {
	Next string
	Rule string
}

// Decide is a pure function of snap; given the same snapshot it always
// returns the same Decision.
func Decide(snap *core.RunState) Decision {
	if criticalFailureCount(snap) >= criticalFailureThreshold {
		return Decision{Next: Terminal, Rule: "critical_failure_guard"}
	}

	if len(snap.ParallelGroups) > 0 && snap.CurrentGroup < len(snap.ParallelGroups)-1 {
		return Decision{Next: "parallel_executor", Rule: "parallel_mode_continuation"}
	}

	for _, r := range declarativeRules {
		if r.when(snap) {
			return Decision{Next: r.next(snap), Rule: r.name}
		}
	}

	if planComplete(snap) {
		return Decision{Next: Terminal, Rule: "plan_completion"}
	}

	return Decision{Next: Supervisor, Rule: "default_to_supervisor"}
}

func criticalFailureCount(snap *core.RunState) int {
	count := 0
	for _, e := range snap.Errors {
		if e.Agent == snap.CurrentAgent {
			count++
		}
	}
	return count
}

func planComplete(snap *core.RunState) bool {
	if len(snap.ExecutionPlan) == 0 {
		return false
	}
	for _, agent := range snap.ExecutionPlan {
		if _, ok := snap.Results[agent]; !ok {
			return false
		}
	}
	return true
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
