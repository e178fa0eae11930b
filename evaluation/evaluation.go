// Package evaluation provides programmatic checks for the quantified
// invariants a run must satisfy, so test suites can assert them directly
// against a sequence of snapshots rather than by ad-hoc field inspection.
package evaluation

import (
	"fmt"

	"github.com/hupe1980/agentkernel/core"
)

// Result reports the outcome of one check: nil Violations means the
// property held.
type Result struct {
	Property   string
	Violations []string
}

// OK reports whether the check found no violations.
func (r Result) OK() bool { return len(r.Violations) == 0 }

// CheckAppendOnly verifies the state append-only law: across a chronological
// sequence of snapshots, messages/progress/errors only ever grow, and each
// earlier snapshot's sequence is a prefix of every later one's.
func CheckAppendOnly(snapshots []*core.RunState) Result {
	res := Result{Property: "state_append_only"}
	for i := 1; i < len(snapshots); i++ {
		prev, cur := snapshots[i-1], snapshots[i]
		if !isMessagePrefix(prev.Messages, cur.Messages) {
			res.Violations = append(res.Violations, fmt.Sprintf("messages not a prefix between snapshot %d and %d", i-1, i))
		}
		if len(cur.Progress) < len(prev.Progress) {
			res.Violations = append(res.Violations, fmt.Sprintf("progress shrank between snapshot %d and %d", i-1, i))
		}
		if len(cur.Errors) < len(prev.Errors) {
			res.Violations = append(res.Violations, fmt.Sprintf("errors shrank between snapshot %d and %d", i-1, i))
		}
	}
	return res
}

func isMessagePrefix(prev, cur []core.Message) bool {
	if len(prev) > len(cur) {
		return false
	}
	for i, m := range prev {
		if cur[i] != m {
			return false
		}
	}
	return true
}

// CheckLevelization verifies the group levelization law: no agent in a later
// group depends on an agent placed in an equal-or-later group.
func CheckLevelization(groups []core.AgentSet, dependencies map[string]core.AgentSet) Result {
	res := Result{Property: "group_levelization"}
	groupIndex := map[string]int{}
	for i, g := range groups {
		for agent := range g {
			groupIndex[agent] = i
		}
	}
	for agent, deps := range dependencies {
		agentGroup, ok := groupIndex[agent]
		if !ok {
			continue
		}
		for dep := range deps {
			depGroup, ok := groupIndex[dep]
			if !ok {
				continue
			}
			if depGroup >= agentGroup {
				res.Violations = append(res.Violations, fmt.Sprintf("%s (group %d) depends on %s (group %d), expected an earlier group", agent, agentGroup, dep, depGroup))
			}
		}
	}
	return res
}

// CheckSingleCompletion verifies that, at termination, every agent named in
// the execution plan has exactly one terminal result of status success or
// fallback.
func CheckSingleCompletion(snap *core.RunState) Result {
	res := Result{Property: "single_completion"}
	for _, agent := range snap.ExecutionPlan {
		result, ok := snap.Results[agent]
		if !ok {
			res.Violations = append(res.Violations, fmt.Sprintf("%s has no terminal result", agent))
			continue
		}
		if result.Status != core.ResultSuccess && result.Status != core.ResultFallback {
			res.Violations = append(res.Violations, fmt.Sprintf("%s terminal result has status %q, expected success or fallback", agent, result.Status))
		}
	}
	return res
}

// CheckRetryBound verifies that no agent accumulated more error entries than
// maxRetries for its single logical invocation.
func CheckRetryBound(snap *core.RunState, maxRetries int) Result {
	res := Result{Property: "retry_bound"}
	counts := map[string]int{}
	for _, e := range snap.Errors {
		counts[e.Agent]++
	}
	for agent, count := range counts {
		if count > maxRetries {
			res.Violations = append(res.Violations, fmt.Sprintf("%s accumulated %d error entries, exceeds MAX_RETRIES=%d", agent, count, maxRetries))
		}
	}
	return res
}

// CheckStateVisibility supplements §8's literal properties: every agent
// invoked within a run must observe, in its snapshot, the results of every
// agent from a strictly earlier parallel group (within-group visibility is
// unspecified and not checked here).
func CheckStateVisibility(groups []core.AgentSet, observedAt map[string]*core.RunState) Result {
	res := Result{Property: "state_visibility"}
	groupIndex := map[string]int{}
	for i, g := range groups {
		for agent := range g {
			groupIndex[agent] = i
		}
	}
	for agent, snap := range observedAt {
		agentGroup, ok := groupIndex[agent]
		if !ok {
			continue
		}
		for other, otherGroup := range groupIndex {
			if otherGroup >= agentGroup {
				continue
			}
			if _, ok := snap.Results[other]; !ok {
				res.Violations = append(res.Violations, fmt.Sprintf("%s (group %d) did not observe %s's result from group %d", agent, agentGroup, other, otherGroup))
			}
		}
	}
	return res
}
