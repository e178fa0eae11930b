package plan

import (
	"sort"

	"github.com/hupe1980/agentkernel/core"
)

// Levelize converts (executionPlan, dependencies) into an ordered sequence
// of parallel-safe groups via Kahn-style topological leveling, per §4.5.
// Ties within a level are broken by the canonical order of agent names
// (lexical order of executionPlan's own membership), though the executor
// treats each returned level as an unordered set.
func Levelize(executionPlan []string, dependencies map[string]core.AgentSet) ([]core.AgentSet, error) {
	remaining := core.NewAgentSet(executionPlan...)
	unresolved := make(map[string]core.AgentSet, len(executionPlan))
	for _, agent := range executionPlan {
		deps := dependencies[agent]
		filtered := core.AgentSet{}
		for dep := range deps {
			if remaining.Has(dep) {
				filtered[dep] = struct{}{}
			}
		}
		unresolved[agent] = filtered
	}

	var groups []core.AgentSet
	for len(remaining) > 0 {
		ready := readyAgents(remaining, unresolved)
		if len(ready) == 0 {
			return nil, core.NewKernelError(core.ErrorKindCyclicPlan, "no agent has all dependencies satisfied among %v", remaining.Sorted())
		}

		group := core.NewAgentSet(ready...)
		groups = append(groups, group)

		for _, agent := range ready {
			delete(remaining, agent)
		}
		for agent, deps := range unresolved {
			for _, done := range ready {
				delete(deps, done)
			}
			unresolved[agent] = deps
		}
	}

	return groups, nil
}

// readyAgents returns, in sorted order, every remaining agent whose
// unresolved dependency set is empty.
func readyAgents(remaining core.AgentSet, unresolved map[string]core.AgentSet) []string {
	var ready []string
	for agent := range remaining {
		if len(unresolved[agent]) == 0 {
			ready = append(ready, agent)
		}
	}
	sort.Strings(ready)
	return ready
}
