package retry

import (
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// fallbackPatch builds the well-typed per-agent fallback record and its
// accompanying progress entry and context flags, per §4.7's Fallback record
// shape.
func fallbackPatch(agent, message string) core.Patch {
	now := time.Now()
	return core.Patch{
		Results: map[string]core.AgentResult{
			agent: {Status: core.ResultFallback, Timestamp: now, Message: message},
		},
		Progress: []core.ProgressEntry{{
			Agent:     agent,
			Action:    core.ProgressFallback,
			Timestamp: now,
		}},
		Context: map[string]any{
			agent + "_fallback_used": true,
			agent + "_needs_retry":   true,
		},
	}
}
