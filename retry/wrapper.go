package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// Wrapper is the sole caller of agent.Invoke; it enforces the breaker check,
// per-attempt timeout, retry-with-backoff, and fallback synthesis described
// in §4.7. Agent-scoped errors never escape Invoke as a Go error — they are
// always resolved into a Patch (either the agent's own success patch or a
// synthesized fallback).
type Wrapper struct {
	Policy       Policy
	Breakers     *Registry
	AgentTimeout time.Duration // default 60s
}

// NewWrapper builds a Wrapper from the given policy, breaker registry and
// per-agent timeout.
func NewWrapper(policy Policy, breakers *Registry, agentTimeout time.Duration) *Wrapper {
	return &Wrapper{Policy: policy, Breakers: breakers, AgentTimeout: agentTimeout}
}

// Invoke runs agent against snap, applying the breaker check, retries and
// fallback synthesis. The returned Patch is always safe to apply to the
// store; the returned error is non-nil only for a context cancellation that
// interrupted a retry sleep.
func (w *Wrapper) Invoke(ctx context.Context, agent core.Agent, snap *core.RunState, emit core.EventEmitter) (core.Patch, error) {
	name := agent.Name()
	breaker := w.Breakers.For(name)

	// 1. Breaker check.
	if !breaker.Allow() {
		return fallbackPatch(name, fmt.Sprintf("circuit breaker open for %q", name)), nil
	}

	maxRetries := w.Policy.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	timeout := w.AgentTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	started := []core.ProgressEntry{{Agent: name, Action: core.ProgressStarted, Timestamp: time.Now()}}
	var accumulatedErrors []core.ErrorEntry

	for attempt := 1; attempt <= maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		patch, err := agent.Invoke(attemptCtx, snap, emit)
		timedOut := attemptCtx.Err() != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil {
			// 2. Success: reset breaker, return the agent's own patch with
			// the started entry prepended, a completed entry appended, and
			// the errors of any earlier failed attempts attached.
			breaker.RecordSuccess()
			completed := []core.ProgressEntry{{Agent: name, Action: core.ProgressCompleted, Timestamp: time.Now()}}
			progress := append(append([]core.ProgressEntry(nil), started...), patch.Progress...)
			patch.Progress = append(progress, completed...)
			patch.Errors = accumulatedErrors
			return patch, nil
		}

		kind := core.ErrorKindAgentFailure
		if timedOut {
			kind = core.ErrorKindAgentTimeout
		}
		accumulatedErrors = append(accumulatedErrors, core.ErrorEntry{
			Agent:        name,
			ErrorMessage: err.Error(),
			Attempt:      attempt,
			Timestamp:    time.Now(),
			Kind:         kind,
		})

		if attempt == maxRetries {
			break
		}

		// 3. Sleep before the next attempt, honoring cancellation.
		select {
		case <-ctx.Done():
			return core.Patch{Progress: started, Errors: accumulatedErrors}, ctx.Err()
		case <-time.After(w.Policy.Delay(attempt - 1)):
		}
	}

	// 4. Exhaustion: count one breaker failure for the whole invocation,
	// synthesize a fallback.
	breaker.RecordFailure()
	fb := fallbackPatch(name, fmt.Sprintf("%q exhausted %d attempts", name, maxRetries))
	fb.Progress = append(append([]core.ProgressEntry(nil), started...), fb.Progress...)
	fb.Errors = accumulatedErrors
	return fb, nil
}
