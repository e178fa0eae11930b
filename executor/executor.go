// Package executor implements the bounded parallel executor (C6): it runs
// one parallel group at a time, invoking every member agent (through the
// retry wrapper) concurrently under a semaphore, merging results back into
// the shared store as they settle.
package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/logging"
	"github.com/hupe1980/agentkernel/retry"
	"github.com/hupe1980/agentkernel/stream"
)

// Invoker is the narrow interface Executor needs from retry.Wrapper,
// declared here so tests can substitute a fake without pulling in the retry
// package's internals.
type Invoker interface {
	Invoke(ctx context.Context, agent core.Agent, snap *core.RunState, emit core.EventEmitter) (core.Patch, error)
}

var _ Invoker = (*retry.Wrapper)(nil)

// Executor runs one parallel group of agents at a time.
type Executor struct {
	Registry            *core.Registry
	Invoker             Invoker
	MaxConcurrent       int   // default 3
	MemDeltaThresholdMB int64 // default 100
	Logger              logging.Logger
}

// New builds an Executor with the given collaborators and defaults filled in.
func New(registry *core.Registry, invoker Invoker, maxConcurrent int, logger logging.Logger) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Executor{
		Registry:            registry,
		Invoker:             invoker,
		MaxConcurrent:       maxConcurrent,
		MemDeltaThresholdMB: 100,
		Logger:              logger,
	}
}

// RunGroup concurrently invokes every agent in group (bounded by
// MaxConcurrent), merging each agent's resulting patch into store as soon as
// it settles, and finally advances current_group to nextGroupIndex. Agents
// missing from the registry are invoked through the Invoker as a stand-in
// that fails on every attempt, so they go through the same retries, backoff
// sleeps and final fallback record as any other failing agent.
func (e *Executor) RunGroup(ctx context.Context, store *core.Store, group core.AgentSet, coordinator *stream.Coordinator, nextGroupIndex int) error {
	names := group.Sorted()
	sem := make(chan struct{}, e.MaxConcurrent)
	var wg sync.WaitGroup

	for _, name := range names {
		coordinator.Register(name)
	}

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			emitter := core.EmitterFunc(func(ev core.AgentEvent) {
				coordinator.Queue(name, stream.AgentUpdateEvent(ev))
			})

			snap := store.Snapshot()

			agent, ok := e.Registry.Lookup(name)
			if !ok {
				patch, _ := e.Invoker.Invoke(ctx, missingAgent{name: name}, snap, emitter)
				e.applyPatch(store, name, patch)
				return
			}

			before := readAllocMB()
			patch, err := e.Invoker.Invoke(ctx, agent, snap, emitter)
			delta := readAllocMB() - before

			if err != nil {
				// Context was cancelled mid-retry-sleep; nothing more to merge.
				e.Logger.Warn("agent invocation interrupted", "agent", name, "error", err.Error())
				return
			}

			if delta > e.MemDeltaThresholdMB {
				if patch.Context == nil {
					patch.Context = map[string]any{}
				}
				patch.Context[name+"_mem_delta_mb"] = delta
				e.Logger.Warn("agent memory delta exceeded threshold", "agent", name, "delta_mb", delta)
			}

			e.applyPatch(store, name, patch)
		}(name)
	}

	wg.Wait()

	next := nextGroupIndex
	if _, err := store.Patch(core.Patch{CurrentGroup: &next}); err != nil {
		return fmt.Errorf("executor: advancing current_group: %w", err)
	}
	return nil
}

func (e *Executor) applyPatch(store *core.Store, agent string, patch core.Patch) {
	if _, err := store.Patch(patch); err != nil {
		e.Logger.Error("rejected patch from agent", "agent", agent, "error", err.Error())
	}
}

// readAllocMB reports current heap allocation in megabytes, the executor's
// coarse per-invocation memory guard.
func readAllocMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / (1024 * 1024))
}

// missingAgent stands in for a plan entry with no registered implementation,
// so it flows through the same retry/fallback machinery as any other
// invocation failure rather than needing a special case in the executor.
type missingAgent struct{ name string }

func (m missingAgent) Name() string { return m.name }

func (m missingAgent) Invoke(context.Context, *core.RunState, core.EventEmitter) (core.Patch, error) {
	return core.Patch{}, fmt.Errorf("no agent registered under name %q", m.name)
}
