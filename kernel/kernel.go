// Package kernel implements the run controller / façade (C10): it accepts
// an inbound invocation, loads or creates a thread's state, drives the
// supervisor -> grouper -> executor/router loop to a terminal state, wires
// agent emissions to the streaming coordinator, and checkpoints state at
// every node boundary.
package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentkernel/checkpoint"
	"github.com/hupe1980/agentkernel/checkpoint/sqlite"
	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/executor"
	"github.com/hupe1980/agentkernel/logging"
	"github.com/hupe1980/agentkernel/plan"
	"github.com/hupe1980/agentkernel/retry"
	"github.com/hupe1980/agentkernel/router"
	"github.com/hupe1980/agentkernel/stream"
)

// InvokeRequest is the inbound request the façade accepts, matching the
// synchronous invocation endpoint's request shape.
type InvokeRequest struct {
	Input    string
	ThreadID string // optional; a fresh thread is minted when empty
}

// InvokeResult is the terminal snapshot's externally-visible projection.
type InvokeResult struct {
	ThreadID   string
	Results    map[string]core.AgentResult
	IsComplete bool
}

// Kernel wires together every collaborator component and exposes Run and
// Resume as its entry points.
type Kernel struct {
	Supervisor  *plan.Supervisor
	Registry    *core.Registry
	Checkpoints checkpoint.Checkpointer
	Config      Config
	Logger      *logging.KernelLogger

	// breakers is process-scoped: it is built once in New and shared across
	// every Run call, so a circuit breaker's failure count persists across
	// separate invocations of the same Kernel per §4.7/§8 scenario 5.
	breakers *retry.Registry
	wrapper  *retry.Wrapper
}

// New builds a Kernel from its collaborators, applying config defaults and
// constructing the checkpoint store named by cfg.CheckpointStore. The retry
// policy's circuit breakers are constructed here, once, so their state
// outlives any single Run call.
func New(supervisor *plan.Supervisor, registry *core.Registry, cfg Config, logger *logging.KernelLogger) (*Kernel, error) {
	if logger == nil {
		logger = logging.NewLogger(logging.DefaultConfig())
	}

	var store checkpoint.Checkpointer
	switch cfg.CheckpointStore {
	case "local_durable":
		s, err := sqlite.Open(cfg.CheckpointDBPath)
		if err != nil {
			return nil, fmt.Errorf("kernel: opening durable checkpoint store: %w", err)
		}
		store = s
	default:
		store = checkpoint.NewMemoryStore()
	}

	breakers := retry.NewRegistry(cfg.BreakerThreshold, cfg.BreakerTimeout)
	wrapper := retry.NewWrapper(retry.Policy{
		Type:       cfg.RetryPolicy,
		Base:       time.Second,
		MaxDelay:   30 * time.Second,
		MaxRetries: cfg.MaxRetries,
	}, breakers, cfg.AgentTimeout)

	return &Kernel{
		Supervisor:  supervisor,
		Registry:    registry,
		Checkpoints: store,
		Config:      cfg,
		Logger:      logger,
		breakers:    breakers,
		wrapper:     wrapper,
	}, nil
}

// canonicalOrder mirrors plan.canonicalAgentOrder for draining streams in a
// stable, agent-name order regardless of a group's internal iteration order.
var canonicalOrder = []string{"search", "analytics", "comparator", "predictor", "document", "compliance"}

// Run drives one invocation from inbound request to terminal state,
// persisting a checkpoint at every node boundary and, if events is non-nil,
// streaming every wire event produced along the way to it. Run always starts
// a new planning cycle against req.Input, whether threadID is fresh or
// resumed. events is a per-call parameter, not shared Kernel state, so two
// concurrent Run/Resume calls on the same Kernel never cross-wire their
// streams. A cyclic plan ends the run with an error wire event and a returned
// *core.KernelError of kind cyclic_plan.
func (k *Kernel) Run(ctx context.Context, req InvokeRequest, events chan<- stream.WireEvent) (InvokeResult, error) {
	threadID := req.ThreadID
	if threadID == "" {
		threadID = core.NewThreadID()
	}

	snap, err := k.loadOrCreate(ctx, threadID, req.Input)
	if err != nil {
		return InvokeResult{}, err
	}
	return k.runLoop(ctx, core.NewStore(snap), true, events)
}

// Resume continues an interrupted run for threadID from its most recently
// persisted checkpoint, without starting a new planning cycle: it is the
// counterpart to Run's fresh-invocation path, picking execution back up
// exactly where a prior Run left off (mid-group, or awaiting a re-plan). The
// most recent checkpoint is found via Checkpointer.List's newest-first
// ordering. events behaves as it does for Run.
func (k *Kernel) Resume(ctx context.Context, threadID string, events chan<- stream.WireEvent) (InvokeResult, error) {
	infos, err := k.Checkpoints.List(ctx, threadID)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("kernel: listing checkpoints for thread %q: %w", threadID, err)
	}
	if len(infos) == 0 {
		return InvokeResult{}, fmt.Errorf("kernel: no checkpoint to resume for thread %q", threadID)
	}

	newest := infos[0].CheckpointID
	snap, _, err := k.Checkpoints.Get(ctx, threadID, newest)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("kernel: loading checkpoint %q for thread %q: %w", newest, threadID, err)
	}
	if snap == nil {
		return InvokeResult{}, fmt.Errorf("kernel: checkpoint %q for thread %q not found", newest, threadID)
	}
	if snap.IsComplete {
		return InvokeResult{ThreadID: snap.ThreadID, Results: snap.Results, IsComplete: true}, nil
	}

	needsPlan := len(snap.ParallelGroups) == 0 || snap.CurrentGroup >= len(snap.ParallelGroups)
	return k.runLoop(ctx, core.NewStore(snap), needsPlan, events)
}

// runLoop drives store from its current state to a terminal state, shared by
// Run (which always plans first) and Resume (which only plans if the loaded
// checkpoint has no pending group left to execute).
func (k *Kernel) runLoop(ctx context.Context, store *core.Store, needsPlan bool, events chan<- stream.WireEvent) (InvokeResult, error) {
	deadline := k.Config.RunDeadline
	if deadline <= 0 {
		deadline = 600 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	exec := executor.New(k.Registry, k.wrapper, k.Config.MaxConcurrent, k.Logger)

	coordinator := stream.NewCoordinator(k.Config.StreamHWM, func(agent string) {
		store.AppendError(core.ErrorEntry{
			Agent:        agent,
			ErrorMessage: "stream backpressure exceeded high-water mark, dropped oldest droppable event",
			Kind:         core.ErrorKindStreamDropped,
			Timestamp:    timeNow(),
		})
	})

	for {
		if err := runCtx.Err(); err != nil {
			k.terminate(store, false)
			break
		}

		if needsPlan {
			cur := store.Snapshot()
			patch := k.Supervisor.Plan(runCtx, cur)
			if _, err := store.Patch(patch); err != nil {
				return InvokeResult{}, fmt.Errorf("kernel: applying supervisor patch: %w", err)
			}
			cur = store.Snapshot()

			groups, err := plan.Levelize(cur.ExecutionPlan, cur.Dependencies)
			if err != nil {
				k.terminate(store, false)
				store.AppendError(core.ErrorEntry{Agent: "supervisor", ErrorMessage: err.Error(), Kind: core.ErrorKindCyclicPlan, Timestamp: timeNow()})
				final := store.Snapshot()
				k.checkpoint(ctx, final)
				k.emit(events, stream.WireEvent{Type: stream.EventError, Agent: "supervisor", Message: err.Error(), Kind: core.ErrorKindCyclicPlan})
				return InvokeResult{ThreadID: final.ThreadID, Results: final.Results, IsComplete: false}, err
			}
			store.Patch(core.Patch{ParallelGroups: groups})
			cur = store.Snapshot()

			k.emit(events, stream.WireEvent{Type: stream.EventExecutionPlan, Agents: cur.ExecutionPlan, TotalSteps: len(cur.ExecutionPlan)})
			k.checkpoint(ctx, cur)
			needsPlan = false
			continue
		}

		cur := store.Snapshot()

		if cur.CurrentGroup >= len(cur.ParallelGroups) {
			k.terminate(store, true)
			break
		}

		group := cur.ParallelGroups[cur.CurrentGroup]
		k.emit(events, stream.WireEvent{
			Type:          stream.EventProgress,
			Node:          group.Sorted()[0],
			CurrentStep:   cur.CurrentGroup,
			ExecutionPlan: cur.ExecutionPlan,
		})

		if err := exec.RunGroup(runCtx, store, group, coordinator, cur.CurrentGroup+1); err != nil {
			return InvokeResult{}, fmt.Errorf("kernel: running group %d: %w", cur.CurrentGroup, err)
		}
		coordinator.DrainGroup(sinkOrDiscard(events), canonicalOrder)

		after := store.Snapshot()
		if last := lastRoutedAgent(after, group); last != "" {
			agentName := last
			store.Patch(core.Patch{CurrentAgent: &agentName})
			after = store.Snapshot()
		}

		k.checkpoint(ctx, after)

		decision := router.Decide(after)
		k.Logger.LogRouterDecision(after.CurrentAgent, decision.Next, decision.Rule)

		switch decision.Next {
		case router.Terminal:
			k.terminate(store, true)
			goto done
		case "parallel_executor":
			continue
		case router.Supervisor:
			needsPlan = true
			continue
		default:
			// The router named a specific agent directly (§4.8.3's
			// document->compliance, compliance->rework_target,
			// analytics->search, search->document rules). Splice it in as
			// its own group appended right after the one that just ran, so
			// the next loop iteration schedules and executes it through the
			// normal executor path instead of merely recording it as
			// current_agent.
			agentName := decision.Next
			execPlan := after.ExecutionPlan
			if !containsAgent(execPlan, agentName) {
				execPlan = append(append([]string(nil), execPlan...), agentName)
			}
			groups := append(append([]core.AgentSet(nil), after.ParallelGroups...), core.NewAgentSet(agentName))
			if _, err := store.Patch(core.Patch{
				CurrentAgent:   &agentName,
				ExecutionPlan:  execPlan,
				ParallelGroups: groups,
			}); err != nil {
				return InvokeResult{}, fmt.Errorf("kernel: scheduling routed agent %q: %w", agentName, err)
			}
			continue
		}
	}
done:

	final := store.Snapshot()
	k.checkpoint(ctx, final)
	if final.IsComplete {
		k.emit(events, stream.WireEvent{Type: stream.EventComplete, ThreadID: final.ThreadID, Results: final.Results})
	}

	return InvokeResult{ThreadID: final.ThreadID, Results: final.Results, IsComplete: final.IsComplete}, nil
}

func (k *Kernel) loadOrCreate(ctx context.Context, threadID, input string) (*core.RunState, error) {
	if snap, _, err := k.Checkpoints.Get(ctx, threadID, ""); err == nil && snap != nil {
		snap.Messages = append(snap.Messages, core.Message{Role: "user", Content: input, Timestamp: timeNow()})
		// A fresh invoke on a resumed thread starts a new planning cycle;
		// current_group only needs to be monotonic within a single Run.
		snap.CurrentGroup = 0
		snap.IsComplete = false
		snap.TaskDescription = input
		return snap, nil
	}
	snap := core.NewRunState(threadID, input)
	snap.Messages = append(snap.Messages, core.Message{Role: "user", Content: input, Timestamp: timeNow()})
	return snap, nil
}

func (k *Kernel) checkpoint(ctx context.Context, snap *core.RunState) {
	start := timeNow()
	id := checkpoint.NewCheckpointID()
	err := k.Checkpoints.Put(ctx, snap.ThreadID, id, snap, checkpoint.Meta{"current_group": snap.CurrentGroup})
	k.Logger.LogCheckpointWrite(snap.ThreadID, id, timeNow().Sub(start), err)
}

func (k *Kernel) terminate(store *core.Store, complete bool) {
	isComplete := complete
	store.Patch(core.Patch{IsComplete: &isComplete})
}

func (k *Kernel) emit(events chan<- stream.WireEvent, ev stream.WireEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}

func sinkOrDiscard(events chan<- stream.WireEvent) chan<- stream.WireEvent {
	if events != nil {
		return events
	}
	discard := make(chan stream.WireEvent, 64)
	go func() {
		for range discard {
		}
	}()
	return discard
}

// lastRoutedAgent picks a deterministic representative of the just-completed
// group to attribute the router's declarative rules to, since those rules
// key off a single current_agent rather than a whole group.
func lastRoutedAgent(snap *core.RunState, group core.AgentSet) string {
	names := group.Sorted()
	if len(names) == 0 {
		return ""
	}
	return names[len(names)-1]
}

func containsAgent(execPlan []string, name string) bool {
	for _, p := range execPlan {
		if p == name {
			return true
		}
	}
	return false
}

func timeNow() time.Time { return time.Now() }
