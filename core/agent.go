package core

import "context"

// AgentEvent is a live progress update an agent may push while it runs,
// distinct from the Patch it returns when it finishes. The streaming
// coordinator (package stream) queues these per agent and drains them in
// canonical order once the whole group settles.
type AgentEvent struct {
	Agent           string
	Message         string
	Data            map[string]any
	ProgressPercent int
	Status          string // "processing" | "completed"
}

// EventEmitter lets an agent push AgentEvents without blocking on the
// subscriber; the kernel supplies a buffered implementation per invocation.
type EventEmitter interface {
	Emit(AgentEvent)
}

// EmitterFunc adapts a plain function to EventEmitter.
type EmitterFunc func(AgentEvent)

// Emit implements EventEmitter.
func (f EmitterFunc) Emit(e AgentEvent) { f(e) }

// NoopEmitter discards every event; useful in tests that don't care about
// the live progress stream.
var NoopEmitter EventEmitter = EmitterFunc(func(AgentEvent) {})

// Agent is the uniform contract every external collaborator plugged into the
// kernel must implement: a pure function from a state snapshot to a patch.
// Implementations MUST NOT mutate snap, MUST populate Results[Name()] in the
// returned patch, MUST NOT set Patch.Errors (owned by the retry wrapper),
// and MUST be idempotent: calling Invoke twice with the same snapshot
// produces an equivalent patch.
type Agent interface {
	// Name is the canonical registry key this agent is invoked under; it is
	// also the key used in ExecutionPlan, Dependencies and Results.
	Name() string

	// Invoke runs the agent body against an immutable snapshot. emit may be
	// called any number of times before Invoke returns; it must never be
	// retained past the call. A returned error is treated as
	// ErrorKindAgentFailure by the retry wrapper — Invoke should prefer
	// returning a Patch with Results[Name()].Status == ResultError over
	// panicking.
	Invoke(ctx context.Context, snap *RunState, emit EventEmitter) (Patch, error)
}

// Registry maps canonical agent names to their implementation. The kernel
// never hard-codes a list of agents; it only ever dispatches by name through
// a Registry populated at startup.
type Registry struct {
	agents map[string]Agent
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds or replaces the agent under its own Name().
func (r *Registry) Register(a Agent) {
	r.agents[a.Name()] = a
}

// Lookup returns the agent registered under name, or false if none is.
func (r *Registry) Lookup(name string) (Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Names returns every registered agent name, unordered.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.agents))
	for name := range r.agents {
		out = append(out, name)
	}
	return out
}
