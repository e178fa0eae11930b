package core

import (
	"sort"
	"sync"
	"time"
)

// Message is a single append-only conversational record.
type Message struct {
	Role      string    `json:"role"` // user, assistant, system, tool
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent,omitempty"`
}

// ProgressAction is the closed set of progress actions an agent invocation
// can be reported under.
type ProgressAction string

const (
	ProgressStarted   ProgressAction = "started"
	ProgressCompleted ProgressAction = "completed"
	ProgressFailed    ProgressAction = "failed"
	ProgressFallback  ProgressAction = "fallback"
)

// ProgressEntry is a single append-only progress record.
type ProgressEntry struct {
	Agent     string         `json:"agent"`
	Action    ProgressAction `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// ErrorEntry is a single append-only error record, produced only by the
// retry wrapper (agents must never append to this log directly).
type ErrorEntry struct {
	Agent        string    `json:"agent"`
	ErrorMessage string    `json:"error_message"`
	Attempt      int       `json:"attempt"`
	Timestamp    time.Time `json:"timestamp"`
	Kind         ErrorKind `json:"kind"`
}

// ResultStatus is the closed discriminant an agent result is reported under.
type ResultStatus string

const (
	ResultSuccess  ResultStatus = "success"
	ResultError    ResultStatus = "error"
	ResultFallback ResultStatus = "fallback"
)

// AgentResult is the per-agent, write-once-per-run result record.
type AgentResult struct {
	Status    ResultStatus   `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// AgentSet is an unordered set of agent names, the unit a parallel group is
// made of. Represented as a map for O(1) membership tests; encoding/json
// renders it as an object keyed by agent name, with keys in sorted order, so
// checkpoint snapshots are deterministic.
type AgentSet map[string]struct{}

// NewAgentSet builds an AgentSet from a slice of names.
func NewAgentSet(names ...string) AgentSet {
	s := make(AgentSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is a member of the set.
func (s AgentSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the set's members in lexical order.
func (s AgentSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s AgentSet) clone() AgentSet {
	c := make(AgentSet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// RunState is the single logical entity accumulated across one run. It is
// never mutated directly by callers; all mutation goes through Store, which
// serializes access under one mutex per §4.1.
type RunState struct {
	Messages         []Message               `json:"messages"`
	CurrentAgent     string                  `json:"current_agent,omitempty"`
	TaskDescription  string                  `json:"task_description"`
	ExecutionPlan    []string                `json:"execution_plan"`
	Dependencies     map[string]AgentSet     `json:"dependencies"`
	ParallelGroups   []AgentSet              `json:"parallel_groups"`
	CurrentGroup     int                     `json:"current_group"`
	CurrentStep      int                     `json:"current_step"`
	Results          map[string]AgentResult  `json:"results"`
	Context          map[string]any          `json:"context"`
	Progress         []ProgressEntry         `json:"progress"`
	Errors           []ErrorEntry            `json:"errors"`
	IsComplete       bool                    `json:"is_complete"`
	ThreadID         string                  `json:"thread_id"`
}

// NewRunState creates an empty run state for a new thread.
func NewRunState(threadID, taskDescription string) *RunState {
	return &RunState{
		TaskDescription: taskDescription,
		Dependencies:    map[string]AgentSet{},
		Results:         map[string]AgentResult{},
		Context:         map[string]any{},
		ThreadID:        threadID,
	}
}

// Clone returns a deep copy of s, so a reader's mutations (or the caller's
// subsequent reuse of s) can never be observed by another goroutine.
func (s *RunState) Clone() *RunState {
	if s == nil {
		return nil
	}
	out := &RunState{
		CurrentAgent:    s.CurrentAgent,
		TaskDescription: s.TaskDescription,
		CurrentGroup:    s.CurrentGroup,
		CurrentStep:     s.CurrentStep,
		IsComplete:      s.IsComplete,
		ThreadID:        s.ThreadID,
	}

	out.Messages = append([]Message(nil), s.Messages...)
	out.ExecutionPlan = append([]string(nil), s.ExecutionPlan...)
	out.Progress = append([]ProgressEntry(nil), s.Progress...)
	out.Errors = append([]ErrorEntry(nil), s.Errors...)

	out.Dependencies = make(map[string]AgentSet, len(s.Dependencies))
	for k, v := range s.Dependencies {
		out.Dependencies[k] = v.clone()
	}

	out.ParallelGroups = make([]AgentSet, len(s.ParallelGroups))
	for i, g := range s.ParallelGroups {
		out.ParallelGroups[i] = g.clone()
	}

	out.Results = make(map[string]AgentResult, len(s.Results))
	for k, v := range s.Results {
		out.Results[k] = v
	}

	out.Context = make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		out.Context[k] = v
	}

	return out
}

// Patch is the only mutator RunState accepts. Nil fields are left untouched;
// mapping fields are key-merged (last write wins per key); the three
// accumulating sequences are concatenated, never replaced; scalar fields
// overwrite when their pointer is non-nil.
type Patch struct {
	Messages        []Message
	CurrentAgent    *string
	TaskDescription *string
	ExecutionPlan   []string
	Dependencies    map[string]AgentSet
	ParallelGroups  []AgentSet
	CurrentGroup    *int
	CurrentStep     *int
	Results         map[string]AgentResult
	Context         map[string]any
	Progress        []ProgressEntry
	Errors          []ErrorEntry
	IsComplete      *bool
}

// Store is the thread-safe, mutation-disciplined container for a single
// run's state. All exported methods are safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	state *RunState
}

// NewStore wraps an initial RunState in a Store.
func NewStore(initial *RunState) *Store {
	return &Store{state: initial}
}

// Get returns a deep copy of the current state.
func (st *Store) Get() *RunState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.Clone()
}

// Snapshot is an alias for Get kept to mirror the checkpointer's vocabulary
// (§4.1's snapshot() → immutable_copy).
func (st *Store) Snapshot() *RunState { return st.Get() }

// AppendMessage atomically appends a message record.
func (st *Store) AppendMessage(m Message) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Messages = append(st.state.Messages, m)
}

// AppendProgress atomically appends a progress record.
func (st *Store) AppendProgress(e ProgressEntry) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Progress = append(st.state.Progress, e)
}

// AppendError atomically appends an error record. Only the retry wrapper
// should call this; agents must never write to the error log directly.
func (st *Store) AppendError(e ErrorEntry) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Errors = append(st.state.Errors, e)
}

// Patch applies p to the state using the merge semantics documented on
// Patch, returning the merged state. A patch that fails validation returns
// ErrorKindInvalidStateUpdate and leaves the state untouched.
func (st *Store) Patch(p Patch) (*RunState, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if p.CurrentGroup != nil && *p.CurrentGroup < st.state.CurrentGroup {
		return nil, NewKernelError(ErrorKindInvalidStateUpdate, "current_group must not decrease: %d -> %d", st.state.CurrentGroup, *p.CurrentGroup)
	}

	s := st.state

	s.Messages = append(s.Messages, p.Messages...)
	s.Progress = append(s.Progress, p.Progress...)
	s.Errors = append(s.Errors, p.Errors...)

	if p.CurrentAgent != nil {
		s.CurrentAgent = *p.CurrentAgent
	}
	if p.TaskDescription != nil {
		s.TaskDescription = *p.TaskDescription
	}
	if p.ExecutionPlan != nil {
		s.ExecutionPlan = p.ExecutionPlan
	}
	if p.Dependencies != nil {
		for k, v := range p.Dependencies {
			s.Dependencies[k] = v
		}
	}
	if p.ParallelGroups != nil {
		s.ParallelGroups = p.ParallelGroups
	}
	if p.CurrentGroup != nil {
		s.CurrentGroup = *p.CurrentGroup
	}
	if p.CurrentStep != nil {
		s.CurrentStep = *p.CurrentStep
	}
	for k, v := range p.Results {
		s.Results[k] = v
	}
	for k, v := range p.Context {
		s.Context[k] = v
	}
	if p.IsComplete != nil {
		s.IsComplete = *p.IsComplete
	}

	return s.Clone(), nil
}
