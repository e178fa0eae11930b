// Package stream implements the streaming coordinator (C9): it serializes
// concurrently-emitted agent events into one ordered stream, preserving
// intra-agent FIFO order and canonical inter-agent order within a group, and
// strict group-to-group ordering across groups.
package stream

import (
	"sync"

	"github.com/hupe1980/agentkernel/core"
)

// EventType is the closed set of outbound wire event types, per §4.9's
// event taxonomy.
type EventType string

const (
	EventExecutionPlan EventType = "execution_plan"
	EventProgress      EventType = "progress"
	EventAgentUpdate   EventType = "agent_update"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// WireEvent is the single outbound envelope shape; unused fields are
// omitted from JSON so each event type's payload matches §6's examples.
type WireEvent struct {
	Type EventType `json:"type"`

	// execution_plan
	Agents     []string `json:"agents,omitempty"`
	TotalSteps int      `json:"total_steps,omitempty"`
	Reason     string   `json:"reason,omitempty"`

	// progress
	Node          string   `json:"node,omitempty"`
	CurrentStep   int      `json:"current_step,omitempty"`
	ExecutionPlan []string `json:"execution_plan,omitempty"`

	// agent_update
	Agent           string         `json:"agent,omitempty"`
	Message         string         `json:"message,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	ProgressPercent int            `json:"progress,omitempty"`
	Status          string         `json:"status,omitempty"`

	// complete
	ThreadID string                    `json:"thread_id,omitempty"`
	Results  map[string]core.AgentResult `json:"results,omitempty"`

	// error
	Kind core.ErrorKind `json:"kind,omitempty"`
}

// AgentUpdateEvent adapts a core.AgentEvent (pushed live by an agent) into
// its wire representation.
func AgentUpdateEvent(ev core.AgentEvent) WireEvent {
	return WireEvent{
		Type:            EventAgentUpdate,
		Agent:           ev.Agent,
		Message:         ev.Message,
		Data:            ev.Data,
		ProgressPercent: ev.ProgressPercent,
		Status:          ev.Status,
	}
}

// DefaultHighWaterMark is STREAM_HWM's documented default.
const DefaultHighWaterMark = 1024

// Coordinator owns one FIFO queue per agent name for the run it belongs to.
type Coordinator struct {
	mu             sync.Mutex
	queues         map[string][]WireEvent
	highWaterMark  int
	onStreamDrop   func(agent string) // hook so the kernel can append a stream_dropped error entry
}

// NewCoordinator builds a Coordinator. onStreamDrop, if non-nil, is invoked
// (outside the coordinator's lock) whenever backpressure forces a drop, so
// the caller can append the required errors entry of kind stream_dropped.
func NewCoordinator(highWaterMark int, onStreamDrop func(agent string)) *Coordinator {
	if highWaterMark <= 0 {
		highWaterMark = DefaultHighWaterMark
	}
	return &Coordinator{
		queues:        make(map[string][]WireEvent),
		highWaterMark: highWaterMark,
		onStreamDrop:  onStreamDrop,
	}
}

// Register creates an empty queue for agent, if one doesn't already exist.
func (c *Coordinator) Register(agent string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.queues[agent]; !ok {
		c.queues[agent] = nil
	}
}

// Queue appends event to agent's queue, FIFO. If the queue is at the
// high-water mark and event is a droppable kind (progress or agent_update),
// the oldest droppable entry is evicted to make room; errors and completions
// are never dropped.
func (c *Coordinator) Queue(agent string, event WireEvent) {
	c.mu.Lock()
	q := c.queues[agent]

	dropped := false
	if len(q) >= c.highWaterMark && isDroppable(event.Type) {
		if idx := firstDroppableIndex(q); idx >= 0 {
			q = append(q[:idx], q[idx+1:]...)
			dropped = true
		}
	}
	q = append(q, event)
	c.queues[agent] = q
	c.mu.Unlock()

	if dropped && c.onStreamDrop != nil {
		c.onStreamDrop(agent)
	}
}

func isDroppable(t EventType) bool {
	return t == EventProgress || t == EventAgentUpdate
}

func firstDroppableIndex(q []WireEvent) int {
	for i, e := range q {
		if isDroppable(e.Type) {
			return i
		}
	}
	return -1
}

// DrainGroup flushes each agent's queue in full, in the given canonical
// order, sending every event to sink before moving to the next agent. It is
// called by the run controller once every agent in a group has settled.
// Sending to sink is done outside the coordinator's lock so a slow
// subscriber cannot block other goroutines from queuing new events for the
// next group.
func (c *Coordinator) DrainGroup(sink chan<- WireEvent, canonicalOrder []string) {
	for _, agent := range canonicalOrder {
		c.mu.Lock()
		q := c.queues[agent]
		c.queues[agent] = nil
		c.mu.Unlock()

		for _, ev := range q {
			sink <- ev
		}
	}
}
