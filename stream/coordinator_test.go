package stream

import "testing"

func TestCoordinator_DrainGroupPreservesCanonicalOrderAcrossAgents(t *testing.T) {
	c := NewCoordinator(0, nil)
	c.Register("search")
	c.Register("analytics")

	c.Queue("analytics", WireEvent{Type: EventAgentUpdate, Agent: "analytics", Message: "first"})
	c.Queue("search", WireEvent{Type: EventAgentUpdate, Agent: "search", Message: "second"})
	c.Queue("analytics", WireEvent{Type: EventAgentUpdate, Agent: "analytics", Message: "third"})

	sink := make(chan WireEvent, 10)
	c.DrainGroup(sink, []string{"search", "analytics"})
	close(sink)

	var got []string
	for ev := range sink {
		got = append(got, ev.Agent+":"+ev.Message)
	}

	want := []string{"search:second", "analytics:first", "analytics:third"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCoordinator_DropsOldestDroppableAtHighWaterMark(t *testing.T) {
	var dropped []string
	c := NewCoordinator(2, func(agent string) { dropped = append(dropped, agent) })
	c.Register("search")

	c.Queue("search", WireEvent{Type: EventProgress, Message: "p1"})
	c.Queue("search", WireEvent{Type: EventProgress, Message: "p2"})
	c.Queue("search", WireEvent{Type: EventProgress, Message: "p3"})

	sink := make(chan WireEvent, 10)
	c.DrainGroup(sink, []string{"search"})
	close(sink)

	var messages []string
	for ev := range sink {
		messages = append(messages, ev.Message)
	}
	if len(messages) != 2 {
		t.Fatalf("expected the oldest droppable event to have been evicted, got %v", messages)
	}
	if len(dropped) == 0 {
		t.Fatal("expected onStreamDrop to have been invoked")
	}
}

func TestCoordinator_NeverDropsErrorsOrCompletion(t *testing.T) {
	c := NewCoordinator(1, nil)
	c.Register("search")

	c.Queue("search", WireEvent{Type: EventProgress, Message: "p1"})
	c.Queue("search", WireEvent{Type: EventError, Message: "boom"})
	c.Queue("search", WireEvent{Type: EventComplete, Message: "done"})

	sink := make(chan WireEvent, 10)
	c.DrainGroup(sink, []string{"search"})
	close(sink)

	var types []EventType
	for ev := range sink {
		types = append(types, ev.Type)
	}
	hasError, hasComplete := false, false
	for _, ty := range types {
		if ty == EventError {
			hasError = true
		}
		if ty == EventComplete {
			hasComplete = true
		}
	}
	if !hasError || !hasComplete {
		t.Fatalf("expected error and complete events to survive backpressure, got %v", types)
	}
}
