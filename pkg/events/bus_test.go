package events

import (
	"testing"
	"time"
)

func TestMemoryBusPublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(0)
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	bus.Publish(NewEvent(EventStageInvoke, "Guardrail Agent", nil))

	select {
	case event := <-ch:
		if event.Type != EventStageInvoke {
			t.Errorf("expected EventStageInvoke, got %s", event.Type)
		}
		if event.Producer != "Guardrail Agent" {
			t.Errorf("expected producer 'Guardrail Agent', got %q", event.Producer)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(0)
	ch := bus.Subscribe(EventStageHalted)
	defer bus.Unsubscribe(ch)

	bus.Publish(NewEvent(EventStageInvoke, "a", "should-be-filtered"))
	bus.Publish(NewEvent(EventStageHalted, "a", "should-arrive"))

	select {
	case event := <-ch:
		if event.Type != EventStageHalted {
			t.Errorf("expected EventStageHalted, got %s", event.Type)
		}
		if event.Data != "should-arrive" {
			t.Errorf("expected data 'should-arrive', got %v", event.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}

	// Ensure the filtered event didn't arrive.
	select {
	case event := <-ch:
		t.Errorf("unexpected event: %v", event)
	case <-time.After(50 * time.Millisecond):
		// Good — no event arrived.
	}
}

func TestMemoryBusMultipleSubscribers(t *testing.T) {
	bus := NewMemoryBus(0)
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	defer bus.Unsubscribe(ch1)
	defer bus.Unsubscribe(ch2)

	bus.Publish(NewEvent(EventWorkflowStart, "", "wf-1"))

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case event := <-ch:
			if event.Type != EventWorkflowStart {
				t.Errorf("expected EventWorkflowStart, got %s", event.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestMemoryBusHistory(t *testing.T) {
	bus := NewMemoryBus(0)

	t1 := time.Now()
	bus.Publish(NewEvent(EventStageInvoke, "a", "first"))
	time.Sleep(10 * time.Millisecond)
	t2 := time.Now()
	bus.Publish(NewEvent(EventStagePassed, "a", "second"))

	all := bus.History(t1)
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}

	since := bus.History(t2)
	if len(since) != 1 {
		t.Fatalf("expected 1 event since t2, got %d", len(since))
	}
	if since[0].Data != "second" {
		t.Errorf("expected 'second', got %v", since[0].Data)
	}
}

func TestMemoryBusHistoryCap(t *testing.T) {
	bus := NewMemoryBus(3)

	for i := 0; i < 5; i++ {
		bus.Publish(NewEvent(EventStageInvoke, "a", i))
	}

	all := bus.History(time.Time{})
	if len(all) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(all))
	}
	if all[0].Data != 2 {
		t.Errorf("expected oldest retained event to be 2, got %v", all[0].Data)
	}
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(0)
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	// Channel should be closed after unsubscribe.
	_, ok := <-ch
	if ok {
		t.Error("expected channel to be closed")
	}
}

// Publishing must never send on a channel that a concurrent Unsubscribe
// has closed.
func TestMemoryBusConcurrentPublishUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			bus.Publish(NewEvent(EventStageInvoke, "Guardrail Agent", nil))
		}
	}()

	for i := 0; i < 200; i++ {
		ch := bus.Subscribe()
		bus.Unsubscribe(ch)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher did not finish")
	}
}
