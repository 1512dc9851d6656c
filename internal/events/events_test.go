package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestMakeEventEnvelope(t *testing.T) {
	raw := MakeEvent("req-1", ApplicationCreated, map[string]any{"id": 7})

	var evt Event
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.Type != ApplicationCreated || evt.Version != 1 || evt.RequestID != "req-1" {
		t.Fatalf("unexpected envelope: %+v", evt)
	}
	if string(evt.Data) != `{"id":7}` {
		t.Fatalf("unexpected data: %s", evt.Data)
	}
	if time.Since(evt.At) > time.Minute {
		t.Fatalf("unexpected timestamp %v", evt.At)
	}
}

func TestHubFanOutAndUnsubscribe(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	if h.Subscribers() != 2 {
		t.Fatalf("expected 2 subscribers")
	}

	h.Publish("hello")
	if got := <-a; got != "hello" {
		t.Fatalf("a: %q", got)
	}
	if got := <-b; got != "hello" {
		t.Fatalf("b: %q", got)
	}

	h.Unsubscribe(a)
	h.Unsubscribe(a)
	if _, ok := <-a; ok {
		t.Fatalf("expected closed channel")
	}
	if h.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber")
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	for i := 0; i < 100; i++ {
		h.Publish("x")
	}
	if len(ch) != cap(ch) {
		t.Fatalf("expected buffer full, got %d/%d", len(ch), cap(ch))
	}
}

func TestBusWithoutNATSPublishesToHub(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	bus := NewBus(hub, nil, "jobtracker.applications", nil)

	bus.Emit(context.Background(), "req-2", ApplicationDeleted, map[string]int64{"id": 3})

	select {
	case raw := <-ch:
		var evt Event
		if err := json.Unmarshal([]byte(raw), &evt); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if evt.Type != ApplicationDeleted || evt.RequestID != "req-2" {
			t.Fatalf("unexpected event %+v", evt)
		}
	default:
		t.Fatalf("expected event on hub")
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBusSubject(t *testing.T) {
	if got := NewBus(nil, nil, "jt.apps", nil).Subject(ApplicationCreated); got != "jt.apps.application_created" {
		t.Fatalf("got %q", got)
	}
	if got := NewBus(nil, nil, "", nil).Subject(ApplicationUpdated); got != "application_updated" {
		t.Fatalf("got %q", got)
	}
}
