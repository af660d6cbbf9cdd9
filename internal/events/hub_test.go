package events

import (
	"testing"
	"time"

	"github.com/okanlawon/pawdispatch/internal/domain"
)

func TestPublishReachesSubscriber(t *testing.T) {
	hub := NewHub()
	sub := &Subscriber{ID: "s1", Events: make(chan DispatchEvent, 10)}
	hub.Subscribe(sub)
	defer hub.Unsubscribe(sub.ID)

	hub.Publish(DispatchEvent{
		Type:      EventAttemptRecorded,
		RequestID: "req-1",
		ClinicID:  "clinic-1",
		Outcome:   domain.OutcomeSent,
		Timestamp: time.Now(),
	})

	select {
	case ev := <-sub.Events:
		if ev.RequestID != "req-1" {
			t.Errorf("expected req-1, got %s", ev.RequestID)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestRequestIDFilter(t *testing.T) {
	hub := NewHub()
	sub := &Subscriber{ID: "s1", RequestID: "req-1", Events: make(chan DispatchEvent, 10)}
	hub.Subscribe(sub)
	defer hub.Unsubscribe(sub.ID)

	hub.Publish(DispatchEvent{Type: EventAttemptRecorded, RequestID: "req-other"})
	hub.Publish(DispatchEvent{Type: EventAttemptRecorded, RequestID: "req-1"})

	select {
	case ev := <-sub.Events:
		if ev.RequestID != "req-1" {
			t.Errorf("filter leaked event for %s", ev.RequestID)
		}
	case <-time.After(time.Second):
		t.Fatal("matching event not delivered")
	}

	select {
	case ev := <-sub.Events:
		t.Errorf("unexpected second event for %s", ev.RequestID)
	default:
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	hub := NewHub()
	sub := &Subscriber{ID: "s1", Events: make(chan DispatchEvent)} // no buffer
	hub.Subscribe(sub)
	defer hub.Unsubscribe(sub.ID)

	done := make(chan struct{})
	go func() {
		hub.Publish(DispatchEvent{Type: EventDispatchCompleted, RequestID: "req-1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	sub := &Subscriber{ID: "s1", Events: make(chan DispatchEvent, 1)}
	hub.Subscribe(sub)

	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	hub.Unsubscribe("s1")

	if _, open := <-sub.Events; open {
		t.Error("expected channel closed after unsubscribe")
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}
}
