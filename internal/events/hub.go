package events

import (
	"sync"
)

type Subscriber struct {
	ID        string
	RequestID string // Filter by request ID (empty = all)
	Events    chan DispatchEvent
}

// Hub fans dispatch events out to in-process subscribers. Publishing never
// blocks: slow subscribers drop events rather than stalling a dispatch.
type Hub struct {
	subscribers map[string]*Subscriber
	mu          sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
	}
}

func (h *Hub) Subscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub.ID] = sub
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.Events)
		delete(h.subscribers, id)
	}
}

func (h *Hub) Publish(event DispatchEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if sub.RequestID != "" && sub.RequestID != event.RequestID {
			continue
		}
		select {
		case sub.Events <- event:
		default:
			// Subscriber buffer full, skip this event
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
