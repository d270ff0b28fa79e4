package sink

import (
	"context"
	"sync"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Timeline is a bounded projection of the most recent relayed messages,
// across all rooms. The debug inspector reads it for its stats panel.
type Timeline struct {
	mu       sync.Mutex
	capacity int
	total    int
	messages []domain.Message
}

func NewTimeline(capacity int) *Timeline {
	return &Timeline{capacity: capacity}
}

func (t *Timeline) Consume(_ context.Context, e event.Event) error {
	evt, ok := e.(event.MessageReceived)
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	t.messages = append(t.messages, evt.Message)
	if len(t.messages) > t.capacity {
		t.messages = t.messages[len(t.messages)-t.capacity:]
	}
	return nil
}

// Recent snapshots the retained tail, oldest first.
func (t *Timeline) Recent() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Total counts every message observed since startup.
func (t *Timeline) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}
