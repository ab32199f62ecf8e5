package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"kinkong/internal/domain"
)

// SSEBroadcaster streams events to connected operator dashboards over
// Server-Sent Events. A slow subscriber drops events rather than block
// the dispatcher.
type SSEBroadcaster struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	nextID int
}

// NewSSEBroadcaster creates an empty broadcaster.
func NewSSEBroadcaster() *SSEBroadcaster {
	return &SSEBroadcaster{
		subs: make(map[chan []byte]struct{}),
	}
}

// Compile-time interface check.
var _ Notifier = (*SSEBroadcaster)(nil)

// Notify pushes the event to every connected subscriber.
func (b *SSEBroadcaster) Notify(ctx context.Context, ev *domain.OutboxEvent) error {
	msg, err := json.Marshal(map[string]interface{}{
		"eventId":  ev.EventID,
		"signalId": ev.SignalID,
		"kind":     ev.Kind,
		"payload":  json.RawMessage(ev.Payload),
	})
	if err != nil {
		return fmt.Errorf("marshal sse event: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// SubscriberCount returns the number of connected subscribers.
func (b *SSEBroadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// ServeHTTP implements the SSE endpoint.
func (b *SSEBroadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}()

	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
