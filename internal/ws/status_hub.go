package ws

import (
	"encoding/json"
	"sync"
)

// Client represents a single WebSocket connection with user context.
type Client struct {
	Reference string
	Send      chan []byte
	hub       *StatusHub
	mu        sync.Mutex
	closed    bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// StatusHub fans intent status transitions out to the owning reference's
// connections, letting the UI stop its detail polling early.
type StatusHub struct {
	mu    sync.RWMutex
	byRef map[string]map[*Client]struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{byRef: make(map[string]map[*Client]struct{})}
}

func (h *StatusHub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	if h.byRef[c.Reference] == nil {
		h.byRef[c.Reference] = make(map[*Client]struct{})
	}
	h.byRef[c.Reference][c] = struct{}{}
}

func (h *StatusHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byRef[c.Reference]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byRef, c.Reference)
		}
	}
}

// NotifyIntentStatus implements service.StatusNotifier.
func (h *StatusHub) NotifyIntentStatus(reference, intentID, status string) {
	data, _ := json.Marshal(map[string]string{
		"type":      "intent_status",
		"intent_id": intentID,
		"status":    status,
	})
	h.mu.RLock()
	m := h.byRef[reference]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (h *StatusHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.byRef {
		n += len(m)
	}
	return n
}
