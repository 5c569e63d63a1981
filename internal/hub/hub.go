package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"askbox/internal/model"
)

// AllAskees subscribes a connection to every new ask.
const AllAskees int64 = 0

type Writer interface {
	Write(message []byte) error
	Close() error
}

type Connection struct {
	Askee  int64
	Writer Writer
}

type Event struct {
	Type string `json:"type"`
	Body any    `json:"body"`
}

type Hub struct {
	mu          sync.RWMutex
	connections map[int64]map[*Connection]struct{}
}

func New() *Hub {
	return &Hub{connections: make(map[int64]map[*Connection]struct{})}
}

func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[conn.Askee] == nil {
		h.connections[conn.Askee] = make(map[*Connection]struct{})
	}
	h.connections[conn.Askee][conn] = struct{}{}
}

func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.connections[conn.Askee]
	if set == nil {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.connections, conn.Askee)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.connections {
		n += len(set)
	}
	return n
}

// PublishAsk sends a newly created ask to its askee's subscribers and to
// AllAskees subscribers.
func (h *Hub) PublishAsk(ask model.Ask) {
	message, err := json.Marshal(Event{Type: "ask", Body: ask})
	if err != nil {
		slog.Error("hub: marshal ask event failed", "ask", ask.ID, "error", err)
		return
	}
	h.Broadcast(message, AllAskees, ask.Askee)
}

// Broadcast writes message once to every connection subscribed to any of
// topics. Connections whose write fails are closed and dropped.
func (h *Hub) Broadcast(message []byte, topics ...int64) {
	h.mu.RLock()
	seen := make(map[*Connection]struct{})
	conns := make([]*Connection, 0)
	for _, topic := range topics {
		for c := range h.connections[topic] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	var failed []*Connection
	for _, c := range conns {
		if err := c.Writer.Write(message); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		_ = c.Writer.Close()
		h.Unregister(c)
	}
}
