package hub

import (
	"encoding/json"
	"log"
	"sync"
)

type Writer interface {
	Write(message []byte) error
	Close() error
}

// Connection is one open event stream of a browser view.
type Connection struct {
	ViewerID string
	Writer   Writer
}

// Message is the envelope written to every stream.
type Message struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Body  any    `json:"body,omitempty"`
}

// Hub fans controller events out to the connected views. A view may hold
// several connections (tabs) under the same viewer id.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{}
}

func New() *Hub {
	return &Hub{connections: make(map[string]map[*Connection]struct{})}
}

func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[conn.ViewerID] == nil {
		h.connections[conn.ViewerID] = make(map[*Connection]struct{})
	}
	h.connections[conn.ViewerID][conn] = struct{}{}
}

func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.connections[conn.ViewerID]
	if set == nil {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.connections, conn.ViewerID)
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

// Send writes message to every connection of one viewer.
func (h *Hub) Send(viewerID string, message []byte) {
	h.mu.RLock()
	set := h.connections[viewerID]
	conns := make([]*Connection, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	h.write(conns, message)
}

// Publish encodes an update event and writes it to every connection.
func (h *Hub) Publish(event string, body any) {
	data, err := json.Marshal(Message{Type: "update", Event: event, Body: body})
	if err != nil {
		log.Printf("hub: encode %s failed: %v", event, err)
		return
	}

	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, set := range h.connections {
		for c := range set {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	h.write(conns, data)
}

func (h *Hub) write(conns []*Connection, message []byte) {
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
