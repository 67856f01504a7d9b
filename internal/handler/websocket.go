package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"credential-client/internal/app"
	"credential-client/internal/hub"
	"credential-client/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait  = 60 * time.Second
	writeWait = 10 * time.Second
)

type WebSocketHandler struct {
	Hub *hub.Hub
	App *app.Controller
}

type clientMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsWriter serializes writes; gorilla connections allow one writer at a time
// and the hub writes from controller goroutines.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) Write(message []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

func (w *wsWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

func (h *WebSocketHandler) writeJSON(w *wsWriter, msg hub.Message) {
	out, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = w.Write(out)
}

// Serve streams controller events to one view. The first frame is a snapshot
// of the status and the visible notifications.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	viewerID, ok := middleware.ViewerIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid view token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	writer := &wsWriter{conn: ws}
	conn := &hub.Connection{ViewerID: viewerID, Writer: writer}
	h.writeJSON(writer, hub.Message{Type: "snapshot", Body: gin.H{
		"status":        h.App.Status(),
		"notifications": h.App.Notifications(),
	}})
	h.Hub.Register(conn)
	defer func() {
		h.Hub.Unregister(conn)
		_ = ws.Close()
	}()

	ws.SetReadLimit(64 * 1024)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pongWait * 9 / 10)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := writer.ping(); err != nil {
					_ = ws.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "ping":
			h.writeJSON(writer, hub.Message{Type: "pong"})
		case "dismiss":
			if msg.ID != "" {
				h.App.Dismiss(msg.ID)
			}
		case "status":
			// every tab of this viewer resyncs, not only the asking one
			out, err := json.Marshal(hub.Message{Type: "status", Body: h.App.Status()})
			if err == nil {
				h.Hub.Send(viewerID, out)
			}
		}
	}
}
