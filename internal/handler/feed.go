package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"askbox/internal/apierr"
	"askbox/internal/hub"
	"askbox/internal/middleware"
)

// FeedHandler streams newly created asks to admin websocket clients.
type FeedHandler struct {
	Hub *hub.Hub
}

type clientMessage struct {
	Type string `json:"type"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	pongWait  = 60 * time.Second
	writeWait = 10 * time.Second
)

// wsWriter serializes writes; gorilla connections allow one writer at a time.
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

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

// Serve upgrades the request. ?askee=<id> narrows the feed to one askee;
// without it every new ask is delivered.
func (h *FeedHandler) Serve(c *gin.Context) {
	askee := hub.AllAskees
	if raw := c.Query("askee"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || id <= 0 {
			middleware.AbortWithError(c, apierr.New(apierr.InvalidRequest))
			return
		}
		askee = id
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("feed upgrade failed", "error", err, "request_id", middleware.RequestIDFromContext(c))
		return
	}

	conn := &hub.Connection{Askee: askee, Writer: &wsWriter{conn: ws}}
	h.Hub.Register(conn)
	slog.Info("feed subscriber connected", "askee", askee, "subscribers", h.Hub.Count())
	defer func() {
		h.Hub.Unregister(conn)
		_ = ws.Close()
		slog.Info("feed subscriber disconnected", "askee", askee)
	}()

	ws.SetReadLimit(4096)
	pingPeriod := (pongWait * 9) / 10

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() {
		closeOnce.Do(func() {
			close(done)
		})
	}
	defer closeDone()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(writeWait)
				if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
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
		if msg.Type == "ping" {
			out, _ := json.Marshal(hub.Event{Type: "pong"})
			_ = conn.Writer.Write(out)
		}
	}
}
