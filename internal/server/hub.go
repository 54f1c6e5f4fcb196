package server

import (
	"encoding/json"
	"net/http"
	stdsync "sync"

	"github.com/gorilla/websocket"

	"github.com/bridgesync/bridgesync/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub fans push events out to every connected websocket subscriber.
type Hub struct {
	logger log.Log

	mu      stdsync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub returns an empty hub.
func NewHub(logger log.Log) *Hub {
	return &Hub{
		logger:  logger.With(log.String("component", "push_hub")),
		clients: make(map[*websocket.Conn]bool),
	}
}

// HandleSubscribe upgrades the request and registers the subscriber. The
// endpoint takes no parameters; a reconnecting client just dials again.
func (h *Hub) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("subscribe upgrade failed", log.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	h.logger.Debug("subscriber connected", log.String("remote", conn.RemoteAddr().String()))

	// Drain incoming frames so pings and close handshakes are processed;
	// subscribers never send application data.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

// Broadcast sends one named event with a JSON string payload to every
// subscriber. Slow or dead subscribers are dropped.
func (h *Hub) Broadcast(event, payload string) {
	frame, err := json.Marshal(map[string]string{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		h.logger.Error("event encode failed", log.Error(err))
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.drop(conn)
		}
	}
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	_ = conn.Close()
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
