// -------------------------------------------------------------------------
// Last Modified: Friday, 28th August 2026
// Modified By: Bob McAllan
// -------------------------------------------------------------------------

package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indago/internal/interfaces"
)

const writeWait = 10 * time.Second

// WebSocketHandler streams queue and index lifecycle events to
// connected clients
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	logger   arbor.ILogger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	// writeMu serializes broadcasts; gorilla connections allow only
	// one concurrent writer
	writeMu sync.Mutex
}

// wsMessage is the frame sent to clients for every event
type wsMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewWebSocketHandler creates a websocket handler and subscribes it to
// every queue and index event
func NewWebSocketHandler(events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local tooling connects from any origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}

	if events != nil {
		eventTypes := []interfaces.EventType{
			interfaces.EventJobAdded,
			interfaces.EventJobStarted,
			interfaces.EventJobProgress,
			interfaces.EventJobCompleted,
			interfaces.EventJobRetrying,
			interfaces.EventJobFailed,
			interfaces.EventJobRemoved,
			interfaces.EventIndexReady,
		}
		for _, eventType := range eventTypes {
			if err := events.Subscribe(eventType, h.handleEvent); err != nil {
				logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to subscribe websocket handler")
			}
		}
	}

	return h
}

// HandleWebSocket upgrades the connection and registers the client
// GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Int("clients", count).Msg("WebSocket client connected")

	// Read loop only to detect disconnects; inbound messages are ignored
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// handleEvent bridges bus events to connected clients
func (h *WebSocketHandler) handleEvent(ctx context.Context, event interfaces.Event) error {
	h.broadcast(wsMessage{
		Type:      string(event.Type),
		Payload:   event.Payload,
		Timestamp: time.Now(),
	})
	return nil
}

func (h *WebSocketHandler) broadcast(msg wsMessage) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.removeClient(conn)
		}
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// Close disconnects all clients
func (h *WebSocketHandler) Close() {
	h.mu.Lock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()
}
