package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Hub fans monitoring events out to connected websocket clients. It
// implements monitor.Broadcaster.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handle upgrades the connection and keeps it registered until the client
// goes away. Inbound messages are drained and ignored.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.logger.Info("live feed client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends {type, payload} to every connected client. Clients that
// fail a write are dropped.
func (h *Hub) Broadcast(messageType string, payload any) {
	message := map[string]any{
		"type":    messageType,
		"payload": payload,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(message); err != nil {
			h.logger.WithError(err).Error("live feed write failed, dropping client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
