// Package websocket pushes pipeline refresh events to connected
// dashboard clients. The hub holds the client set; each client runs a
// read pump and a write pump over one gorilla/websocket connection.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Event types pushed to dashboard clients.
const (
	TypeConnection      = "connection"
	TypeSnapshotRefresh = "snapshot:refresh"
	TypeStatus          = "status"
)

// Hub maintains the set of active clients and broadcasts events to
// them. Slow clients are disconnected rather than blocking the
// broadcast loop.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}

	totalConnections int64
	messagesSent     int64

	logger *slog.Logger
}

// NewHub creates a hub. Call Start before registering clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start launches the hub loop.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			client.sendJSON(map[string]any{
				"type": TypeConnection,
				"data": map[string]any{
					"status":    "connected",
					"client_id": client.id,
				},
				"timestamp": time.Now().Format(time.RFC3339),
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("client unregistered",
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", count))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- message:
					h.mu.Lock()
					h.messagesSent++
					h.mu.Unlock()
				default:
					// Send buffer full: drop the client
					h.mu.Lock()
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
					h.mu.Unlock()
					h.logger.Warn("client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
		}
	}
}

// NotifyRefresh broadcasts a snapshot:refresh event after a pipeline
// run, carrying the run id and headline counts for the dashboard.
func (h *Hub) NotifyRefresh(runID string, units int, fetchedAt time.Time) {
	h.broadcastJSON(map[string]any{
		"type": TypeSnapshotRefresh,
		"data": map[string]any{
			"run_id":     runID,
			"units":      units,
			"fetched_at": fetchedAt.Format(time.RFC3339),
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastStatus pushes a free-form status event.
func (h *Hub) BroadcastStatus(status, message string) {
	h.broadcastJSON(map[string]any{
		"type": TypeStatus,
		"data": map[string]any{
			"status":  status,
			"message": message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Hub) broadcastJSON(message map[string]any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("marshal broadcast message", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop shuts the hub down and closes all client connections.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Register queues a client for registration with the hub loop.
func (h *Hub) Register(client *Client) {
	h.register <- client
}
