// Package network is the realtime surface of the server: a WebSocket
// hub pushing world and map events to connected frontends, plus the
// REST control API the player drives the simulation with.
package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/platform/metrics"
	"github.com/ziv044/PM1/internal/world"
)

// Message is the envelope every broadcast rides in.
type Message struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	logger     *logger.Logger
	router     CommandRouter
}

// NewHub initializes a new WebSocket Hub. The router handles inbound
// player commands and may be nil for broadcast-only hubs.
func NewHub(router CommandRouter, log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     log,
		router:     router,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.Get().RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
					metrics.Get().RecordWSConnection(-1)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast wraps a payload in the message envelope and fans it out.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: msgType, Timestamp: time.Now().UTC(), Payload: payload})
	if err != nil {
		h.logger.Error("Failed to serialize %s broadcast: %v", msgType, err)
		return
	}
	metrics.Get().RecordWSMessage()
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Broadcast queue full, dropping %s message", msgType)
	}
}

// BroadcastWorldEvent pushes one public world event to every client.
func (h *Hub) BroadcastWorldEvent(e world.Event) {
	h.Broadcast("world_event", e)
}

// BroadcastGeoEvent pushes one map overlay event to every client.
func (h *Hub) BroadcastGeoEvent(e geo.GeoEvent) {
	h.Broadcast("geo_event", e)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// StartEventPoller spawns a goroutine that watches the world and the
// map for new public events and pushes them to the Hub. Private events
// never leave the server.
func (h *Hub) StartEventPoller(ctx context.Context, state *world.State, mapState *geo.MapState, interval time.Duration) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		seenWorld := make(map[string]struct{})
		seenGeo := make(map[string]struct{})

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, e := range state.RecentEvents(50, true) {
					if _, ok := seenWorld[e.ID]; ok {
						continue
					}
					seenWorld[e.ID] = struct{}{}
					h.BroadcastWorldEvent(e)
				}
				for _, ge := range mapState.ActiveGeoEvents() {
					if _, ok := seenGeo[ge.ID]; ok {
						continue
					}
					seenGeo[ge.ID] = struct{}{}
					h.BroadcastGeoEvent(ge)
				}
			}
		}
	}()
}
