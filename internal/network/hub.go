package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/medward/triage-server/internal/engine"
	"github.com/medward/triage-server/internal/events"
	"github.com/medward/triage-server/internal/platform/logger"
	"github.com/medward/triage-server/internal/platform/metrics"
)

// Hub maintains the set of active clients and broadcasts game events to
// them. Spectators and team consoles share the same feed.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	logger     *logger.Logger
	engine     *engine.Engine
}

// NewHub initializes a new WebSocket Hub bound to the game engine.
func NewHub(eng *engine.Engine, log *logger.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     log,
		engine:     eng,
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
					metrics.Get().RecordWSMessage(false)
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent serializes a GameEvent and sends it to all connected clients.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to serialize GameEvent for WebSocket broadcast: " + err.Error())
		metrics.Get().RecordWSError()
		return
	}
	h.broadcast <- payload
}

// StartEventPoller spawns a goroutine to poll the EventLog and push new
// events to the Hub. The Hub stays decoupled from the engine's call path
// while picking up the same history.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	go func() {
		pollInterval := time.NewTicker(200 * time.Millisecond)
		defer pollInterval.Stop()

		lastProcessedEvent := 0

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				allEvents := eventLog.Replay()
				newEventsCount := len(allEvents) - lastProcessedEvent

				if newEventsCount > 0 {
					newEvents := allEvents[lastProcessedEvent:]
					for _, event := range newEvents {
						h.BroadcastEvent(event)
					}
					lastProcessedEvent = len(allEvents)
				}
			}
		}
	}()
}
