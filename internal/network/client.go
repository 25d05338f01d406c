package network

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/engine"
	"github.com/medward/triage-server/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Minimum gap between actions from one connection.
	actionCooldown = 500 * time.Millisecond
)

// TeamAction represents an incoming command from a team console.
type TeamAction struct {
	Type    string          `json:"type"` // "DIAGNOSE"
	TeamID  string          `json:"team_id"`
	Payload json.RawMessage `json:"payload"`
}

// actionResponse is sent back on the submitting connection only.
type actionResponse struct {
	Type   string      `json:"type"`
	OK     bool        `json:"ok"`
	Error  string      `json:"error,omitempty"`
	Result interface{} `json:"result,omitempty"`
}

// Client holds one WebSocket connection and its send queue.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	lastActionTime time.Time
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// ReadPump pumps messages from the websocket connection into the engine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket read error: " + err.Error())
				metrics.Get().RecordWSError()
			}
			break
		}
		metrics.Get().RecordWSMessage(true)

		var action TeamAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Error("Failed to parse TeamAction from WebSocket: " + err.Error())
			continue
		}

		c.handleTeamAction(action)
	}
}

func (c *Client) handleTeamAction(action TeamAction) {
	// Rate limiting check
	if time.Since(c.lastActionTime) < actionCooldown {
		c.hub.logger.Warn("Rate limit exceeded for client action from " + action.TeamID)
		return
	}
	c.lastActionTime = time.Now()

	switch action.Type {
	case "DIAGNOSE":
		c.handleDiagnose(action)
	default:
		c.hub.logger.Warn("Unknown TeamAction type: " + action.Type)
	}
}

func (c *Client) handleDiagnose(action TeamAction) {
	var parsed struct {
		Department string `json:"department"`
	}
	if err := json.Unmarshal(action.Payload, &parsed); err != nil {
		c.hub.logger.Warn("Failed to parse diagnose payload for " + action.TeamID)
		c.reply(actionResponse{Type: "DIAGNOSE_RESULT", OK: false, Error: "malformed payload"})
		return
	}

	result, err := c.hub.engine.SubmitDiagnosis(action.TeamID, department.Name(parsed.Department))
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) || errors.Is(err, engine.ErrNoActiveCase) || errors.Is(err, engine.ErrGameNotInProgress) {
			c.reply(actionResponse{Type: "DIAGNOSE_RESULT", OK: false, Error: err.Error()})
			return
		}
		c.hub.logger.Error("SubmitDiagnosis failed: " + err.Error())
		c.reply(actionResponse{Type: "DIAGNOSE_RESULT", OK: false, Error: "internal error"})
		return
	}

	c.hub.logger.Event("PLAYER_ACTION_DIAGNOSE", action.TeamID, result.Message)
	c.reply(actionResponse{Type: "DIAGNOSE_RESULT", OK: true, Result: result})
}

func (c *Client) reply(resp actionResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
		metrics.Get().RecordWSMessage(false)
	default:
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
