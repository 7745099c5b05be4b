package network

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clinicrush/server/internal/domain/station"
	"github.com/clinicrush/server/internal/engine"
	"github.com/clinicrush/server/internal/platform/metrics"
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
	// Minimum gap between accepted actions from one client.
	actionCooldown = 50 * time.Millisecond
)

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type      string `json:"type"` // "START", "PAUSE", "RESUME", "RESTART", "ASSIGN"
	PatientID string `json:"patient_id,omitempty"`
	Station   string `json:"station,omitempty"`
}

// ActionResult is the per-action feedback frame sent back to the
// issuing client only. Broadcast state flows through the event stream.
type ActionResult struct {
	Type   string `json:"type"` // always "ACTION_RESULT"
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// Client represents an active WebSocket connection.
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

// ReadPump pumps messages from the websocket connection to the controller.
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
				log.Printf("error: %v", err)
				metrics.Get().RecordWSError()
			}
			break
		}
		metrics.Get().RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Error("Failed to parse PlayerAction from WebSocket. err: " + err.Error())
			continue
		}

		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) {
	// Clicks faster than a human can produce are dropped outright.
	if time.Since(c.lastActionTime) < actionCooldown {
		c.hub.logger.Warn("Rate limit exceeded for client action " + action.Type)
		return
	}
	c.lastActionTime = time.Now()

	var err error
	switch action.Type {
	case "START":
		err = c.hub.controller.Start()
	case "PAUSE":
		err = c.hub.controller.Pause()
	case "RESUME":
		err = c.hub.controller.Resume()
	case "RESTART":
		err = c.hub.controller.Restart()
	case "ASSIGN":
		err = c.hub.controller.AssignPatient(action.PatientID, station.Kind(action.Station))
	default:
		c.hub.logger.Warn("Unknown PlayerAction type: " + action.Type)
		err = errors.New("unknown action type")
	}

	c.sendResult(action.Type, err)
}

// sendResult pushes the feedback frame for one action to this client.
func (c *Client) sendResult(actionType string, err error) {
	result := ActionResult{Type: "ACTION_RESULT", Action: actionType, OK: err == nil}
	if err != nil {
		result.Error = errorCode(err)
	}
	frame, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return
	}
	select {
	case c.send <- frame:
		metrics.Get().RecordWSMessage(false)
	default:
		// Client too slow; the pump will close it.
	}
}

// errorCode maps controller errors to stable wire strings.
func errorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, engine.ErrPatientNotFound):
		return "PATIENT_NOT_FOUND"
	case errors.Is(err, engine.ErrWrongStation):
		return "WRONG_STATION"
	case errors.Is(err, engine.ErrStationOccupied):
		return "STATION_OCCUPIED"
	default:
		return err.Error()
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
