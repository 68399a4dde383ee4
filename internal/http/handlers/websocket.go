package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/devsantiago69/Citaly-sub002/internal/auth"
	"github.com/devsantiago69/Citaly-sub002/internal/presence"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// inboundMessage is what clients send over the socket
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WebSocketHandler upgrades connections and bridges them into the
// presence registry
type WebSocketHandler struct {
	registry    *presence.Registry
	authService *auth.Service
	log         zerolog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(registry *presence.Registry, authService *auth.Service, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		registry:    registry,
		authService: authService,
		log:         log.With().Str("component", "websocket").Logger(),
	}
}

// Upgrader configures the websocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware already guards the HTTP surface
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsClient is one live connection. It implements presence.Sender with a
// non-blocking buffered send: a client that cannot keep up is closed, not
// waited on.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan presence.Message
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// Send implements presence.Sender. Safe to call after shutdown; late
// deliveries to a closing connection are dropped.
func (c *wsClient) Send(msg presence.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.log.Warn().Str("connection_id", c.id).Msg("send buffer full, closing slow client")
		c.closed = true
		close(c.send)
	}
}

func (c *wsClient) shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// HandleWebSocket handles WebSocket connection upgrades.
// Connections start unidentified; they become visible to the presence
// layer after an `authenticate` message or, as a shortcut, a valid JWT in
// the `token` query parameter.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	client := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan presence.Message, 256),
		log:  h.log,
	}

	h.registry.Track(client.id, client)
	h.log.Info().Str("connection_id", client.id).Msg("WebSocket client connected")

	client.Send(presence.Message{
		Type: "connection",
		Data: map[string]any{"status": "connected", "connection_id": client.id},
	})

	if token := c.QueryParam("token"); token != "" {
		h.identifyFromToken(client.id, token)
	}

	go client.writePump()
	go client.readPump(h)

	return nil
}

// identifyFromToken treats a valid JWT as an authenticate event
func (h *WebSocketHandler) identifyFromToken(connID, token string) {
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		h.log.Warn().Err(err).Str("connection_id", connID).Msg("invalid websocket token, staying unidentified")
		return
	}
	identity := presence.Identity{
		UserID:    claims.UserID,
		CompanyID: claims.CompanyID,
		Name:      claims.Name,
		Role:      claims.Role,
	}
	if err := h.registry.Identify(connID, identity); err != nil {
		h.log.Warn().Err(err).Str("connection_id", connID).Msg("token identify rejected")
	}
}

// readPump handles reading messages from the WebSocket
func (c *wsClient) readPump(h *WebSocketHandler) {
	defer func() {
		h.registry.Drop(c.id)
		c.shutdown()
		c.conn.Close()
	}()

	// 30s read deadline, refreshed by pongs; writePump pings every 20s
	c.conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Str("connection_id", c.id).Msg("WebSocket read error")
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		h.dispatch(c, msg)
	}
}

// dispatch routes one inbound client message
func (h *WebSocketHandler) dispatch(c *wsClient, msg inboundMessage) {
	switch msg.Type {
	case "authenticate":
		var identity presence.Identity
		if err := json.Unmarshal(msg.Data, &identity); err != nil {
			h.log.Warn().Err(err).Str("connection_id", c.id).Msg("malformed authenticate payload")
			c.Send(presence.Message{Type: "error", Data: map[string]any{"message": "malformed authenticate payload"}})
			return
		}
		if err := h.registry.Identify(c.id, identity); err != nil {
			h.log.Warn().Err(err).Str("connection_id", c.id).Msg("authenticate rejected")
			c.Send(presence.Message{Type: "error", Data: map[string]any{"message": err.Error()}})
		}

	case "join_room":
		if room := decodeRoom(msg.Data); room != "" {
			h.registry.JoinRoom(c.id, room)
		}

	case "leave_room":
		if room := decodeRoom(msg.Data); room != "" {
			h.registry.LeaveRoom(c.id, room)
		}

	case "ping":
		c.Send(presence.Message{Type: "pong", Data: map[string]any{"status": "ok"}})
	}
}

// decodeRoom accepts either a bare JSON string or {"room": "..."}
func decodeRoom(data json.RawMessage) string {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return name
	}
	var wrapped struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		return wrapped.Room
	}
	return ""
}

// writePump handles writing messages to the WebSocket
func (c *wsClient) writePump() {
	ticker := time.NewTicker(20 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Warn().Err(err).Str("connection_id", c.id).Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
