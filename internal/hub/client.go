package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/parleychat/parley/internal/logger"
	"github.com/parleychat/parley/internal/models"
)

// SystemUser attributes presence notices and error notices on the wire.
const SystemUser = "System"

// Client is one live connection: exactly one authenticated identity and
// exactly one room for its whole lifetime. The hub holds it only while
// it is a member of that room.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once

	Username string
	Room     string
}

// NewClient wires a connection into the hub's delivery machinery. conn
// may be nil in tests that only exercise the registry.
func (h *Hub) NewClient(conn *websocket.Conn, username, roomName string) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, h.sendBuffer),
		Username: username,
		Room:     roomName,
	}
}

func (c *Client) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// HandleWS upgrades a request on /ws/{room}, verifies the token, joins
// the room, and starts the connection's pumps. An invalid token closes
// the socket with a policy-violation code before any join happens.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomName := chi.URLParam(r, "room")
	if roomName == "" {
		http.Error(w, "room required", http.StatusBadRequest)
		return
	}

	// Token from query param (browser WebSocket API cannot set headers)
	// or Authorization header.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 {
				tokenStr = parts[1]
			}
		}
	}

	username := ""
	if tokenStr != "" && h.auth != nil {
		if claims, err := h.auth.ValidateToken(tokenStr); err == nil {
			username = claims.Username
		}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	if username == "" {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"))
		conn.Close()
		return
	}

	client := h.NewClient(conn, username, roomName)
	h.Join(client, roomName)
	h.Broadcast(roomName, username+" has joined the chat", SystemUser, client)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser clients
	}
	allowed := append([]string{
		fmt.Sprintf("http://localhost:%d", h.port),
		fmt.Sprintf("http://127.0.0.1:%d", h.port),
	}, h.origins...)
	for _, a := range allowed {
		if origin == a {
			return true
		}
	}
	return false
}

// readPump drives one connection's receive loop until the transport
// fails, then leaves the room and announces the departure. Nothing a
// single message does may unwind past this loop.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c, c.Room)
		c.conn.Close()
		c.hub.Broadcast(c.Room, c.Username+" has left the chat", SystemUser, nil)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var frame models.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Lenient fallback: a payload that is not valid JSON is
			// relayed as plain text rather than dropping the connection.
			frame = models.InboundFrame{Message: string(data)}
		}

		switch frame.Event {
		case models.EventTyping:
			c.hub.BroadcastTyping(c.Room, c.Username, c)
		default:
			if frame.Message == "" {
				continue
			}
			c.hub.Broadcast(c.Room, frame.Message, c.Username, c)
			if mh := c.hub.messageHandler(); mh != nil {
				// Agent invocations run on their own goroutine so a
				// slow generation never stalls this receive loop.
				go mh.HandleMessage(c.Room, c.Username, frame.Message)
			}
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
