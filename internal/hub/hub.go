// Package hub owns the room registry and the streaming broadcast engine:
// which live connections belong to which room, and fan-out of plain,
// partial, and typing envelopes to the members of one room.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/parleychat/parley/internal/auth"
	"github.com/parleychat/parley/internal/logger"
	"github.com/parleychat/parley/internal/models"
)

// Options tune delivery policy. Zero values fall back to defaults.
type Options struct {
	// EchoSelf controls whether a sender's own broadcasts are delivered
	// back to its connection.
	EchoSelf bool
	// SendBuffer is the per-connection outbound queue depth. A member
	// whose queue is full at delivery time is treated as failed and
	// removed from its room.
	SendBuffer int
	// Auth verifies tokens at connection upgrade. Required for HandleWS,
	// unused by the registry itself.
	Auth *auth.Service
	// Port and AllowedOrigins feed the upgrader's origin check.
	Port           int
	AllowedOrigins []string
}

// MessageHandler receives each non-typing inbound message after it has
// been broadcast, to run trigger classification and agent invocations.
type MessageHandler interface {
	HandleMessage(room, username, text string)
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room

	echoSelf   bool
	sendBuffer int

	auth    *auth.Service
	port    int
	origins []string

	handlerMu sync.RWMutex
	handler   MessageHandler
}

// room is one named membership set with its own lock, so broadcasts in
// unrelated rooms never contend.
type room struct {
	mu      sync.Mutex
	members map[*Client]bool
}

func New(opts Options) *Hub {
	buf := opts.SendBuffer
	if buf <= 0 {
		buf = 64
	}
	return &Hub{
		rooms:      make(map[string]*room),
		echoSelf:   opts.EchoSelf,
		sendBuffer: buf,
		auth:       opts.Auth,
		port:       opts.Port,
		origins:    opts.AllowedOrigins,
	}
}

// SetMessageHandler wires the trigger pipeline. Must be called before
// connections are served; may be left unset in tests.
func (h *Hub) SetMessageHandler(mh MessageHandler) {
	h.handlerMu.Lock()
	h.handler = mh
	h.handlerMu.Unlock()
}

func (h *Hub) messageHandler() MessageHandler {
	h.handlerMu.RLock()
	defer h.handlerMu.RUnlock()
	return h.handler
}

// Join registers a client as a member of the named room, creating the
// room on first join. Joining twice is safe and does not duplicate the
// membership entry.
func (h *Hub) Join(c *Client, roomName string) {
	h.mu.Lock()
	r, ok := h.rooms[roomName]
	if !ok {
		r = &room{members: make(map[*Client]bool)}
		h.rooms[roomName] = r
	}
	r.mu.Lock()
	r.members[c] = true
	r.mu.Unlock()
	h.mu.Unlock()

	logger.WS("joined", c.Username+" → "+roomName)
}

// Leave removes a client from the named room and closes its outbound
// queue. Removing the last member drops the room from the registry.
// Leaving a room the client is not a member of is a no-op, which covers
// disconnect races.
func (h *Hub) Leave(c *Client, roomName string) {
	h.mu.Lock()
	r, ok := h.rooms[roomName]
	if !ok {
		h.mu.Unlock()
		return
	}
	r.mu.Lock()
	wasMember := r.members[c]
	delete(r.members, c)
	empty := len(r.members) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, roomName)
	}
	h.mu.Unlock()

	if wasMember {
		c.closeSend()
		logger.WS("left", c.Username+" ← "+roomName)
	}
}

// Broadcast delivers a plain envelope to every current member of the
// room. sender may be nil for system- or agent-attributed envelopes;
// when self-echo is disabled the sender's own connection is skipped.
func (h *Hub) Broadcast(roomName, message, username string, sender *Client) {
	h.deliver(roomName, models.PlainEnvelope(message, username), sender)
}

// BroadcastPartial delivers one accumulated streaming snapshot.
func (h *Hub) BroadcastPartial(roomName, message, username string) {
	h.deliver(roomName, models.PartialEnvelope(message, username), nil)
}

// BroadcastTyping delivers a typing indicator attributed to username.
func (h *Hub) BroadcastTyping(roomName, username string, sender *Client) {
	h.deliver(roomName, models.TypingEnvelope(username), sender)
}

// deliver fans one envelope out to the room's membership as observed at
// a single consistent instant. Delivery to each member is a non-blocking
// enqueue on its bounded send queue; a member that cannot accept the
// envelope is removed from the room on the spot so one dead or stalled
// connection never blocks the rest.
func (h *Hub) deliver(roomName string, env models.Envelope, sender *Client) {
	data, err := json.Marshal(env)
	if err != nil {
		logger.Error("Failed to marshal envelope: %v", err)
		return
	}

	h.mu.RLock()
	r, ok := h.rooms[roomName]
	h.mu.RUnlock()
	if !ok {
		return
	}

	var failed []*Client
	r.mu.Lock()
	for c := range r.members {
		if !h.echoSelf && c == sender {
			continue
		}
		select {
		case c.send <- data:
		default:
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		delete(r.members, c)
	}
	empty := len(r.members) == 0
	r.mu.Unlock()

	for _, c := range failed {
		c.closeSend()
		logger.WS("dropped", c.Username+" ← "+roomName)
	}
	if empty {
		h.dropIfEmpty(roomName, r)
	}
}

// dropIfEmpty removes the registry entry for a room that was observed
// empty, re-checking under the write lock in case a join raced in.
func (h *Hub) dropIfEmpty(roomName string, r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomName] != r {
		return
	}
	r.mu.Lock()
	empty := len(r.members) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, roomName)
	}
}

// RoomSize reports the current member count of a room, 0 if absent.
func (h *Hub) RoomSize(roomName string) int {
	h.mu.RLock()
	r, ok := h.rooms[roomName]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// HasRoom reports whether the registry currently tracks the room.
func (h *Hub) HasRoom(roomName string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomName]
	return ok
}
