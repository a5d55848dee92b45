package ws

import (
	"context"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// TypingIdleTimeout clears a typing flag that is not refreshed. A client
// that goes silent stops being reported without having to publish an
// explicit not-typing state.
const TypingIdleTimeout = 3 * time.Second

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// TypingState is one member's published presence record. Last published
// state wins; no history is kept.
type TypingState struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Typing   bool   `json:"typing"`
}

// PresenceSync is the full snapshot of a conversation's typing state,
// already filtered to exclude the receiving client.
type PresenceSync struct {
	ConversationID string        `json:"conversation_id"`
	States         []TypingState `json:"states"`
}

type Client struct {
	UserID   string
	Username string
	Conn     *websocket.Conn
	Send     chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

type typingEntry struct {
	state TypingState
	timer *time.Timer
}

type room struct {
	members map[*Client]struct{}
	typing  map[string]*typingEntry
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	rooms   map[string]*room

	idleTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{
		clients:     map[string]map[*Client]struct{}{},
		rooms:       map[string]*room{},
		idleTimeout: TypingIdleTimeout,
	}
}

// AddClient registers a connection and starts its write and keepalive
// loops. The second return value is true when this is the user's first
// open connection.
func (h *Hub) AddClient(userID, username string, conn *websocket.Conn) (*Client, bool) {
	c, first := h.addClient(userID, username)
	c.Conn = conn

	go c.writeLoop()
	go c.keepAliveLoop()

	return c, first
}

func (h *Hub) addClient(userID, username string) (*Client, bool) {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		UserID:   userID,
		Username: username,
		Send:     make(chan Event, 64),
		ctx:      ctx,
		cancel:   cancel,
	}

	h.mu.Lock()
	first := len(h.clients[userID]) == 0
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	return c, first
}

// RemoveClient leaves every joined room, cancels pending typing timers
// and drops the connection. The second return value is true when the
// user has no connection left.
func (h *Hub) RemoveClient(c *Client) bool {
	c.cancel()

	h.mu.Lock()

	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	last := len(h.clients[c.UserID]) == 0

	var dirty []string
	for convID, r := range h.rooms {
		if _, ok := r.members[c]; !ok {
			continue
		}
		delete(r.members, c)
		if h.clearTypingLocked(r, c.UserID) {
			dirty = append(dirty, convID)
		}
		if len(r.members) == 0 {
			delete(h.rooms, convID)
		}
	}
	h.mu.Unlock()

	for _, convID := range dirty {
		h.broadcastSnapshot(convID)
	}

	if c.Conn != nil {
		_ = c.Conn.Close(websocket.StatusNormalClosure, "bye")
	}
	return last
}

// JoinRoom subscribes the client to a conversation's presence channel,
// publishes its initial not-typing state and delivers a snapshot.
func (h *Hub) JoinRoom(c *Client, conversationID string) {
	h.mu.Lock()
	r := h.rooms[conversationID]
	if r == nil {
		r = &room{
			members: map[*Client]struct{}{},
			typing:  map[string]*typingEntry{},
		}
		h.rooms[conversationID] = r
	}
	r.members[c] = struct{}{}
	h.setTypingLocked(r, conversationID, c, false)
	h.mu.Unlock()

	h.broadcastSnapshot(conversationID)
}

func (h *Hub) LeaveRoom(c *Client, conversationID string) {
	h.mu.Lock()
	r := h.rooms[conversationID]
	if r == nil {
		h.mu.Unlock()
		return
	}
	delete(r.members, c)
	h.clearTypingLocked(r, c.UserID)
	if len(r.members) == 0 {
		delete(h.rooms, conversationID)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	h.broadcastSnapshot(conversationID)
}

// SetTyping records the client's typing flag, last write wins. A true
// flag expires after the idle timeout unless refreshed.
func (h *Hub) SetTyping(c *Client, conversationID string, typing bool) {
	h.mu.Lock()
	r := h.rooms[conversationID]
	if r == nil {
		h.mu.Unlock()
		return
	}
	h.setTypingLocked(r, conversationID, c, typing)
	h.mu.Unlock()

	h.broadcastSnapshot(conversationID)
}

func (h *Hub) setTypingLocked(r *room, conversationID string, c *Client, typing bool) {
	entry := r.typing[c.UserID]
	if entry == nil {
		entry = &typingEntry{}
		r.typing[c.UserID] = entry
	}
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}

	entry.state = TypingState{UserID: c.UserID, Username: c.Username, Typing: typing}
	if typing {
		userID := c.UserID
		entry.timer = time.AfterFunc(h.idleTimeout, func() {
			h.expireTyping(conversationID, userID)
		})
	}
}

// clearTypingLocked removes a user's presence record. Reports whether
// the room's visible state changed.
func (h *Hub) clearTypingLocked(r *room, userID string) bool {
	entry, ok := r.typing[userID]
	if !ok {
		return false
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(r.typing, userID)
	return entry.state.Typing
}

func (h *Hub) expireTyping(conversationID, userID string) {
	h.mu.Lock()
	r := h.rooms[conversationID]
	if r == nil {
		h.mu.Unlock()
		return
	}
	entry := r.typing[userID]
	if entry == nil || !entry.state.Typing {
		h.mu.Unlock()
		return
	}
	entry.state.Typing = false
	entry.timer = nil
	h.mu.Unlock()

	h.broadcastSnapshot(conversationID)
}

// broadcastSnapshot sends each room member the full typing state minus
// their own record.
func (h *Hub) broadcastSnapshot(conversationID string) {
	h.mu.RLock()
	r := h.rooms[conversationID]
	if r == nil {
		h.mu.RUnlock()
		return
	}

	type delivery struct {
		client *Client
		ev     Event
	}
	deliveries := make([]delivery, 0, len(r.members))
	for c := range r.members {
		sync := PresenceSync{ConversationID: conversationID}
		for userID, entry := range r.typing {
			if userID == c.UserID {
				continue
			}
			sync.States = append(sync.States, entry.state)
		}
		deliveries = append(deliveries, delivery{c, Event{Type: "presence:sync", Data: sync}})
	}
	h.mu.RUnlock()

	for _, d := range deliveries {
		select {
		case d.client.Send <- d.ev:
		default:
			// best effort: full buffer drops the snapshot
		}
	}
}

// BroadcastToUsers fans an event out to every open connection of the
// given users.
func (h *Hub) BroadcastToUsers(userIDs []string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		for c := range h.clients[uid] {
			select {
			case c.Send <- ev:
			default:
				// drop on full buffer
			}
		}
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.Send:
			writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = wsjson.Write(writeCtx, c.Conn, ev)
			cancel()
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.Conn.Ping(pingCtx)
			cancel()
		}
	}
}
