package api

import (
	"context"
	"log"
	"net/http"

	"convo-backend/internal/auth"
	"convo-backend/internal/database"
	"convo-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type WSHandler struct {
	hub        *ws.Hub
	db         *database.Database
	jwtManager *auth.JWTManager

	// InsecureSkipVerify bypasses origin checks; dev only.
	InsecureSkipVerify bool
}

func NewWSHandler(hub *ws.Hub, db *database.Database, jwtManager *auth.JWTManager) *WSHandler {
	return &WSHandler{hub: hub, db: db, jwtManager: jwtManager}
}

// clientEvent is what a connected client publishes: joining/leaving a
// conversation's presence channel and its typing flag.
type clientEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Typing         bool   `json:"typing"`
}

// Handle upgrades the connection and pumps client events into the hub.
// Browser websockets cannot set an Authorization header, so the token
// travels as a query param.
func (h *WSHandler) Handle(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	claims, err := h.jwtManager.VerifyToken(tokenStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	opts := &websocket.AcceptOptions{}
	if h.InsecureSkipVerify {
		opts.InsecureSkipVerify = true
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		return // Accept already wrote the error response
	}

	client, first := h.hub.AddClient(claims.UserID, claims.Username, conn)
	if first {
		h.setOnline(claims.UserID, true)
	}
	defer func() {
		if last := h.hub.RemoveClient(client); last {
			h.setOnline(claims.UserID, false)
		}
	}()

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return
	}

	for {
		var ev clientEvent
		if err := wsjson.Read(c.Request.Context(), conn, &ev); err != nil {
			return
		}

		conversationID, err := uuid.Parse(ev.ConversationID)
		if err != nil {
			continue
		}

		switch ev.Type {
		case "presence:join":
			// Only members may observe a conversation's presence
			member, err := h.isConversationMember(c.Request.Context(), conversationID, userID)
			if err != nil || !member {
				continue
			}
			h.hub.JoinRoom(client, ev.ConversationID)
		case "presence:leave":
			h.hub.LeaveRoom(client, ev.ConversationID)
		case "typing":
			h.hub.SetTyping(client, ev.ConversationID, ev.Typing)
		}
	}
}

func (h *WSHandler) isConversationMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var count int
	err := h.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM conversation_members WHERE conversation_id = $1 AND user_id = $2",
		conversationID, userID,
	).Scan(&count)
	return count > 0, err
}

// setOnline flips the profile's online flag, best effort.
func (h *WSHandler) setOnline(userID string, online bool) {
	var query string
	if online {
		query = "UPDATE profiles SET is_online = TRUE, updated_at = NOW() WHERE id = $1"
	} else {
		query = "UPDATE profiles SET is_online = FALSE, last_seen_at = NOW(), updated_at = NOW() WHERE id = $1"
	}
	if _, err := h.db.Exec(context.Background(), query, userID); err != nil {
		log.Printf("failed to update online flag for %s: %v", userID, err)
	}
}
