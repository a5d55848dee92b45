package api

import (
	"log"
	"net/http"

	"convo-backend/internal/models"
	"convo-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListMessages returns a conversation's messages oldest first. Before
// returning it sweeps is_read over everything the caller did not send;
// the sweep is idempotent and runs on every fetch.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	ctx := c.Request.Context()
	member, err := h.isMember(ctx, conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this conversation"})
		return
	}

	sweep := `
		UPDATE messages
		SET is_read = TRUE
		WHERE conversation_id = $1 AND sender_id IS DISTINCT FROM $2 AND is_read = FALSE
	`
	_, _ = h.db.Exec(ctx, sweep, conversationID, userID)

	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.message_type, m.file_url, m.file_name, m.is_read, m.created_at,
			   p.id, p.username, p.display_name, p.avatar_url, p.is_online, p.last_seen_at
		FROM messages m
		LEFT JOIN profiles p ON p.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC
	`

	rows, err := h.db.Query(ctx, query, conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var pID *uuid.UUID
		var p models.ProfileSummary
		var username, displayName, avatarURL *string
		var isOnline *bool
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.MessageType,
			&msg.FileURL, &msg.FileName, &msg.IsRead, &msg.CreatedAt,
			&pID, &username, &displayName, &avatarURL, &isOnline, &p.LastSeenAt,
		); err != nil {
			continue
		}
		if pID != nil {
			p.ID = *pID
			p.Username = *username
			p.DisplayName = *displayName
			p.AvatarURL = *avatarURL
			p.IsOnline = *isOnline
			msg.Sender = &p
		}
		messages = append(messages, msg)
	}

	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

// SendMessage inserts a message and touches the conversation's
// updated_at so the list reorders. The touch is best effort: a failure
// is logged, never surfaced. Connected members receive the new row
// over the hub for their append-only local logs.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.MessageType == "" {
		req.MessageType = models.MessageTypeText
	}
	if req.Content == "" && req.FileURL == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message must have content or a file"})
		return
	}
	// A file-only message displays its file name
	if req.Content == "" && req.FileName != nil {
		req.Content = *req.FileName
	}

	ctx := c.Request.Context()
	member, err := h.isMember(ctx, conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this conversation"})
		return
	}

	query := `
		INSERT INTO messages (conversation_id, sender_id, content, message_type, file_url, file_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, conversation_id, sender_id, content, message_type, file_url, file_name, is_read, created_at
	`

	var msg models.Message
	err = h.db.QueryRow(ctx, query,
		conversationID, userID, req.Content, req.MessageType, req.FileURL, req.FileName,
	).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.MessageType,
		&msg.FileURL, &msg.FileName, &msg.IsRead, &msg.CreatedAt,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	if _, err := h.db.Exec(ctx, "UPDATE conversations SET updated_at = NOW() WHERE id = $1", conversationID); err != nil {
		log.Printf("failed to touch conversation %s: %v", conversationID, err)
	}

	var sender models.ProfileSummary
	if err := h.db.QueryRow(ctx,
		"SELECT id, username, display_name, avatar_url, is_online, last_seen_at FROM profiles WHERE id = $1", userID,
	).Scan(&sender.ID, &sender.Username, &sender.DisplayName, &sender.AvatarURL, &sender.IsOnline, &sender.LastSeenAt); err == nil {
		msg.Sender = &sender
	}

	if memberIDs, err := h.memberUserIDs(ctx, conversationID); err == nil {
		targets := make([]string, 0, len(memberIDs))
		for _, id := range memberIDs {
			targets = append(targets, id.String())
		}
		h.hub.BroadcastToUsers(targets, ws.Event{Type: "message:new", Data: msg})
	}

	c.JSON(http.StatusCreated, msg)
}

// DeleteMessage removes a message; only its sender may do so.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	ctx := c.Request.Context()
	tag, err := h.db.Exec(ctx, "DELETE FROM messages WHERE id = $1 AND sender_id = $2", messageID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete message"})
		return
	}
	if tag.RowsAffected() == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the sender can delete a message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}
