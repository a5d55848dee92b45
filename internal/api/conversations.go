package api

import (
	"context"
	"net/http"

	"convo-backend/internal/database"
	"convo-backend/internal/models"
	"convo-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatHandler struct {
	db  *database.Database
	hub *ws.Hub
}

func NewChatHandler(db *database.Database, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{db: db, hub: hub}
}

func (h *ChatHandler) isMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var count int
	err := h.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM conversation_members WHERE conversation_id = $1 AND user_id = $2",
		conversationID, userID,
	).Scan(&count)
	return count > 0, err
}

func (h *ChatHandler) memberUserIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := h.db.Query(ctx,
		"SELECT user_id FROM conversation_members WHERE conversation_id = $1", conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListConversations returns the caller's conversations fully joined:
// members, most recent message and, for direct conversations, the
// counterpart profile. Sorted by last activity, newest first. This is
// the snapshot clients refetch whenever a change notification fires.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	query := `
		SELECT cv.id, cv.is_group, cv.name, cv.image_url, cv.creator_id, cv.created_at, cv.updated_at
		FROM conversations cv
		JOIN conversation_members cm ON cm.conversation_id = cv.id
		WHERE cm.user_id = $1
		ORDER BY cv.updated_at DESC
	`

	rows, err := h.db.Query(ctx, query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}
	defer rows.Close()

	var conversations []models.ConversationSummary
	for rows.Next() {
		var cs models.ConversationSummary
		if err := rows.Scan(
			&cs.ID, &cs.IsGroup, &cs.Name, &cs.ImageURL, &cs.CreatorID, &cs.CreatedAt, &cs.UpdatedAt,
		); err != nil {
			continue
		}
		conversations = append(conversations, cs)
	}
	rows.Close()

	for i := range conversations {
		cs := &conversations[i]

		members, err := h.loadMembers(ctx, cs.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation members"})
			return
		}
		cs.Members = members

		if !cs.IsGroup {
			for _, m := range members {
				if m.UserID != userID && m.Profile != nil {
					p := *m.Profile
					cs.Counterpart = &p
					break
				}
			}
		}

		last, err := h.loadLastMessage(ctx, cs.ID)
		if err == nil {
			cs.LastMessage = last
		}
	}

	if conversations == nil {
		conversations = []models.ConversationSummary{}
	}
	c.JSON(http.StatusOK, conversations)
}

func (h *ChatHandler) loadMembers(ctx context.Context, conversationID uuid.UUID) ([]models.ConversationMember, error) {
	query := `
		SELECT cm.id, cm.conversation_id, cm.user_id, cm.is_admin, cm.joined_at,
			   p.id, p.username, p.display_name, p.avatar_url, p.is_online, p.last_seen_at
		FROM conversation_members cm
		JOIN profiles p ON p.id = cm.user_id
		WHERE cm.conversation_id = $1
		ORDER BY cm.joined_at ASC
	`

	rows, err := h.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.ConversationMember
	for rows.Next() {
		var m models.ConversationMember
		var p models.ProfileSummary
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.UserID, &m.IsAdmin, &m.JoinedAt,
			&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.IsOnline, &p.LastSeenAt,
		); err != nil {
			continue
		}
		m.Profile = &p
		members = append(members, m)
	}
	return members, nil
}

func (h *ChatHandler) loadLastMessage(ctx context.Context, conversationID uuid.UUID) (*models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.message_type, m.file_url, m.file_name, m.is_read, m.created_at
		FROM messages m
		WHERE m.conversation_id = $1
		ORDER BY m.created_at DESC
		LIMIT 1
	`

	var msg models.Message
	err := h.db.QueryRow(ctx, query, conversationID).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.MessageType,
		&msg.FileURL, &msg.FileName, &msg.IsRead, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreateConversation creates a direct or group conversation together
// with its membership rows in a single transaction, so a failed member
// insert never leaves an orphaned conversation behind.
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Membership is the deduplicated union of {creator, invitees}
	seen := map[uuid.UUID]bool{userID: true}
	memberIDs := []uuid.UUID{userID}
	for _, id := range req.MemberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		memberIDs = append(memberIDs, id)
	}

	if !req.IsGroup {
		if len(memberIDs) != 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A direct conversation needs exactly one other member"})
			return
		}
		// Direct conversations never carry a name or image
		req.Name = ""
		req.ImageURL = ""
	}

	ctx := c.Request.Context()
	tx, err := h.db.BeginTx(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}
	defer tx.Rollback(ctx)

	var conv models.Conversation
	err = tx.QueryRow(ctx, `
		INSERT INTO conversations (is_group, name, image_url, creator_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_group, name, image_url, creator_id, created_at, updated_at
	`, req.IsGroup, req.Name, req.ImageURL, userID).Scan(
		&conv.ID, &conv.IsGroup, &conv.Name, &conv.ImageURL, &conv.CreatorID, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}

	for _, memberID := range memberIDs {
		isAdmin := memberID == userID
		if _, err := tx.Exec(ctx, `
			INSERT INTO conversation_members (conversation_id, user_id, is_admin)
			VALUES ($1, $2, $3)
		`, conv.ID, memberID, isAdmin); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to add conversation members"})
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}

	summary := models.ConversationSummary{Conversation: conv}
	if members, err := h.loadMembers(ctx, conv.ID); err == nil {
		summary.Members = members
		if !conv.IsGroup {
			for _, m := range members {
				if m.UserID != userID && m.Profile != nil {
					p := *m.Profile
					summary.Counterpart = &p
					break
				}
			}
		}
	}

	c.JSON(http.StatusCreated, summary)
}
