package api

import (
	"context"
	"net/http"

	"convo-backend/internal/database"
	"convo-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ContactHandler struct {
	db *database.Database
}

func NewContactHandler(db *database.Database) *ContactHandler {
	return &ContactHandler{db: db}
}

// AddContact creates a pending request towards another user, looked up
// by username. The unique (requester, target) pair is the dedup
// mechanism: a duplicate insert surfaces as a conflict, not an error.
func (h *ContactHandler) AddContact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.AddContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	var targetID uuid.UUID
	err := h.db.QueryRow(ctx, "SELECT id FROM profiles WHERE username = $1", req.Username).Scan(&targetID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if targetID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot add yourself as a contact"})
		return
	}

	// The reverse edge counts too: one row per unordered pair
	var reverse int
	_ = h.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM contacts WHERE requester_id = $1 AND target_id = $2",
		targetID, userID,
	).Scan(&reverse)
	if reverse > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Contact request already exists", "code": "already_requested"})
		return
	}

	var contact models.Contact
	err = h.db.QueryRow(ctx, `
		INSERT INTO contacts (requester_id, target_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, requester_id, target_id, status, created_at
	`, userID, targetID).Scan(
		&contact.ID, &contact.RequesterID, &contact.TargetID, &contact.Status, &contact.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Contact request already exists", "code": "already_requested"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contact request"})
		return
	}

	c.JSON(http.StatusCreated, contact)
}

// ListContacts partitions the caller's edges into accepted, pending
// received and pending sent. Accepted edges where the caller is the
// target are re-labelled so the embedded profile is always the
// counterpart, whichever party initiated.
func (h *ContactHandler) ListContacts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	list := models.ContactList{
		Accepted:        []models.Contact{},
		PendingReceived: []models.Contact{},
		PendingSent:     []models.Contact{},
	}

	acceptedAsRequester, err := h.queryContacts(ctx, userID, "requester_id", "target_id", models.ContactStatusAccepted)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contacts"})
		return
	}
	acceptedAsTarget, err := h.queryContacts(ctx, userID, "target_id", "requester_id", models.ContactStatusAccepted)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contacts"})
		return
	}
	pendingReceived, err := h.queryContacts(ctx, userID, "target_id", "requester_id", models.ContactStatusPending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contacts"})
		return
	}
	pendingSent, err := h.queryContacts(ctx, userID, "requester_id", "target_id", models.ContactStatusPending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contacts"})
		return
	}

	list.Accepted = append(list.Accepted, acceptedAsRequester...)
	list.Accepted = append(list.Accepted, acceptedAsTarget...)
	list.PendingReceived = pendingReceived
	list.PendingSent = pendingSent

	c.JSON(http.StatusOK, list)
}

// queryContacts fetches edges where selfColumn matches the caller,
// embedding the profile referenced by otherColumn.
func (h *ContactHandler) queryContacts(ctx context.Context, userID uuid.UUID, selfColumn, otherColumn, status string) ([]models.Contact, error) {
	query := `
		SELECT ct.id, ct.requester_id, ct.target_id, ct.status, ct.created_at,
			   p.id, p.username, p.display_name, p.avatar_url, p.is_online, p.last_seen_at
		FROM contacts ct
		JOIN profiles p ON p.id = ct.` + otherColumn + `
		WHERE ct.` + selfColumn + ` = $1 AND ct.status = $2
		ORDER BY p.display_name ASC
	`

	rows, err := h.db.Query(ctx, query, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var ct models.Contact
		if err := rows.Scan(
			&ct.ID, &ct.RequesterID, &ct.TargetID, &ct.Status, &ct.CreatedAt,
			&ct.Profile.ID, &ct.Profile.Username, &ct.Profile.DisplayName,
			&ct.Profile.AvatarURL, &ct.Profile.IsOnline, &ct.Profile.LastSeenAt,
		); err != nil {
			continue
		}
		contacts = append(contacts, ct)
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return contacts, nil
}

// AcceptContact flips a pending edge to accepted; only the target of
// the request may accept it.
func (h *ContactHandler) AcceptContact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact ID"})
		return
	}

	ctx := c.Request.Context()
	var contact models.Contact
	err = h.db.QueryRow(ctx, `
		UPDATE contacts
		SET status = 'accepted'
		WHERE id = $1 AND target_id = $2 AND status = 'pending'
		RETURNING id, requester_id, target_id, status, created_at
	`, contactID, userID).Scan(
		&contact.ID, &contact.RequesterID, &contact.TargetID, &contact.Status, &contact.CreatedAt,
	)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "No pending request to accept"})
		return
	}

	c.JSON(http.StatusOK, contact)
}

// DeleteContact removes the edge entirely; reject, cancel and
// un-friend are all the same hard delete, allowed to either party.
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact ID"})
		return
	}

	ctx := c.Request.Context()
	tag, err := h.db.Exec(ctx,
		"DELETE FROM contacts WHERE id = $1 AND (requester_id = $2 OR target_id = $2)",
		contactID, userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contact"})
		return
	}
	if tag.RowsAffected() == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contact removed"})
}
