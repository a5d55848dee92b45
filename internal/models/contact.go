package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ContactStatusPending  = "pending"
	ContactStatusAccepted = "accepted"
)

// Contact is a directional edge: who initiated is preserved in storage,
// but an accepted edge reads the same from both sides.
type Contact struct {
	ID          uuid.UUID `json:"id" db:"id"`
	RequesterID uuid.UUID `json:"requester_id" db:"requester_id"`
	TargetID    uuid.UUID `json:"target_id" db:"target_id"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// Profile is always the counterpart relative to the requesting
	// session, regardless of edge direction.
	Profile ProfileSummary `json:"profile"`
}

// ContactList partitions a user's edges the way the client consumes them.
type ContactList struct {
	Accepted        []Contact `json:"accepted"`
	PendingReceived []Contact `json:"pending_received"`
	PendingSent     []Contact `json:"pending_sent"`
}

type AddContactRequest struct {
	Username string `json:"username" binding:"required"`
}
