package models

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	IsGroup   bool       `json:"is_group" db:"is_group"`
	Name      string     `json:"name" db:"name"`
	ImageURL  string     `json:"image_url" db:"image_url"`
	CreatorID *uuid.UUID `json:"creator_id,omitempty" db:"creator_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type ConversationMember struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	IsAdmin        bool      `json:"is_admin" db:"is_admin"`
	JoinedAt       time.Time `json:"joined_at" db:"joined_at"`

	Profile *ProfileSummary `json:"profile,omitempty"`
}

// ConversationSummary is the fully-joined row the conversation list
// returns: members, most recent message and, for direct conversations,
// the counterpart profile.
type ConversationSummary struct {
	Conversation
	Members     []ConversationMember `json:"members"`
	LastMessage *Message             `json:"last_message,omitempty"`
	Counterpart *ProfileSummary      `json:"counterpart,omitempty"`
}

type CreateConversationRequest struct {
	IsGroup   bool        `json:"is_group"`
	Name      string      `json:"name"`
	ImageURL  string      `json:"image_url"`
	MemberIDs []uuid.UUID `json:"member_ids" binding:"required,min=1"`
}
