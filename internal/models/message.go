package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

type Message struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ConversationID uuid.UUID  `json:"conversation_id" db:"conversation_id"`
	SenderID       *uuid.UUID `json:"sender_id,omitempty" db:"sender_id"`
	Content        string     `json:"content" db:"content"`
	MessageType    string     `json:"message_type" db:"message_type"`
	FileURL        *string    `json:"file_url,omitempty" db:"file_url"`
	FileName       *string    `json:"file_name,omitempty" db:"file_name"`
	IsRead         bool       `json:"is_read" db:"is_read"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`

	Sender *ProfileSummary `json:"sender,omitempty"`
}

type SendMessageRequest struct {
	Content     string  `json:"content"`
	MessageType string  `json:"message_type" binding:"omitempty,oneof=text image file"`
	FileURL     *string `json:"file_url"`
	FileName    *string `json:"file_name"`
}
