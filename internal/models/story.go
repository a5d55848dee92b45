package models

import (
	"time"

	"github.com/google/uuid"
)

// Stories expire this long after creation.
const StoryTTL = 24 * time.Hour

type Story struct {
	ID              uuid.UUID `json:"id" db:"id"`
	OwnerID         uuid.UUID `json:"owner_id" db:"owner_id"`
	Content         string    `json:"content" db:"content"`
	ImageURL        string    `json:"image_url" db:"image_url"`
	BackgroundColor string    `json:"background_color" db:"background_color"`
	ExpiresAt       time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	Viewed bool `json:"viewed"`
}

func (s *Story) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// StoryGroup is one author's active stories, ordered oldest first.
type StoryGroup struct {
	Owner     ProfileSummary `json:"owner"`
	Stories   []Story        `json:"stories"`
	AllViewed bool           `json:"all_viewed"`
}

type StoryView struct {
	ID       uuid.UUID `json:"id" db:"id"`
	StoryID  uuid.UUID `json:"story_id" db:"story_id"`
	ViewerID uuid.UUID `json:"viewer_id" db:"viewer_id"`
	ViewedAt time.Time `json:"viewed_at" db:"viewed_at"`

	Viewer *ProfileSummary `json:"viewer,omitempty"`
}

type CreateStoryRequest struct {
	Content         string `json:"content"`
	ImageURL        string `json:"image_url"`
	BackgroundColor string `json:"background_color"`
}
