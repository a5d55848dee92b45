package api

import (
	"net/http"
	"time"

	"convo-backend/internal/database"
	"convo-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StoryHandler struct {
	db *database.Database
}

func NewStoryHandler(db *database.Database) *StoryHandler {
	return &StoryHandler{db: db}
}

// CreateStory publishes a text or image story expiring 24h later.
// Text stories carry a background color; image stories do not.
func (h *StoryHandler) CreateStory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hasText := req.Content != ""
	hasImage := req.ImageURL != ""
	if hasText == hasImage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A story needs either text content or an image"})
		return
	}
	if hasImage {
		req.BackgroundColor = ""
	}

	ctx := c.Request.Context()
	query := `
		INSERT INTO stories (owner_id, content, image_url, background_color, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, owner_id, content, image_url, background_color, expires_at, created_at
	`

	var story models.Story
	err := h.db.QueryRow(ctx, query,
		userID, req.Content, req.ImageURL, req.BackgroundColor, time.Now().Add(models.StoryTTL),
	).Scan(
		&story.ID, &story.OwnerID, &story.Content, &story.ImageURL,
		&story.BackgroundColor, &story.ExpiresAt, &story.CreatedAt,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create story"})
		return
	}

	c.JSON(http.StatusCreated, story)
}

// ListStories returns every user's unexpired stories grouped per
// author: the caller's own group first, then by latest story, newest
// group first. Each story carries whether the caller viewed it; each
// group carries all_viewed over the author's active set. Expired rows
// never appear even when still physically present.
func (h *StoryHandler) ListStories(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	query := `
		SELECT s.id, s.owner_id, s.content, s.image_url, s.background_color, s.expires_at, s.created_at,
			   (sv.id IS NOT NULL) AS viewed,
			   p.id, p.username, p.display_name, p.avatar_url, p.is_online, p.last_seen_at
		FROM stories s
		JOIN profiles p ON p.id = s.owner_id
		LEFT JOIN story_views sv ON sv.story_id = s.id AND sv.viewer_id = $1
		WHERE s.expires_at > NOW()
		ORDER BY s.owner_id, s.created_at ASC
	`

	rows, err := h.db.Query(ctx, query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stories"})
		return
	}
	defer rows.Close()

	groupIndex := map[uuid.UUID]int{}
	var groups []models.StoryGroup
	for rows.Next() {
		var story models.Story
		var owner models.ProfileSummary
		if err := rows.Scan(
			&story.ID, &story.OwnerID, &story.Content, &story.ImageURL,
			&story.BackgroundColor, &story.ExpiresAt, &story.CreatedAt, &story.Viewed,
			&owner.ID, &owner.Username, &owner.DisplayName, &owner.AvatarURL, &owner.IsOnline, &owner.LastSeenAt,
		); err != nil {
			continue
		}

		idx, ok := groupIndex[story.OwnerID]
		if !ok {
			idx = len(groups)
			groupIndex[story.OwnerID] = idx
			groups = append(groups, models.StoryGroup{Owner: owner, AllViewed: true})
		}
		groups[idx].Stories = append(groups[idx].Stories, story)
		if !story.Viewed {
			groups[idx].AllViewed = false
		}
	}

	sortStoryGroups(groups, userID)

	if groups == nil {
		groups = []models.StoryGroup{}
	}
	c.JSON(http.StatusOK, groups)
}

// sortStoryGroups orders the feed: own stories first, everyone else by
// most recent story, newest first.
func sortStoryGroups(groups []models.StoryGroup, userID uuid.UUID) {
	latest := func(g models.StoryGroup) time.Time {
		if len(g.Stories) == 0 {
			return time.Time{}
		}
		return g.Stories[len(g.Stories)-1].CreatedAt
	}

	// Insertion sort keeps this readable; feeds are small
	for i := 1; i < len(groups); i++ {
		for j := i; j > 0; j-- {
			a, b := groups[j-1], groups[j]
			if a.Owner.ID == userID {
				break
			}
			if b.Owner.ID != userID && !latest(b).After(latest(a)) {
				break
			}
			groups[j-1], groups[j] = b, a
		}
	}
}

// ViewStory records that the caller saw a story. The (story, viewer)
// unique pair makes the upsert idempotent; conflicts are the intended
// dedup, not an error. Viewing your own story records nothing.
func (h *StoryHandler) ViewStory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid story ID"})
		return
	}

	ctx := c.Request.Context()
	var ownerID uuid.UUID
	err = h.db.QueryRow(ctx, "SELECT owner_id FROM stories WHERE id = $1 AND expires_at > NOW()", storyID).Scan(&ownerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Story not found"})
		return
	}

	if ownerID == userID {
		c.JSON(http.StatusOK, gin.H{"message": "Own story"})
		return
	}

	_, err = h.db.Exec(ctx, `
		INSERT INTO story_views (story_id, viewer_id)
		VALUES ($1, $2)
		ON CONFLICT (story_id, viewer_id) DO NOTHING
	`, storyID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record view"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Story viewed"})
}

// ListStoryViewers returns who saw a story; owner only.
func (h *StoryHandler) ListStoryViewers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid story ID"})
		return
	}

	ctx := c.Request.Context()
	var ownerID uuid.UUID
	err = h.db.QueryRow(ctx, "SELECT owner_id FROM stories WHERE id = $1", storyID).Scan(&ownerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Story not found"})
		return
	}
	if ownerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can see viewers"})
		return
	}

	query := `
		SELECT sv.id, sv.story_id, sv.viewer_id, sv.viewed_at,
			   p.id, p.username, p.display_name, p.avatar_url, p.is_online, p.last_seen_at
		FROM story_views sv
		JOIN profiles p ON p.id = sv.viewer_id
		WHERE sv.story_id = $1
		ORDER BY sv.viewed_at DESC
	`

	rows, err := h.db.Query(ctx, query, storyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch viewers"})
		return
	}
	defer rows.Close()

	var views []models.StoryView
	for rows.Next() {
		var v models.StoryView
		var p models.ProfileSummary
		if err := rows.Scan(
			&v.ID, &v.StoryID, &v.ViewerID, &v.ViewedAt,
			&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.IsOnline, &p.LastSeenAt,
		); err != nil {
			continue
		}
		v.Viewer = &p
		views = append(views, v)
	}

	if views == nil {
		views = []models.StoryView{}
	}
	c.JSON(http.StatusOK, views)
}

// DeleteStory removes a story; owner only.
func (h *StoryHandler) DeleteStory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid story ID"})
		return
	}

	ctx := c.Request.Context()
	tag, err := h.db.Exec(ctx, "DELETE FROM stories WHERE id = $1 AND owner_id = $2", storyID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete story"})
		return
	}
	if tag.RowsAffected() == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can delete a story"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Story deleted"})
}
