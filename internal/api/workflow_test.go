package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"convo-backend/internal/api"
	"convo-backend/internal/config"
	"convo-backend/internal/database"
	"convo-backend/internal/models"
	"convo-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func setupTestServer(t *testing.T) (*gin.Engine, *database.Database) {
	if err := godotenv.Load("../../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Could not load .env")
		}
	}

	cfg := config.New()

	db, err := database.NewConnection(cfg)
	if err != nil {
		t.Skipf("Skipping: no database available: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.Default()
	api.SetupRoutes(router, db, ws.NewHub(), cfg)

	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("Failed to encode payload: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, router *gin.Engine, name string) (models.Profile, string) {
	t.Helper()

	username := fmt.Sprintf("%s_%d", name, time.Now().UnixNano())
	w := doJSON(t, router, "POST", "/api/v1/auth/register", "", models.RegisterRequest{
		Username:    username,
		Email:       username + "@test.com",
		Password:    "password123",
		DisplayName: "Test " + name,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to register %s: %d - %s", name, w.Code, w.Body.String())
	}

	var resp models.LoginResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.User, resp.Token
}

func cleanupUsers(db *database.Database, users ...models.Profile) {
	for _, u := range users {
		db.Pool.Exec(context.Background(), "DELETE FROM profiles WHERE id = $1", u.ID)
	}
}

func TestContactAndMessagingWorkflow(t *testing.T) {
	router, db := setupTestServer(t)
	defer db.Close()

	userA, tokenA := registerUser(t, router, "alice")
	userB, tokenB := registerUser(t, router, "bob")
	defer cleanupUsers(db, userA, userB)

	// 1. A requests B as a contact
	w := doJSON(t, router, "POST", "/api/v1/contacts", tokenA, models.AddContactRequest{Username: userB.Username})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to add contact: %d - %s", w.Code, w.Body.String())
	}
	var contact models.Contact
	json.Unmarshal(w.Body.Bytes(), &contact)

	// 2. Duplicate request conflicts, in either direction
	w = doJSON(t, router, "POST", "/api/v1/contacts", tokenA, models.AddContactRequest{Username: userB.Username})
	if w.Code != http.StatusConflict {
		t.Errorf("Duplicate request should conflict, got %d - %s", w.Code, w.Body.String())
	}
	var conflictResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &conflictResp)
	if conflictResp["code"] != "already_requested" {
		t.Errorf("Expected already_requested code, got %v", conflictResp["code"])
	}
	w = doJSON(t, router, "POST", "/api/v1/contacts", tokenB, models.AddContactRequest{Username: userA.Username})
	if w.Code != http.StatusConflict {
		t.Errorf("Reverse duplicate should conflict, got %d", w.Code)
	}

	var pendingCount int
	db.Pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM contacts WHERE (requester_id = $1 AND target_id = $2) OR (requester_id = $2 AND target_id = $1)",
		userA.ID, userB.ID,
	).Scan(&pendingCount)
	if pendingCount != 1 {
		t.Errorf("Expected exactly one contact row, got %d", pendingCount)
	}

	// 3. B sees the pending request and accepts it
	w = doJSON(t, router, "GET", "/api/v1/contacts", tokenB, nil)
	var listB models.ContactList
	json.Unmarshal(w.Body.Bytes(), &listB)
	if len(listB.PendingReceived) != 1 || listB.PendingReceived[0].Profile.ID != userA.ID {
		t.Fatalf("B should see one pending request from A, got %+v", listB.PendingReceived)
	}

	w = doJSON(t, router, "PUT", "/api/v1/contacts/"+contact.ID.String()+"/accept", tokenB, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to accept contact: %d - %s", w.Code, w.Body.String())
	}

	// 4. Both sessions see exactly one accepted counterpart
	w = doJSON(t, router, "GET", "/api/v1/contacts", tokenA, nil)
	var listA models.ContactList
	json.Unmarshal(w.Body.Bytes(), &listA)
	if len(listA.Accepted) != 1 || listA.Accepted[0].Profile.ID != userB.ID {
		t.Errorf("A should see B exactly once, got %+v", listA.Accepted)
	}

	w = doJSON(t, router, "GET", "/api/v1/contacts", tokenB, nil)
	json.Unmarshal(w.Body.Bytes(), &listB)
	if len(listB.Accepted) != 1 || listB.Accepted[0].Profile.ID != userA.ID {
		t.Errorf("B should see A exactly once, got %+v", listB.Accepted)
	}

	// 5. A opens a direct conversation with B
	w = doJSON(t, router, "POST", "/api/v1/conversations", tokenA, map[string]interface{}{
		"is_group":   false,
		"member_ids": []string{userB.ID.String()},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create conversation: %d - %s", w.Code, w.Body.String())
	}
	var conv models.ConversationSummary
	json.Unmarshal(w.Body.Bytes(), &conv)
	if conv.IsGroup || conv.Name != "" {
		t.Errorf("Direct conversation must be unnamed and non-group, got %+v", conv.Conversation)
	}
	if len(conv.Members) != 2 {
		t.Fatalf("Expected two membership rows, got %d", len(conv.Members))
	}
	for _, m := range conv.Members {
		if m.UserID == userA.ID && !m.IsAdmin {
			t.Error("Creator should be admin")
		}
		if m.UserID == userB.ID && m.IsAdmin {
			t.Error("Invitee should not be admin")
		}
	}
	if conv.Counterpart == nil || conv.Counterpart.ID != userB.ID {
		t.Errorf("Counterpart should be B, got %+v", conv.Counterpart)
	}

	// 6. Sending a message surfaces the conversation first in both lists
	w = doJSON(t, router, "POST", "/api/v1/conversations/"+conv.ID.String()+"/messages", tokenA, models.SendMessageRequest{
		Content: "hi",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to send message: %d - %s", w.Code, w.Body.String())
	}

	for _, token := range []string{tokenA, tokenB} {
		w = doJSON(t, router, "GET", "/api/v1/conversations", token, nil)
		var convs []models.ConversationSummary
		json.Unmarshal(w.Body.Bytes(), &convs)
		if len(convs) == 0 || convs[0].ID != conv.ID {
			t.Fatalf("Conversation should sort first, got %+v", convs)
		}
		if convs[0].LastMessage == nil || convs[0].LastMessage.Content != "hi" {
			t.Errorf("Expected last message 'hi', got %+v", convs[0].LastMessage)
		}
	}

	// 7. A file-only message stores the file name as content
	fileURL := "https://example.com/storage/report.pdf"
	fileName := "report.pdf"
	w = doJSON(t, router, "POST", "/api/v1/conversations/"+conv.ID.String()+"/messages", tokenA, models.SendMessageRequest{
		MessageType: models.MessageTypeFile,
		FileURL:     &fileURL,
		FileName:    &fileName,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to send file message: %d - %s", w.Code, w.Body.String())
	}
	var fileMsg models.Message
	json.Unmarshal(w.Body.Bytes(), &fileMsg)
	if fileMsg.Content != "report.pdf" {
		t.Errorf("File-only message should display its file name, got %q", fileMsg.Content)
	}

	// 8. B's fetch returns ascending order and sweeps is_read
	w = doJSON(t, router, "GET", "/api/v1/conversations/"+conv.ID.String()+"/messages", tokenB, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to fetch messages: %d - %s", w.Code, w.Body.String())
	}
	var msgs []models.Message
	json.Unmarshal(w.Body.Bytes(), &msgs)
	if len(msgs) != 2 {
		t.Fatalf("Expected two messages, got %d", len(msgs))
	}
	if msgs[0].Content != "hi" {
		t.Errorf("Messages should be ascending, got %q first", msgs[0].Content)
	}

	w = doJSON(t, router, "GET", "/api/v1/conversations/"+conv.ID.String()+"/messages", tokenA, nil)
	json.Unmarshal(w.Body.Bytes(), &msgs)
	for _, m := range msgs {
		if !m.IsRead {
			t.Errorf("Message %q should be read after B's fetch", m.Content)
		}
	}

	// 9. Non-members are locked out
	userC, tokenC := registerUser(t, router, "carol")
	defer cleanupUsers(db, userC)
	w = doJSON(t, router, "GET", "/api/v1/conversations/"+conv.ID.String()+"/messages", tokenC, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Non-member should get 403, got %d", w.Code)
	}

	db.Pool.Exec(context.Background(), "DELETE FROM conversations WHERE id = $1", conv.ID)
}

func TestStoriesWorkflow(t *testing.T) {
	router, db := setupTestServer(t)
	defer db.Close()

	userA, tokenA := registerUser(t, router, "author")
	userB, tokenB := registerUser(t, router, "viewer")
	defer cleanupUsers(db, userA, userB)

	// A story must be text or image, not both
	w := doJSON(t, router, "POST", "/api/v1/stories", tokenA, models.CreateStoryRequest{
		Content:  "hello",
		ImageURL: "https://example.com/pic.png",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Text+image story should be rejected, got %d", w.Code)
	}

	w = doJSON(t, router, "POST", "/api/v1/stories", tokenA, models.CreateStoryRequest{
		Content:         "hello",
		BackgroundColor: "#336699",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create story: %d - %s", w.Code, w.Body.String())
	}
	var story models.Story
	json.Unmarshal(w.Body.Bytes(), &story)
	if until := time.Until(story.ExpiresAt); until < 23*time.Hour || until > 25*time.Hour {
		t.Errorf("Story should expire in ~24h, got %v", until)
	}

	// Viewing twice leaves exactly one view row
	for i := 0; i < 2; i++ {
		w = doJSON(t, router, "POST", "/api/v1/stories/"+story.ID.String()+"/view", tokenB, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Failed to view story: %d - %s", w.Code, w.Body.String())
		}
	}
	var viewCount int
	db.Pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM story_views WHERE story_id = $1 AND viewer_id = $2", story.ID, userB.ID,
	).Scan(&viewCount)
	if viewCount != 1 {
		t.Errorf("Expected exactly one view row, got %d", viewCount)
	}

	// Viewing your own story records nothing
	w = doJSON(t, router, "POST", "/api/v1/stories/"+story.ID.String()+"/view", tokenA, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Own view should succeed quietly: %d", w.Code)
	}
	db.Pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM story_views WHERE story_id = $1", story.ID,
	).Scan(&viewCount)
	if viewCount != 1 {
		t.Errorf("Own view must not add a row, got %d", viewCount)
	}

	// An expired story vanishes from the feed even though the row remains
	db.Pool.Exec(context.Background(), `
		INSERT INTO stories (owner_id, content, expires_at)
		VALUES ($1, 'stale', NOW() - interval '1 hour')
	`, userA.ID)

	w = doJSON(t, router, "GET", "/api/v1/stories", tokenB, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to list stories: %d - %s", w.Code, w.Body.String())
	}
	var groups []models.StoryGroup
	json.Unmarshal(w.Body.Bytes(), &groups)

	var authorGroup *models.StoryGroup
	for i := range groups {
		if groups[i].Owner.ID == userA.ID {
			authorGroup = &groups[i]
		}
	}
	if authorGroup == nil {
		t.Fatal("Author's group missing from feed")
	}
	if len(authorGroup.Stories) != 1 {
		t.Errorf("Expired story should be excluded, got %d stories", len(authorGroup.Stories))
	}
	if !authorGroup.AllViewed {
		t.Error("all_viewed should be true once every active story is viewed")
	}

	// Feed puts the caller's own group first
	w = doJSON(t, router, "POST", "/api/v1/stories", tokenB, models.CreateStoryRequest{Content: "mine"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create viewer story: %d", w.Code)
	}
	w = doJSON(t, router, "GET", "/api/v1/stories", tokenB, nil)
	json.Unmarshal(w.Body.Bytes(), &groups)
	if len(groups) == 0 || groups[0].Owner.ID != userB.ID {
		t.Errorf("Own group should sort first, got %+v", groups)
	}

	// Viewer list is owner-only and contains B exactly once
	w = doJSON(t, router, "GET", "/api/v1/stories/"+story.ID.String()+"/viewers", tokenB, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Non-owner should get 403, got %d", w.Code)
	}
	w = doJSON(t, router, "GET", "/api/v1/stories/"+story.ID.String()+"/viewers", tokenA, nil)
	var viewers []models.StoryView
	json.Unmarshal(w.Body.Bytes(), &viewers)
	if len(viewers) != 1 || viewers[0].Viewer == nil || viewers[0].Viewer.ID != userB.ID {
		t.Errorf("Expected B as the only viewer, got %+v", viewers)
	}
}

func TestConversationValidation(t *testing.T) {
	router, db := setupTestServer(t)
	defer db.Close()

	userA, tokenA := registerUser(t, router, "solo")
	defer cleanupUsers(db, userA)

	// A direct conversation with only yourself is rejected
	w := doJSON(t, router, "POST", "/api/v1/conversations", tokenA, map[string]interface{}{
		"is_group":   false,
		"member_ids": []string{userA.ID.String()},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Self-conversation should be rejected, got %d - %s", w.Code, w.Body.String())
	}

	// Duplicate invitees collapse into one membership row
	userB, _ := registerUser(t, router, "dup")
	defer cleanupUsers(db, userB)
	w = doJSON(t, router, "POST", "/api/v1/conversations", tokenA, map[string]interface{}{
		"is_group":   true,
		"name":       "weekend plans",
		"member_ids": []string{userB.ID.String(), userB.ID.String(), userA.ID.String()},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create group: %d - %s", w.Code, w.Body.String())
	}
	var conv models.ConversationSummary
	json.Unmarshal(w.Body.Bytes(), &conv)
	if len(conv.Members) != 2 {
		t.Errorf("Union should dedupe members, got %d rows", len(conv.Members))
	}

	db.Pool.Exec(context.Background(), "DELETE FROM conversations WHERE id = $1", conv.ID)
}
