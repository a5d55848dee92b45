package api

import (
	"errors"
	"log"
	"net/http"

	"convo-backend/internal/auth"
	"convo-backend/internal/config"
	"convo-backend/internal/database"
	"convo-backend/internal/gateway"
	"convo-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

type Server struct {
	db         *database.Database
	jwtManager *auth.JWTManager
	platform   *gateway.Client
	config     *config.Config
}

func NewServer(db *database.Database, cfg *config.Config) *Server {
	return &Server{
		db:         db,
		jwtManager: auth.NewJWTManager(cfg),
		platform:   gateway.NewClient(cfg),
		config:     cfg,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// currentUserID reads the authenticated caller's id set by the auth
// middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return uuid.Nil, false
	}
	return id, true
}

// Auth Handlers
func (s *Server) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	ctx := c.Request.Context()
	query := `
		INSERT INTO profiles (username, email, password_hash, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, display_name, avatar_url, bio, status_text, theme, is_online, last_seen_at, created_at, updated_at
	`

	var user models.Profile
	err = s.db.Pool.QueryRow(ctx, query, req.Username, req.Email, hashedPassword, req.DisplayName).Scan(
		&user.ID, &user.Username, &user.Email, &user.DisplayName, &user.AvatarURL, &user.Bio,
		&user.StatusText, &user.Theme, &user.IsOnline, &user.LastSeenAt, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	// Best-effort mirror into the platform's auth so storage policies
	// recognize the account; local login does not depend on it.
	if s.platform.Enabled() {
		if _, err := s.platform.SignUp(req.Email, req.Password, map[string]interface{}{
			"username": req.Username,
			"user_id":  user.ID.String(),
		}); err != nil {
			log.Printf("platform signup mirror failed for %s: %v", req.Email, err)
		}
	}

	token, err := s.jwtManager.GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, models.LoginResponse{User: user, Token: token})
}

func (s *Server) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var user models.Profile

	query := `
		SELECT id, username, email, password_hash, display_name, avatar_url, bio, status_text, theme, is_online, last_seen_at, created_at, updated_at
		FROM profiles
		WHERE email = $1
	`

	err := s.db.Pool.QueryRow(ctx, query, req.Email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.DisplayName, &user.AvatarURL,
		&user.Bio, &user.StatusText, &user.Theme, &user.IsOnline, &user.LastSeenAt, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if _, err := s.db.Pool.Exec(ctx, "UPDATE profiles SET is_online = TRUE, updated_at = NOW() WHERE id = $1", user.ID); err != nil {
		log.Printf("failed to mark %s online: %v", user.ID, err)
	}
	user.IsOnline = true

	token, err := s.jwtManager.GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{User: user, Token: token})
}

func (s *Server) Logout(c *gin.Context) {
	id, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	_, err := s.db.Pool.Exec(ctx, "UPDATE profiles SET is_online = FALSE, last_seen_at = NOW() WHERE id = $1", id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) GetProfile(c *gin.Context) {
	id, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var user models.Profile

	query := `
		SELECT id, username, email, display_name, avatar_url, bio, status_text, theme, is_online, last_seen_at, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	err := s.db.Pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.DisplayName, &user.AvatarURL, &user.Bio,
		&user.StatusText, &user.Theme, &user.IsOnline, &user.LastSeenAt, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile mutates only the caller's own row: the id comes from
// the token, never from the request.
func (s *Server) UpdateProfile(c *gin.Context) {
	id, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	query := `
		UPDATE profiles
		SET display_name = $1, avatar_url = $2, bio = $3, status_text = $4, theme = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING id, username, email, display_name, avatar_url, bio, status_text, theme, is_online, last_seen_at, created_at, updated_at
	`

	var user models.Profile
	err := s.db.Pool.QueryRow(ctx, query, req.DisplayName, req.AvatarURL, req.Bio, req.StatusText, req.Theme, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.DisplayName, &user.AvatarURL, &user.Bio,
		&user.StatusText, &user.Theme, &user.IsOnline, &user.LastSeenAt, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Server) ChangePassword(c *gin.Context) {
	id, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	var currentHash string
	err := s.db.Pool.QueryRow(ctx, "SELECT password_hash FROM profiles WHERE id = $1", id).Scan(&currentHash)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if !auth.CheckPassword(req.OldPassword, currentHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid old password"})
		return
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash new password"})
		return
	}

	_, err = s.db.Pool.Exec(ctx, "UPDATE profiles SET password_hash = $1, updated_at = NOW() WHERE id = $2", newHash, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (s *Server) DeleteAccount(c *gin.Context) {
	id, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	_, err := s.db.Pool.Exec(ctx, "DELETE FROM profiles WHERE id = $1", id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
