package api

import (
	"convo-backend/internal/auth"
	"convo-backend/internal/config"
	"convo-backend/internal/database"
	"convo-backend/internal/middleware"
	"convo-backend/internal/storage"
	"convo-backend/internal/ws"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, db *database.Database, hub *ws.Hub, cfg *config.Config) {
	server := NewServer(db, cfg)
	chatHandler := NewChatHandler(db, hub)
	contactHandler := NewContactHandler(db)
	storyHandler := NewStoryHandler(db)
	jwtManager := auth.NewJWTManager(cfg)

	supabaseStorage := storage.NewSupabaseStorage(
		cfg.Supabase.URL,
		cfg.Supabase.ServiceRoleKey,
		cfg.Supabase.Bucket,
	)
	uploadHandler := NewUploadHandler(supabaseStorage)

	wsHandler := NewWSHandler(hub, db, jwtManager)
	wsHandler.InsecureSkipVerify = cfg.GinMode != "release"

	// CORS middleware
	router.Use(middleware.CORSSpecific(cfg.GetCORSOrigins()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "convo-backend",
		})
	})

	// Realtime channel (token via query param)
	router.GET("/ws", wsHandler.Handle)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Auth routes (no authentication required)
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", server.Register)
			authRoutes.POST("/login", server.Login)
		}

		// Protected routes (authentication required)
		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtManager))
		{
			// User routes
			protected.GET("/profile", server.GetProfile)
			protected.PUT("/profile", server.UpdateProfile)
			protected.POST("/auth/logout", server.Logout)
			protected.PUT("/auth/password", server.ChangePassword)
			protected.DELETE("/auth/account", server.DeleteAccount)

			// Conversation routes
			conversations := protected.Group("/conversations")
			{
				conversations.GET("", chatHandler.ListConversations)
				conversations.POST("", chatHandler.CreateConversation)
				conversations.GET("/:id/messages", chatHandler.ListMessages)
				conversations.POST("/:id/messages", chatHandler.SendMessage)
			}
			protected.DELETE("/messages/:id", chatHandler.DeleteMessage)

			// Contact routes
			contacts := protected.Group("/contacts")
			{
				contacts.GET("", contactHandler.ListContacts)
				contacts.POST("", contactHandler.AddContact)
				contacts.PUT("/:id/accept", contactHandler.AcceptContact)
				contacts.DELETE("/:id", contactHandler.DeleteContact)
			}

			// Story routes
			stories := protected.Group("/stories")
			{
				stories.GET("", storyHandler.ListStories)
				stories.POST("", storyHandler.CreateStory)
				stories.POST("/:id/view", storyHandler.ViewStory)
				stories.GET("/:id/viewers", storyHandler.ListStoryViewers)
				stories.DELETE("/:id", storyHandler.DeleteStory)
			}

			// Uploads
			protected.POST("/upload", uploadHandler.UploadFile)
		}
	}
}
