// Seeds demo accounts: profiles in the database plus, when a platform
// service-role key is configured, mirrored auth users.
package main

import (
	"context"
	"fmt"
	"log"

	"convo-backend/internal/auth"
	"convo-backend/internal/config"
	"convo-backend/internal/database"
	"convo-backend/internal/gateway"

	"github.com/joho/godotenv"
)

type seedUser struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

var seedUsers = []seedUser{
	{"alice", "alice@example.com", "password123", "Alice Demo"},
	{"bob", "bob@example.com", "password123", "Bob Demo"},
	{"carol", "carol@example.com", "password123", "Carol Demo"},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.New()

	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	platform := gateway.NewClient(cfg)
	ctx := context.Background()

	for _, u := range seedUsers {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			log.Fatal("Failed to hash password:", err)
		}

		var id string
		err = db.Pool.QueryRow(ctx, `
			INSERT INTO profiles (username, email, password_hash, display_name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (username) DO UPDATE SET display_name = EXCLUDED.display_name
			RETURNING id
		`, u.Username, u.Email, hash, u.DisplayName).Scan(&id)
		if err != nil {
			log.Printf("Failed to seed %s: %v", u.Username, err)
			continue
		}
		fmt.Printf("Seeded %s (%s)\n", u.Username, id)

		if platform.Enabled() && cfg.Supabase.ServiceRoleKey != "" {
			if _, err := platform.AdminCreateUser(u.Email, u.Password, map[string]interface{}{
				"username": u.Username,
				"user_id":  id,
			}); err != nil {
				log.Printf("Platform mirror for %s failed: %v", u.Username, err)
			}
		}
	}
}
