package database

import (
	"context"
	"fmt"
	"log"

	"convo-backend/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Database struct {
	Pool *pgxpool.Pool
}

func NewConnection(cfg *config.Config) (*Database, error) {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	log.Println("Successfully connected to database")
	return &Database{Pool: pool}, nil
}

func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *Database) GetDB() *pgxpool.Pool {
	return db.Pool
}

func RunMigrations(db *Database) error {
	ctx := context.Background()

	// Create profiles table
	createProfilesTable := `
	CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username VARCHAR(50) UNIQUE NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		display_name VARCHAR(120) NOT NULL,
		avatar_url TEXT DEFAULT '',
		bio TEXT DEFAULT '',
		status_text VARCHAR(255) DEFAULT '',
		theme VARCHAR(20) DEFAULT 'light',
		is_online BOOLEAN DEFAULT FALSE,
		last_seen_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	// Create conversations table
	createConversationsTable := `
	CREATE TABLE IF NOT EXISTS conversations (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		is_group BOOLEAN NOT NULL DEFAULT FALSE,
		name VARCHAR(120) DEFAULT '',
		image_url TEXT DEFAULT '',
		creator_id UUID REFERENCES profiles(id) ON DELETE SET NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	// Create conversation_members table
	createMembersTable := `
	CREATE TABLE IF NOT EXISTS conversation_members (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		joined_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(conversation_id, user_id)
	);`

	// Create messages table
	createMessagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_id UUID REFERENCES profiles(id) ON DELETE SET NULL,
		content TEXT NOT NULL DEFAULT '',
		message_type VARCHAR(20) NOT NULL DEFAULT 'text' CHECK (message_type IN ('text', 'image', 'file')),
		file_url TEXT,
		file_name TEXT,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	// Create stories table
	createStoriesTable := `
	CREATE TABLE IF NOT EXISTS stories (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		content TEXT DEFAULT '',
		image_url TEXT DEFAULT '',
		background_color VARCHAR(20) DEFAULT '',
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	// Create story_views table
	createStoryViewsTable := `
	CREATE TABLE IF NOT EXISTS story_views (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		story_id UUID NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
		viewer_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		viewed_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(story_id, viewer_id)
	);`

	// Create contacts table
	createContactsTable := `
	CREATE TABLE IF NOT EXISTS contacts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		requester_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		target_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted')),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(requester_id, target_id)
	);`

	// Create indexes
	createIndexes := `
	CREATE INDEX IF NOT EXISTS idx_profiles_username ON profiles(username);
	CREATE INDEX IF NOT EXISTS idx_members_user_id ON conversation_members(user_id);
	CREATE INDEX IF NOT EXISTS idx_members_conversation_id ON conversation_members(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages(conversation_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_stories_expires_at ON stories(expires_at);
	CREATE INDEX IF NOT EXISTS idx_stories_owner_id ON stories(owner_id);
	CREATE INDEX IF NOT EXISTS idx_story_views_viewer_id ON story_views(viewer_id);
	CREATE INDEX IF NOT EXISTS idx_contacts_target_id ON contacts(target_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at);`

	migrations := []string{
		createProfilesTable,
		createConversationsTable,
		createMembersTable,
		createMessagesTable,
		createStoriesTable,
		createStoryViewsTable,
		createContactsTable,
		createIndexes,
	}

	for _, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func (db *Database) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.Pool.Begin(ctx)
}

func (db *Database) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return db.Pool.QueryRow(ctx, sql, args...)
}

func (db *Database) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return db.Pool.Query(ctx, sql, args...)
}

func (db *Database) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return db.Pool.Exec(ctx, sql, args...)
}
