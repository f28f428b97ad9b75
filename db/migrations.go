package db

import (
	"database/sql"
	"log"
)

const (
	sqlCreateUsersTable = `CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		display_name TEXT,
		web_public_key TEXT NOT NULL,
		web_private_key TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateNotesTable = `CREATE TABLE IF NOT EXISTS notes (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL,
		content TEXT,
		status TEXT NOT NULL DEFAULT 'PUBLISHED',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateNotesIndices = `CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id)`

	sqlCreateFollowersTable = `CREATE TABLE IF NOT EXISTS followers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		actor TEXT NOT NULL,
		object TEXT,
		inbox TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, actor)
	)`

	sqlCreateFollowersIndices = `CREATE INDEX IF NOT EXISTS idx_followers_user_id ON followers(user_id)`
)

// Migrate creates the schema. Statements are idempotent, so running it on
// every start is safe.
func (db *DB) Migrate() error {
	log.Println("Running database migrations...")
	return db.wrapTransaction(func(tx *sql.Tx) error {
		for _, stmt := range []string{
			sqlCreateUsersTable,
			sqlCreateNotesTable,
			sqlCreateNotesIndices,
			sqlCreateFollowersTable,
			sqlCreateFollowersIndices,
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
