package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name:         "sqlite",
	insertIgnore: "INSERT OR IGNORE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL DEFAULT '',
			normalized_subject TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			last_updated INTEGER NOT NULL,
			priority TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_subject ON threads(normalized_subject)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_last_updated ON threads(last_updated)`,
		`CREATE TABLE IF NOT EXISTS thread_messages (
			thread_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			message_id TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			PRIMARY KEY (thread_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_thread_messages_message_id ON thread_messages(message_id)`,
		`CREATE TABLE IF NOT EXISTS thread_participants (
			thread_id TEXT NOT NULL,
			email TEXT NOT NULL,
			PRIMARY KEY (thread_id, email)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_thread_participants_email ON thread_participants(email)`,
		`CREATE TABLE IF NOT EXISTS thread_links (
			thread_id TEXT NOT NULL,
			linked_id TEXT NOT NULL,
			PRIMARY KEY (thread_id, linked_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_thread_links_linked_id ON thread_links(linked_id)`,
	},
}

// NewSQLiteStore opens (or creates) a SQLite thread store at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite allows a single writer; this also keeps ":memory:" on one database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return newSQLStore(db, sqliteDialect, logger)
}
