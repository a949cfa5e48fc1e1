package store

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name:         "mysql",
	insertIgnore: "INSERT IGNORE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id VARCHAR(64) PRIMARY KEY,
			subject TEXT NOT NULL,
			normalized_subject VARCHAR(255) NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			last_updated BIGINT NOT NULL,
			priority VARCHAR(16) NOT NULL DEFAULT '',
			summary TEXT NOT NULL,
			INDEX idx_threads_subject (normalized_subject),
			INDEX idx_threads_last_updated (last_updated)
		)`,
		`CREATE TABLE IF NOT EXISTS thread_messages (
			thread_id VARCHAR(64) NOT NULL,
			seq BIGINT NOT NULL,
			message_id VARCHAR(255) NOT NULL DEFAULT '',
			payload MEDIUMTEXT NOT NULL,
			PRIMARY KEY (thread_id, seq),
			INDEX idx_thread_messages_message_id (message_id)
		)`,
		`CREATE TABLE IF NOT EXISTS thread_participants (
			thread_id VARCHAR(64) NOT NULL,
			email VARCHAR(255) NOT NULL,
			PRIMARY KEY (thread_id, email),
			INDEX idx_thread_participants_email (email)
		)`,
		`CREATE TABLE IF NOT EXISTS thread_links (
			thread_id VARCHAR(64) NOT NULL,
			linked_id VARCHAR(255) NOT NULL,
			PRIMARY KEY (thread_id, linked_id),
			INDEX idx_thread_links_linked_id (linked_id)
		)`,
	},
}

// NewMySQLStore connects to a MySQL thread store
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	// Updates that leave a row unchanged must still count it as matched
	cfg.ClientFoundRows = true

	db, err := sqlx.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return newSQLStore(db, mysqlDialect, logger)
}
