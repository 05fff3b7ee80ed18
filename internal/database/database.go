package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS webhooks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Database backs the webhook URL registry. URLs keep their insertion order;
// the ordinal position is the index exposed to callers for deletion.
type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// ListWebhooks returns all registered webhook URLs in insertion order.
func (d *Database) ListWebhooks(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT url FROM webhooks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	urls := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate webhooks: %w", err)
	}
	return urls, nil
}

// InsertWebhook appends a URL to the registry.
func (d *Database) InsertWebhook(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if _, err := d.db.ExecContext(ctx, `INSERT INTO webhooks (url) VALUES (?)`, url); err != nil {
		return fmt.Errorf("failed to insert webhook: %w", err)
	}
	return nil
}

// DeleteWebhookAt removes the entry at the given zero-based position.
// Deleting a position that does not exist is a no-op.
func (d *Database) DeleteWebhookAt(ctx context.Context, index int) error {
	if index < 0 {
		return fmt.Errorf("webhook index must not be negative")
	}

	var id int64
	err := d.db.QueryRowContext(ctx, `SELECT id FROM webhooks ORDER BY id LIMIT 1 OFFSET ?`, index).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to locate webhook at index %d: %w", index, err)
	}

	if _, err := d.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}
