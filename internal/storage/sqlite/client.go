package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/storage/models"
	"github.com/review-agent/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		review_id TEXT UNIQUE NOT NULL,
		name TEXT,
		country TEXT,
		date TEXT,
		review_score INTEGER,
		review_header TEXT,
		review_body TEXT,
		vendor TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_vendor ON reviews(vendor);
	CREATE INDEX IF NOT EXISTS idx_reviews_score ON reviews(review_score);

	CREATE TABLE IF NOT EXISTS agent_checkpoints (
		thread_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// ReplaceReviews clears and reloads the review table. Ingestion is the only
// writer; rows are immutable between full re-ingestions.
func (c *Client) ReplaceReviews(records []models.ReviewRecord) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM reviews"); err != nil {
		return fmt.Errorf("failed to clear reviews: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO reviews (review_id, name, country, date, review_score, review_header, review_body, vendor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(r.ReviewID, r.Name, r.Country, r.Date, r.Score, r.Header, r.Body, r.Vendor)
		if err != nil {
			return fmt.Errorf("failed to insert review %s: %w", r.ReviewID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reviews: %w", err)
	}

	logger.Info("Reviews stored", zap.Int("count", len(records)))
	return nil
}

// GetReviewStats returns per-vendor review counts ordered by descending
// count.
func (c *Client) GetReviewStats() ([]models.VendorCount, error) {
	query := `
		SELECT vendor, COUNT(*) as count
		FROM reviews
		GROUP BY vendor
		ORDER BY count DESC
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get review stats: %w", err)
	}
	defer rows.Close()

	var stats []models.VendorCount
	for rows.Next() {
		var vc models.VendorCount
		if err := rows.Scan(&vc.Vendor, &vc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		stats = append(stats, vc)
	}

	return stats, rows.Err()
}

// LoadCheckpoint returns the serialized conversation state for a thread, or
// found=false when the thread has no history yet.
func (c *Client) LoadCheckpoint(ctx context.Context, threadID string) ([]byte, bool, error) {
	var state string
	err := c.db.QueryRowContext(ctx,
		"SELECT state FROM agent_checkpoints WHERE thread_id = ?", threadID,
	).Scan(&state)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	return []byte(state), true, nil
}

func (c *Client) SaveCheckpoint(ctx context.Context, threadID string, state []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO agent_checkpoints (thread_id, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`, threadID, string(state), time.Now().Unix())

	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

func (c *Client) DeleteCheckpoint(ctx context.Context, threadID string) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM agent_checkpoints WHERE thread_id = ?", threadID)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
