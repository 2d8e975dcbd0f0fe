package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/groupwatch/internal/biz/domain"
	"github.com/user/groupwatch/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// alertLogRepo persists alert entries per group in sqlite. Entries are
// stored as JSON blobs keyed by an autoincrement id, so append order is
// the read order and windowed trims are a single DELETE.
type alertLogRepo struct {
	db *sql.DB
}

// NewAlertLogRepo opens (creating if needed) the alert log database.
func NewAlertLogRepo(dbPath string) (repo.AlertLogRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS alert_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id TEXT NOT NULL,
			entry TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_alert_logs_group ON alert_logs (group_id, id)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &alertLogRepo{db: db}, nil
}

// Append stores the entry and discards the group's oldest entries
// beyond maxPerGroup. A non-positive maxPerGroup keeps everything.
func (r *alertLogRepo) Append(ctx context.Context, groupID string, entry *domain.AlertEntry, maxPerGroup int) error {
	blob, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode alert entry: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_logs (group_id, entry) VALUES (?, ?)
	`, groupID, string(blob)); err != nil {
		return fmt.Errorf("failed to append alert entry: %w", err)
	}

	if maxPerGroup > 0 {
		_, err := r.db.ExecContext(ctx, `
			DELETE FROM alert_logs
			WHERE group_id = ? AND id NOT IN (
				SELECT id FROM alert_logs WHERE group_id = ?
				ORDER BY id DESC LIMIT ?
			)
		`, groupID, groupID, maxPerGroup)
		if err != nil {
			return fmt.Errorf("failed to trim alert log: %w", err)
		}
	}
	return nil
}

// ReadRecent returns the group's most recent entries, newest first.
// A non-positive limit returns all of them.
func (r *alertLogRepo) ReadRecent(ctx context.Context, groupID string, limit int) ([]*domain.AlertEntry, error) {
	query := `SELECT entry FROM alert_logs WHERE group_id = ? ORDER BY id DESC`
	args := []interface{}{groupID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read alert log: %w", err)
	}
	defer rows.Close()
	return decodeEntries(rows)
}

// ReadAll returns the group's entries in append order.
func (r *alertLogRepo) ReadAll(ctx context.Context, groupID string) ([]*domain.AlertEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entry FROM alert_logs WHERE group_id = ? ORDER BY id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read alert log: %w", err)
	}
	defer rows.Close()
	return decodeEntries(rows)
}

func decodeEntries(rows *sql.Rows) ([]*domain.AlertEntry, error) {
	var entries []*domain.AlertEntry
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan alert entry: %w", err)
		}
		var entry domain.AlertEntry
		if err := json.Unmarshal([]byte(blob), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode alert entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (r *alertLogRepo) Close() error {
	return r.db.Close()
}
