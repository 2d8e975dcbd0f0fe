package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/user/groupwatch/internal/biz/domain"
	"github.com/user/groupwatch/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// configRepo implements the configuration repository on sqlite. The
// single-row tables give saves replace-on-write atomicity, and the
// single-writer database serializes mutations so racing counters and
// edits never lose updates.
type configRepo struct {
	db *sql.DB
}

// NewConfigRepo opens (creating if needed) the configuration database.
func NewConfigRepo(dbPath string) (repo.ConfigRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers; sqlite would otherwise return
	// busy errors under concurrent mutation.
	db.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS global_config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			active INTEGER NOT NULL,
			read_only INTEGER NOT NULL,
			keywords TEXT NOT NULL,
			min_fare INTEGER NOT NULL,
			monitor_all_groups INTEGER NOT NULL,
			scan_interval_ms INTEGER NOT NULL,
			max_logs_per_group INTEGER NOT NULL,
			emails TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS monitored_groups (
			group_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			added_at INTEGER NOT NULL,
			custom_keywords TEXT NOT NULL,
			min_fare INTEGER,
			enabled INTEGER NOT NULL DEFAULT 1,
			total_messages INTEGER NOT NULL DEFAULT 0,
			filtered_messages INTEGER NOT NULL DEFAULT 0,
			last_activity_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS global_stats (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			total_messages INTEGER NOT NULL DEFAULT 0,
			filtered_messages INTEGER NOT NULL DEFAULT 0,
			last_update INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &configRepo{db: db}, nil
}

// LoadGlobal returns the saved configuration, or the defaults when
// nothing has been saved yet.
func (r *configRepo) LoadGlobal(ctx context.Context) (*domain.GlobalConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT active, read_only, keywords, min_fare, monitor_all_groups,
		       scan_interval_ms, max_logs_per_group, emails
		FROM global_config WHERE id = 1
	`)

	var cfg domain.GlobalConfig
	var keywordsJSON, emailsJSON string
	err := row.Scan(&cfg.Active, &cfg.ReadOnly, &keywordsJSON, &cfg.MinFare,
		&cfg.MonitorAllGroups, &cfg.ScanIntervalMs, &cfg.MaxLogsPerGroup, &emailsJSON)
	if err == sql.ErrNoRows {
		return domain.DefaultGlobalConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query global config: %w", err)
	}

	if err := json.Unmarshal([]byte(keywordsJSON), &cfg.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(emailsJSON), &cfg.Emails); err != nil {
		return nil, fmt.Errorf("failed to decode email sinks: %w", err)
	}
	return &cfg, nil
}

// SaveGlobal replaces the configuration row.
func (r *configRepo) SaveGlobal(ctx context.Context, cfg *domain.GlobalConfig) error {
	keywordsJSON, err := json.Marshal(cfg.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	emailsJSON, err := json.Marshal(cfg.Emails)
	if err != nil {
		return fmt.Errorf("failed to encode email sinks: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO global_config
			(id, active, read_only, keywords, min_fare, monitor_all_groups,
			 scan_interval_ms, max_logs_per_group, emails)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cfg.Active, cfg.ReadOnly, string(keywordsJSON), cfg.MinFare,
		cfg.MonitorAllGroups, cfg.ScanIntervalMs, cfg.MaxLogsPerGroup, string(emailsJSON))
	if err != nil {
		return fmt.Errorf("failed to save global config: %w", err)
	}
	return nil
}

const groupColumns = `group_id, name, added_at, custom_keywords, min_fare,
	enabled, total_messages, filtered_messages, last_activity_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (*domain.MonitoredGroup, error) {
	var g domain.MonitoredGroup
	var addedAt int64
	var keywordsJSON string
	var minFare, lastActivity sql.NullInt64

	err := row.Scan(&g.ID, &g.Name, &addedAt, &keywordsJSON, &minFare,
		&g.Enabled, &g.Stats.TotalMessages, &g.Stats.FilteredMessages, &lastActivity)
	if err != nil {
		return nil, err
	}

	g.Added = time.Unix(addedAt, 0)
	if err := json.Unmarshal([]byte(keywordsJSON), &g.CustomKeywords); err != nil {
		return nil, fmt.Errorf("failed to decode custom keywords: %w", err)
	}
	if minFare.Valid {
		fare := int(minFare.Int64)
		g.MinFare = &fare
	}
	if lastActivity.Valid {
		at := time.Unix(lastActivity.Int64, 0)
		g.Stats.LastActivity = &at
	}
	return &g, nil
}

// ListGroups lists monitored groups in the order they were added.
func (r *configRepo) ListGroups(ctx context.Context) ([]*domain.MonitoredGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+groupColumns+` FROM monitored_groups ORDER BY added_at, group_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.MonitoredGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetGroup returns the monitored group, or nil when absent.
func (r *configRepo) GetGroup(ctx context.Context, id string) (*domain.MonitoredGroup, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+groupColumns+` FROM monitored_groups WHERE group_id = ?
	`, id)

	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query group: %w", err)
	}
	return g, nil
}

// AddGroup inserts a monitored group; the primary key enforces the
// one-entry-per-id invariant without a read-then-write race.
func (r *configRepo) AddGroup(ctx context.Context, g *domain.MonitoredGroup) error {
	keywordsJSON, err := json.Marshal(g.CustomKeywords)
	if err != nil {
		return fmt.Errorf("failed to encode custom keywords: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO monitored_groups
			(group_id, name, added_at, custom_keywords, min_fare, enabled,
			 total_messages, filtered_messages, last_activity_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, NULL)
	`, g.ID, g.Name, g.Added.Unix(), string(keywordsJSON), nullableInt(g.MinFare), g.Enabled)
	if err != nil {
		return fmt.Errorf("failed to add group: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to add group: %w", err)
	}
	if affected == 0 {
		return domain.ErrAlreadyMonitored
	}
	return nil
}

// RemoveGroup deletes the group and returns what was removed; nil when
// it was never there.
func (r *configRepo) RemoveGroup(ctx context.Context, id string) (*domain.MonitoredGroup, error) {
	g, err := r.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM monitored_groups WHERE group_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to remove group: %w", err)
	}
	return g, nil
}

// UpdateGroup replaces the group's row.
func (r *configRepo) UpdateGroup(ctx context.Context, g *domain.MonitoredGroup) error {
	keywordsJSON, err := json.Marshal(g.CustomKeywords)
	if err != nil {
		return fmt.Errorf("failed to encode custom keywords: %w", err)
	}

	var lastActivity interface{}
	if g.Stats.LastActivity != nil {
		lastActivity = g.Stats.LastActivity.Unix()
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE monitored_groups
		SET name = ?, custom_keywords = ?, min_fare = ?, enabled = ?,
		    total_messages = ?, filtered_messages = ?, last_activity_at = ?
		WHERE group_id = ?
	`, g.Name, string(keywordsJSON), nullableInt(g.MinFare), g.Enabled,
		g.Stats.TotalMessages, g.Stats.FilteredMessages, lastActivity, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if affected == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

// RecordMatch bumps both counters in one statement, so concurrent
// matches on the same group never lose an increment. No-op when the
// group was removed in the meantime.
func (r *configRepo) RecordMatch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE monitored_groups
		SET total_messages = total_messages + 1,
		    filtered_messages = filtered_messages + 1,
		    last_activity_at = ?
		WHERE group_id = ?
	`, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to record match: %w", err)
	}
	return nil
}

// LoadStats returns the aggregate record; the monitored-group count and
// today's active groups are derived live rather than stored.
func (r *configRepo) LoadStats(ctx context.Context) (*domain.GlobalStats, error) {
	var stats domain.GlobalStats
	var lastUpdate int64

	row := r.db.QueryRowContext(ctx, `
		SELECT total_messages, filtered_messages, last_update
		FROM global_stats WHERE id = 1
	`)
	err := row.Scan(&stats.TotalMessages, &stats.FilteredMessages, &lastUpdate)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	if lastUpdate > 0 {
		stats.LastUpdate = time.Unix(lastUpdate, 0)
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM monitored_groups`).Scan(&stats.MonitoredGroups); err != nil {
		return nil, fmt.Errorf("failed to count groups: %w", err)
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM monitored_groups
		WHERE last_activity_at IS NOT NULL AND last_activity_at >= ?
	`, midnight.Unix()).Scan(&stats.ActiveToday)
	if err != nil {
		return nil, fmt.Errorf("failed to count active groups: %w", err)
	}
	return &stats, nil
}

// RecordGlobalMatch bumps the aggregate counters together and returns
// the updated record.
func (r *configRepo) RecordGlobalMatch(ctx context.Context, at time.Time) (*domain.GlobalStats, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO global_stats (id) VALUES (1)`); err != nil {
		return nil, fmt.Errorf("failed to init stats: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE global_stats
		SET total_messages = total_messages + 1,
		    filtered_messages = filtered_messages + 1,
		    last_update = ?
		WHERE id = 1
	`, at.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to update stats: %w", err)
	}
	return r.LoadStats(ctx)
}

// Close closes the database connection.
func (r *configRepo) Close() error {
	return r.db.Close()
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
