package repo

import (
	"context"
	"time"

	"github.com/user/groupwatch/internal/biz/domain"
)

// ConfigRepo persists the global configuration, the monitored-group
// registry and the aggregate stats record. It is the single source of
// truth: every load reflects the latest completed save, and mutations
// are serialized internally so concurrent callers never lose updates.
type ConfigRepo interface {
	// LoadGlobal returns the current global configuration, or the
	// documented defaults when no prior state exists.
	LoadGlobal(ctx context.Context) (*domain.GlobalConfig, error)

	// SaveGlobal replaces the persisted global configuration. The new
	// state is visible to the next LoadGlobal, with no staleness window.
	SaveGlobal(ctx context.Context, cfg *domain.GlobalConfig) error

	// ListGroups returns all monitored groups.
	ListGroups(ctx context.Context) ([]*domain.MonitoredGroup, error)

	// GetGroup returns the monitored group, or nil when absent.
	GetGroup(ctx context.Context, id string) (*domain.MonitoredGroup, error)

	// AddGroup inserts a new monitored group. Returns
	// domain.ErrAlreadyMonitored when the id is already registered.
	AddGroup(ctx context.Context, g *domain.MonitoredGroup) error

	// RemoveGroup deletes a monitored group and returns the removed
	// entry, or nil when it was not registered. Idempotent.
	RemoveGroup(ctx context.Context, id string) (*domain.MonitoredGroup, error)

	// UpdateGroup replaces a monitored group's settings and stats.
	// Returns domain.ErrGroupNotFound when the id is unknown.
	UpdateGroup(ctx context.Context, g *domain.MonitoredGroup) error

	// RecordMatch increments the group's total and filtered counters
	// together and stamps last activity. No-op when the group has been
	// removed in the meantime.
	RecordMatch(ctx context.Context, id string, at time.Time) error

	// LoadStats returns the aggregate stats record; the monitored-group
	// count is derived live from the registry.
	LoadStats(ctx context.Context) (*domain.GlobalStats, error)

	// RecordGlobalMatch increments the aggregate counters together and
	// returns the updated record.
	RecordGlobalMatch(ctx context.Context, at time.Time) (*domain.GlobalStats, error)

	// Close closes the underlying store.
	Close() error
}
