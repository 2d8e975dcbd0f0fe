package repo

import (
	"context"

	"github.com/user/groupwatch/internal/biz/domain"
)

// AlertLogRepo is the append-only, size-bounded alert log, partitioned
// by group id.
type AlertLogRepo interface {
	// Append writes one entry to the group's log, then trims the log to
	// the most recent maxPerGroup entries when maxPerGroup is positive.
	// The trim is all-or-nothing relative to this append.
	Append(ctx context.Context, groupID string, entry *domain.AlertEntry, maxPerGroup int) error

	// ReadRecent returns the group's entries most-recent-first,
	// truncated to limit. A non-positive limit returns everything.
	// Unknown groups yield an empty slice.
	ReadRecent(ctx context.Context, groupID string, limit int) ([]*domain.AlertEntry, error)

	// ReadAll returns the group's full log in append order.
	ReadAll(ctx context.Context, groupID string) ([]*domain.AlertEntry, error)

	// Close closes the underlying store.
	Close() error
}
