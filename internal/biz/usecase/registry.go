package usecase

import (
	"strings"
	"sync"

	"github.com/user/groupwatch/internal/biz/domain"
)

// GroupRegistry holds the live snapshot of groups visible to the
// messaging client and detects newly appeared ones. The snapshot is
// ephemeral and advisory: it is rebuilt from the client, never
// persisted, and viewers may see it stale until the next broadcast.
type GroupRegistry struct {
	mu     sync.RWMutex
	groups []domain.GroupInfo
}

// NewGroupRegistry creates an empty registry.
func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{}
}

// Snapshot returns a copy of the current group list.
func (r *GroupRegistry) Snapshot() []domain.GroupInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.GroupInfo, len(r.groups))
	copy(out, r.groups)
	return out
}

// Replace swaps in a freshly built snapshot.
func (r *GroupRegistry) Replace(groups []domain.GroupInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = groups
}

// Reconcile diffs the live group list against the known snapshot by id
// set membership only; metadata changes alone never count. When new
// ids appeared, the whole snapshot is replaced (no partial diffs) and
// the number of new groups is returned with changed=true.
func (r *GroupRegistry) Reconcile(current []domain.GroupInfo) (newCount int, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	known := make(map[string]struct{}, len(r.groups))
	for _, g := range r.groups {
		known[g.ID] = struct{}{}
	}

	for _, g := range current {
		if _, ok := known[g.ID]; !ok {
			newCount++
		}
	}
	if newCount == 0 {
		return 0, false
	}

	r.groups = current
	return newCount, true
}

// Search returns groups whose name or id contains the query,
// case-insensitively. An empty query matches everything.
func (r *GroupRegistry) Search(query string) []domain.GroupInfo {
	query = strings.ToLower(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.GroupInfo, 0)
	for _, g := range r.groups {
		if strings.Contains(strings.ToLower(g.Name), query) ||
			strings.Contains(strings.ToLower(g.ID), query) {
			out = append(out, g)
		}
	}
	return out
}
