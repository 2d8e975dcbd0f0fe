package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/user/groupwatch/internal/biz/domain"
)

// Mock implementations shared across the usecase tests.

type mockConfigRepo struct {
	mu     sync.Mutex
	global *domain.GlobalConfig
	groups []*domain.MonitoredGroup
	stats  domain.GlobalStats

	recordErr    error
	globalMatchErr error
}

func newMockConfigRepo() *mockConfigRepo {
	return &mockConfigRepo{global: domain.DefaultGlobalConfig()}
}

func (m *mockConfigRepo) LoadGlobal(ctx context.Context) (*domain.GlobalConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := *m.global
	return &cfg, nil
}

func (m *mockConfigRepo) SaveGlobal(ctx context.Context, cfg *domain.GlobalConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *cfg
	m.global = &saved
	return nil
}

func (m *mockConfigRepo) ListGroups(ctx context.Context) ([]*domain.MonitoredGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.MonitoredGroup, len(m.groups))
	copy(out, m.groups)
	return out, nil
}

func (m *mockConfigRepo) GetGroup(ctx context.Context, id string) (*domain.MonitoredGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, nil
}

func (m *mockConfigRepo) AddGroup(ctx context.Context, g *domain.MonitoredGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.groups {
		if existing.ID == g.ID {
			return domain.ErrAlreadyMonitored
		}
	}
	m.groups = append(m.groups, g)
	return nil
}

func (m *mockConfigRepo) RemoveGroup(ctx context.Context, id string) (*domain.MonitoredGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, g := range m.groups {
		if g.ID == id {
			m.groups = append(m.groups[:i], m.groups[i+1:]...)
			return g, nil
		}
	}
	return nil, nil
}

func (m *mockConfigRepo) UpdateGroup(ctx context.Context, g *domain.MonitoredGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.groups {
		if existing.ID == g.ID {
			m.groups[i] = g
			return nil
		}
	}
	return domain.ErrGroupNotFound
}

func (m *mockConfigRepo) RecordMatch(ctx context.Context, id string, at time.Time) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.groups {
		if g.ID == id {
			g.Stats.TotalMessages++
			g.Stats.FilteredMessages++
			g.Stats.LastActivity = &at
			return nil
		}
	}
	return nil
}

func (m *mockConfigRepo) LoadStats(ctx context.Context) (*domain.GlobalStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	stats.MonitoredGroups = len(m.groups)
	return &stats, nil
}

func (m *mockConfigRepo) RecordGlobalMatch(ctx context.Context, at time.Time) (*domain.GlobalStats, error) {
	if m.globalMatchErr != nil {
		return nil, m.globalMatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.TotalMessages++
	m.stats.FilteredMessages++
	m.stats.LastUpdate = at
	stats := m.stats
	stats.MonitoredGroups = len(m.groups)
	return &stats, nil
}

func (m *mockConfigRepo) Close() error { return nil }

type mockAlertLogRepo struct {
	mu        sync.Mutex
	entries   map[string][]*domain.AlertEntry
	appendErr error
	lastMax   int
}

func newMockAlertLogRepo() *mockAlertLogRepo {
	return &mockAlertLogRepo{entries: make(map[string][]*domain.AlertEntry)}
}

func (m *mockAlertLogRepo) Append(ctx context.Context, groupID string, entry *domain.AlertEntry, maxPerGroup int) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMax = maxPerGroup
	log := append(m.entries[groupID], entry)
	if maxPerGroup > 0 && len(log) > maxPerGroup {
		log = log[len(log)-maxPerGroup:]
	}
	m.entries[groupID] = log
	return nil
}

func (m *mockAlertLogRepo) ReadRecent(ctx context.Context, groupID string, limit int) ([]*domain.AlertEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := m.entries[groupID]
	out := make([]*domain.AlertEntry, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		out = append(out, log[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockAlertLogRepo) ReadAll(ctx context.Context, groupID string) ([]*domain.AlertEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.AlertEntry, len(m.entries[groupID]))
	copy(out, m.entries[groupID])
	return out, nil
}

func (m *mockAlertLogRepo) Close() error { return nil }

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*domain.Alert
	stats  []*domain.GlobalStats
}

func (n *recordingNotifier) FanoutAlert(alert *domain.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
}

func (n *recordingNotifier) BroadcastStats(stats *domain.GlobalStats) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats = append(n.stats, stats)
}

type recordingHub struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHub) Broadcast(event string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHub) has(event string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.events {
		if e == event {
			return true
		}
	}
	return false
}
