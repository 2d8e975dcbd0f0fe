package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/user/groupwatch/internal/biz/domain"
	"github.com/user/groupwatch/internal/biz/repo"
)

// Broadcaster pushes one event to every connected dashboard viewer.
// Sends are best effort; delivery is never guaranteed and a slow
// viewer never blocks the caller.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// SettingsUsecase is the dashboard-facing operation set over the
// configuration store: global config saves (with loose input
// coercion), the monitored-group registry, and aggregate stats. Every
// mutation is broadcast so viewers converge on the saved state.
type SettingsUsecase struct {
	config repo.ConfigRepo
	hub    Broadcaster
}

// NewSettingsUsecase creates a settings usecase.
func NewSettingsUsecase(config repo.ConfigRepo, hub Broadcaster) *SettingsUsecase {
	return &SettingsUsecase{config: config, hub: hub}
}

// Global returns the current global configuration.
func (uc *SettingsUsecase) Global(ctx context.Context) (*domain.GlobalConfig, error) {
	return uc.config.LoadGlobal(ctx)
}

// SaveGlobal shallow-merges the patch over the current configuration
// and persists the result. Patch values may be loosely typed: "true",
// "false" and numeric-looking strings are coerced, since dashboard
// forms post everything as strings.
func (uc *SettingsUsecase) SaveGlobal(ctx context.Context, patch map[string]interface{}) (*domain.GlobalConfig, error) {
	cfg, err := uc.config.LoadGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("load global config: %w", err)
	}

	applyGlobalPatch(cfg, patch)

	if err := uc.config.SaveGlobal(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save global config: %w", err)
	}
	uc.hub.Broadcast("config-updated", cfg)
	return cfg, nil
}

// SaveQuick persists just the two main toggles.
func (uc *SettingsUsecase) SaveQuick(ctx context.Context, active, readOnly bool) error {
	cfg, err := uc.config.LoadGlobal(ctx)
	if err != nil {
		return fmt.Errorf("load global config: %w", err)
	}

	cfg.Active = active
	cfg.ReadOnly = readOnly

	if err := uc.config.SaveGlobal(ctx, cfg); err != nil {
		return fmt.Errorf("save global config: %w", err)
	}
	uc.hub.Broadcast("config-updated", cfg)
	uc.hub.Broadcast("quick-config-applied", map[string]bool{
		"botActive": active,
		"readOnly":  readOnly,
	})
	return nil
}

// Groups lists the monitored groups with their settings and stats.
func (uc *SettingsUsecase) Groups(ctx context.Context) ([]*domain.MonitoredGroup, error) {
	return uc.config.ListGroups(ctx)
}

// AddGroup promotes a discovered group to monitored. The fare override
// defaults to the global threshold when the caller leaves it unset.
// Returns domain.ErrAlreadyMonitored when the id is already registered.
func (uc *SettingsUsecase) AddGroup(ctx context.Context, id, name string, customKeywords []string, minFare *int) (*domain.MonitoredGroup, error) {
	cfg, err := uc.config.LoadGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("load global config: %w", err)
	}

	if minFare == nil {
		global := cfg.MinFare
		minFare = &global
	}
	if customKeywords == nil {
		customKeywords = []string{}
	}

	group := &domain.MonitoredGroup{
		ID:             id,
		Name:           name,
		Added:          time.Now(),
		CustomKeywords: customKeywords,
		MinFare:        minFare,
		Enabled:        true,
	}

	if err := uc.config.AddGroup(ctx, group); err != nil {
		return nil, err
	}
	uc.hub.Broadcast("group-added", group)
	return group, nil
}

// RemoveGroup stops monitoring a group. Idempotent: removing an
// unknown id returns nil without error.
func (uc *SettingsUsecase) RemoveGroup(ctx context.Context, id string) (*domain.MonitoredGroup, error) {
	removed, err := uc.config.RemoveGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if removed != nil {
		uc.hub.Broadcast("group-removed", id)
	}
	return removed, nil
}

// UpdateGroup shallow-merges the patch into the monitored group's
// settings. Returns domain.ErrGroupNotFound for unknown ids.
func (uc *SettingsUsecase) UpdateGroup(ctx context.Context, id string, patch map[string]interface{}) (*domain.MonitoredGroup, error) {
	group, err := uc.config.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, domain.ErrGroupNotFound
	}

	applyGroupPatch(group, patch)

	if err := uc.config.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}
	uc.hub.Broadcast("group-updated", map[string]interface{}{
		"groupId": id,
		"updates": patch,
	})
	return group, nil
}

// Stats returns the aggregate stats record.
func (uc *SettingsUsecase) Stats(ctx context.Context) (*domain.GlobalStats, error) {
	return uc.config.LoadStats(ctx)
}

func applyGlobalPatch(cfg *domain.GlobalConfig, patch map[string]interface{}) {
	if v, ok := patch["botActive"]; ok {
		if b, ok := coerceBool(v); ok {
			cfg.Active = b
		}
	}
	if v, ok := patch["readOnly"]; ok {
		if b, ok := coerceBool(v); ok {
			cfg.ReadOnly = b
		}
	}
	if v, ok := patch["monitorAllGroups"]; ok {
		if b, ok := coerceBool(v); ok {
			cfg.MonitorAllGroups = b
		}
	}
	if v, ok := patch["minFare"]; ok {
		if n, ok := coerceInt(v); ok {
			cfg.MinFare = n
		}
	}
	if v, ok := patch["scanInterval"]; ok {
		if n, ok := coerceInt(v); ok {
			cfg.ScanIntervalMs = n
		}
	}
	if v, ok := patch["maxLogsPerGroup"]; ok {
		if n, ok := coerceInt(v); ok && n >= 0 {
			cfg.MaxLogsPerGroup = n
		}
	}
	if v, ok := patch["keywords"]; ok {
		if list, ok := coerceStrings(v); ok {
			cfg.Keywords = list
		}
	}
	if v, ok := patch["emails"]; ok {
		if sinks, ok := coerceEmails(v); ok {
			cfg.Emails = sinks
		}
	}
}

func applyGroupPatch(g *domain.MonitoredGroup, patch map[string]interface{}) {
	if v, ok := patch["name"]; ok {
		if s, ok := v.(string); ok {
			g.Name = s
		}
	}
	if v, ok := patch["enabled"]; ok {
		if b, ok := coerceBool(v); ok {
			g.Enabled = b
		}
	}
	if v, ok := patch["minFare"]; ok {
		if n, ok := coerceInt(v); ok {
			g.MinFare = &n
		}
	}
	if v, ok := patch["customKeywords"]; ok {
		if list, ok := coerceStrings(v); ok {
			g.CustomKeywords = list
		}
	}
}

func coerceBool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		return t == "true", true
	}
	return false, false
}

func coerceInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64: // JSON numbers decode as float64
		return int(t), true
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

func coerceStrings(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

func coerceEmails(v interface{}) ([]domain.EmailAccount, bool) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]domain.EmailAccount, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var sink domain.EmailAccount
		if s, ok := m["user"].(string); ok {
			sink.User = s
		}
		if s, ok := m["pass"].(string); ok {
			sink.Pass = s
		}
		if sink.User != "" {
			out = append(out, sink)
		}
	}
	return out, true
}
