package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/user/groupwatch/internal/biz/domain"
	"github.com/user/groupwatch/internal/biz/repo"
)

// DropReason says why an inbound message produced no alert.
type DropReason string

// Terminal drop states, in gate order.
const (
	DropNone        DropReason = ""
	DropInactive    DropReason = "inactive"
	DropDirectChat  DropReason = "direct_chat"
	DropUnmonitored DropReason = "unmonitored"
	DropNoText      DropReason = "no_text"
	DropNoMatch     DropReason = "no_match"
)

// Decision is the terminal state for one inbound message.
type Decision struct {
	Alerted bool
	Reason  DropReason
	Entry   *domain.AlertEntry
}

// AlertNotifier fans one matched alert out to the dashboard broadcast
// channel and any configured email sinks. Delivery is fire and forget.
type AlertNotifier interface {
	FanoutAlert(alert *domain.Alert)
	BroadcastStats(stats *domain.GlobalStats)
}

// MonitorEngine consumes inbound message events and turns keyword
// matches into logged, broadcast alerts. The engine owns no persistent
// state: configuration is re-read on every message, so a dashboard
// edit applies to the next message evaluated after it completes.
type MonitorEngine struct {
	config   repo.ConfigRepo
	logs     repo.AlertLogRepo
	filter   *KeywordFilter
	notifier AlertNotifier
	now      func() time.Time
}

// NewMonitorEngine creates a monitor engine.
func NewMonitorEngine(config repo.ConfigRepo, logs repo.AlertLogRepo, filter *KeywordFilter, notifier AlertNotifier) *MonitorEngine {
	return &MonitorEngine{
		config:   config,
		logs:     logs,
		filter:   filter,
		notifier: notifier,
		now:      time.Now,
	}
}

// HandleMessage runs one message through the gate, scope, text and
// filter stages, and on a match performs the side effects in order:
// log append, per-group stats, global stats, notification fan-out.
//
// A store failure on the match path is logged and the fan-out still
// fires: real-time visibility on the dashboard outranks durability
// here, the opposite of the usual storage trade.
func (e *MonitorEngine) HandleMessage(ctx context.Context, msg *domain.InboundMessage) (*Decision, error) {
	cfg, err := e.config.LoadGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("load global config: %w", err)
	}

	// The engine only operates in active, read-only mode.
	if !cfg.Active || !cfg.ReadOnly {
		return &Decision{Reason: DropInactive}, nil
	}

	groups, err := e.config.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list monitored groups: %w", err)
	}

	if !msg.IsGroup {
		if !cfg.MonitorAllGroups && len(groups) == 0 {
			return &Decision{Reason: DropUnmonitored}, nil
		}
		// Direct chats can pass the gate above, but only group chats
		// ever reach the filter. Kept as-is from the original gate.
		return &Decision{Reason: DropDirectChat}, nil
	}

	var group *domain.MonitoredGroup
	for _, g := range groups {
		if g.ID == msg.ChatID {
			group = g
			break
		}
	}
	if !cfg.MonitorAllGroups && group == nil {
		return &Decision{Reason: DropUnmonitored}, nil
	}

	text, ok := msg.ResolveText()
	if !ok {
		return &Decision{Reason: DropNoText}, nil
	}

	var custom []string
	if group != nil {
		custom = group.CustomKeywords
	}
	result := e.filter.Evaluate(text, cfg.Keywords, custom)
	if !result.Matched {
		return &Decision{Reason: DropNoMatch}, nil
	}

	entry := &domain.AlertEntry{
		Timestamp:     e.now(),
		GroupID:       msg.ChatID,
		GroupName:     msg.ChatName,
		Contact:       msg.ContactLabel(),
		ContactNumber: msg.From,
		Text:          text,
		AlertType:     domain.AlertTypeKeyword,
		HasMedia:      msg.HasMedia,
		MediaType:     msg.MsgType,
		KeywordsFound: result.FoundKeywords,
	}

	if err := e.logs.Append(ctx, msg.ChatID, entry, cfg.MaxLogsPerGroup); err != nil {
		fmt.Printf("[Monitor] Failed to append alert log for %s: %v\n", msg.ChatID, err)
	}
	if err := e.config.RecordMatch(ctx, msg.ChatID, entry.Timestamp); err != nil {
		fmt.Printf("[Monitor] Failed to record group match for %s: %v\n", msg.ChatID, err)
	}
	stats, err := e.config.RecordGlobalMatch(ctx, entry.Timestamp)
	if err != nil {
		fmt.Printf("[Monitor] Failed to update global stats: %v\n", err)
	}

	alert := &domain.Alert{
		Entry: entry,
		Text:  entry.RenderText(),
		Email: len(cfg.Emails) > 0 && (group == nil || group.Enabled),
		Sinks: cfg.Emails,
	}
	e.notifier.FanoutAlert(alert)
	if stats != nil {
		e.notifier.BroadcastStats(stats)
	}

	return &Decision{Alerted: true, Entry: entry}, nil
}
