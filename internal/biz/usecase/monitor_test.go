package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/user/groupwatch/internal/biz/domain"
)

func newTestEngine(config *mockConfigRepo, logs *mockAlertLogRepo, notifier *recordingNotifier) *MonitorEngine {
	e := NewMonitorEngine(config, logs, NewKeywordFilter(), notifier)
	e.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return e
}

func monitoredGroup(id, name string) *domain.MonitoredGroup {
	return &domain.MonitoredGroup{
		ID:             id,
		Name:           name,
		Added:          time.Now(),
		CustomKeywords: []string{},
		Enabled:        true,
	}
}

func groupMessage(chatID, body string) *domain.InboundMessage {
	return &domain.InboundMessage{
		ID:          "msg-1",
		ChatID:      chatID,
		ChatName:    "Drivers",
		IsGroup:     true,
		From:        "447700900001@c.us",
		ContactName: "Alice",
		Body:        body,
		MsgType:     domain.MsgTypeChat,
		Timestamp:   time.Now(),
	}
}

// Scenario A: a monitored group message matching a global keyword is
// logged, counted and broadcast.
func TestHandleMessageMatch(t *testing.T) {
	config := newMockConfigRepo()
	config.global.Keywords = []string{"£"}
	config.groups = []*domain.MonitoredGroup{monitoredGroup("g1", "Drivers")}
	logs := newMockAlertLogRepo()
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	dec, err := engine.HandleMessage(context.Background(), groupMessage("g1", "offering a ride for £50"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !dec.Alerted {
		t.Fatalf("expected alert, got drop reason %q", dec.Reason)
	}
	if !reflect.DeepEqual(dec.Entry.KeywordsFound, []string{"£"}) {
		t.Errorf("KeywordsFound = %v, want [£]", dec.Entry.KeywordsFound)
	}

	if got := len(logs.entries["g1"]); got != 1 {
		t.Errorf("log entries = %d, want 1", got)
	}
	g := config.groups[0]
	if g.Stats.TotalMessages != 1 || g.Stats.FilteredMessages != 1 {
		t.Errorf("group stats = %d/%d, want 1/1", g.Stats.TotalMessages, g.Stats.FilteredMessages)
	}
	if g.Stats.LastActivity == nil {
		t.Error("LastActivity not stamped")
	}
	if config.stats.TotalMessages != 1 || config.stats.FilteredMessages != 1 {
		t.Errorf("global stats = %d/%d, want 1/1", config.stats.TotalMessages, config.stats.FilteredMessages)
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts broadcast = %d, want 1", len(notifier.alerts))
	}
	if len(notifier.stats) != 1 {
		t.Errorf("stats broadcast = %d, want 1", len(notifier.stats))
	}
}

// Scenario B: messages from unmonitored groups are dropped with no
// side effects.
func TestHandleMessageUnmonitoredGroup(t *testing.T) {
	config := newMockConfigRepo()
	config.global.Keywords = []string{"£"}
	config.groups = []*domain.MonitoredGroup{monitoredGroup("g1", "Drivers")}
	logs := newMockAlertLogRepo()
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	dec, err := engine.HandleMessage(context.Background(), groupMessage("g2", "£ anything"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if dec.Alerted || dec.Reason != DropUnmonitored {
		t.Errorf("decision = %+v, want unmonitored drop", dec)
	}
	if len(logs.entries["g2"]) != 0 || len(notifier.alerts) != 0 {
		t.Error("drop must produce no log write or broadcast")
	}
}

// Scenario C: a media message with no caption is dropped regardless of
// keywords.
func TestHandleMessageCaptionlessMedia(t *testing.T) {
	config := newMockConfigRepo()
	config.groups = []*domain.MonitoredGroup{monitoredGroup("g1", "Drivers")}
	logs := newMockAlertLogRepo()
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	msg := groupMessage("g1", "fare inside the body is ignored for media")
	msg.HasMedia = true
	msg.MsgType = "image"
	msg.Caption = ""

	dec, err := engine.HandleMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if dec.Reason != DropNoText {
		t.Errorf("reason = %q, want %q", dec.Reason, DropNoText)
	}
}

func TestHandleMessageMediaCaption(t *testing.T) {
	config := newMockConfigRepo()
	config.groups = []*domain.MonitoredGroup{monitoredGroup("g1", "Drivers")}
	logs := newMockAlertLogRepo()
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	msg := groupMessage("g1", "")
	msg.HasMedia = true
	msg.MsgType = "image"
	msg.Caption = "tarifa £40 to the airport"

	dec, err := engine.HandleMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !dec.Alerted {
		t.Fatalf("expected caption match, got drop %q", dec.Reason)
	}
	if dec.Entry.Text != "tarifa £40 to the airport" {
		t.Errorf("entry text = %q, want the caption", dec.Entry.Text)
	}
	if !dec.Entry.HasMedia || dec.Entry.MediaType != "image" {
		t.Errorf("media metadata not carried: %+v", dec.Entry)
	}
}

func TestHandleMessageGate(t *testing.T) {
	config := newMockConfigRepo()
	config.groups = []*domain.MonitoredGroup{monitoredGroup("g1", "Drivers")}
	logs := newMockAlertLogRepo()
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	config.global.Active = false
	dec, _ := engine.HandleMessage(context.Background(), groupMessage("g1", "fare"))
	if dec.Reason != DropInactive {
		t.Errorf("inactive: reason = %q", dec.Reason)
	}

	// The engine refuses to run outside read-only mode.
	config.global.Active = true
	config.global.ReadOnly = false
	dec, _ = engine.HandleMessage(context.Background(), groupMessage("g1", "fare"))
	if dec.Reason != DropInactive {
		t.Errorf("not read-only: reason = %q", dec.Reason)
	}
}

func TestHandleMessageDirectChat(t *testing.T) {
	config := newMockConfigRepo()
	logs := newMockAlertLogRepo()
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	msg := groupMessage("u1", "fare £100")
	msg.IsGroup = false

	// No monitored groups, monitorAllGroups off: early gate drop.
	dec, _ := engine.HandleMessage(context.Background(), msg)
	if dec.Reason != DropUnmonitored {
		t.Errorf("reason = %q, want %q", dec.Reason, DropUnmonitored)
	}

	// With a monitored group the gate passes, but direct chats still
	// never reach the filter.
	config.groups = []*domain.MonitoredGroup{monitoredGroup("g1", "Drivers")}
	dec, _ = engine.HandleMessage(context.Background(), msg)
	if dec.Reason != DropDirectChat {
		t.Errorf("reason = %q, want %q", dec.Reason, DropDirectChat)
	}
	if len(notifier.alerts) != 0 {
		t.Error("direct chats must never alert")
	}
}

func TestHandleMessageMonitorAllGroups(t *testing.T) {
	config := newMockConfigRepo()
	config.global.MonitorAllGroups = true
	logs := newMockAlertLogRepo()
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	dec, err := engine.HandleMessage(context.Background(), groupMessage("g9", "fare £10"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !dec.Alerted {
		t.Fatalf("monitorAllGroups message dropped: %q", dec.Reason)
	}
}

// Counters only move on a match: an eligible non-matching message
// leaves both totals untouched. "Total" tracks matched traffic, not
// true volume — preserved behavior, not a bug fix.
func TestCountersLockstep(t *testing.T) {
	config := newMockConfigRepo()
	config.groups = []*domain.MonitoredGroup{monitoredGroup("g1", "Drivers")}
	logs := newMockAlertLogRepo()
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	dec, err := engine.HandleMessage(context.Background(), groupMessage("g1", "hello all"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if dec.Reason != DropNoMatch {
		t.Fatalf("reason = %q, want %q", dec.Reason, DropNoMatch)
	}
	g := config.groups[0]
	if g.Stats.TotalMessages != 0 || g.Stats.FilteredMessages != 0 {
		t.Errorf("counters moved on a non-match: %d/%d", g.Stats.TotalMessages, g.Stats.FilteredMessages)
	}
}

// Persistence failures do not suppress the alert: real-time visibility
// deliberately outranks durability for this system, the inverse of the
// usual storage contract.
func TestAlertBroadcastSurvivesStoreFailure(t *testing.T) {
	config := newMockConfigRepo()
	config.groups = []*domain.MonitoredGroup{monitoredGroup("g1", "Drivers")}
	config.recordErr = errors.New("disk full")
	config.globalMatchErr = errors.New("disk full")
	logs := newMockAlertLogRepo()
	logs.appendErr = errors.New("disk full")
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	dec, err := engine.HandleMessage(context.Background(), groupMessage("g1", "fare £10"))
	if err != nil {
		t.Fatalf("HandleMessage must not fail on store errors: %v", err)
	}
	if !dec.Alerted {
		t.Fatal("alert suppressed by store failure")
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts broadcast = %d, want 1", len(notifier.alerts))
	}
}

func TestEmailEligibility(t *testing.T) {
	config := newMockConfigRepo()
	config.global.Emails = []domain.EmailAccount{{User: "ops@example.com", Pass: "secret"}}
	g := monitoredGroup("g1", "Drivers")
	config.groups = []*domain.MonitoredGroup{g}
	logs := newMockAlertLogRepo()
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	if dec, _ := engine.HandleMessage(context.Background(), groupMessage("g1", "fare")); !dec.Alerted {
		t.Fatal("expected alert")
	}
	if !notifier.alerts[0].Email {
		t.Error("email should fire for an enabled group with sinks")
	}

	g.Enabled = false
	if dec, _ := engine.HandleMessage(context.Background(), groupMessage("g1", "fare")); !dec.Alerted {
		t.Fatal("expected alert")
	}
	if notifier.alerts[1].Email {
		t.Error("disabled group must not email, though it still logs and broadcasts")
	}
}

// A dashboard edit is visible to the next message: the engine re-reads
// configuration every time and never caches.
func TestConfigEditAppliesToNextMessage(t *testing.T) {
	config := newMockConfigRepo()
	config.global.Keywords = []string{"fare"}
	config.groups = []*domain.MonitoredGroup{monitoredGroup("g1", "Drivers")}
	logs := newMockAlertLogRepo()
	notifier := &recordingNotifier{}
	engine := newTestEngine(config, logs, notifier)

	dec, _ := engine.HandleMessage(context.Background(), groupMessage("g1", "precio 20"))
	if dec.Alerted {
		t.Fatal("should not match before the edit")
	}

	config.global.Keywords = []string{"precio"}
	dec, _ = engine.HandleMessage(context.Background(), groupMessage("g1", "precio 20"))
	if !dec.Alerted {
		t.Fatal("edit not visible to the next message")
	}
}
