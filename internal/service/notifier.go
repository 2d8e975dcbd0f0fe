package service

import (
	"fmt"

	"github.com/user/groupwatch/internal/biz/domain"
	"github.com/user/groupwatch/internal/biz/usecase"
)

// AlertEvent is the dashboard payload for one matched message: the log
// entry plus the rendered text block.
type AlertEvent struct {
	*domain.AlertEntry
	AlertText string `json:"alertText"`
}

// Notifier fans matched alerts out to the dashboard, the terminal and
// the email sinks. Every path is fire and forget: a failed or slow sink
// never blocks the monitor.
type Notifier struct {
	hub    usecase.Broadcaster
	mailer Mailer
}

// NewNotifier creates a notifier. mailer may be nil to disable email.
func NewNotifier(hub usecase.Broadcaster, mailer Mailer) *Notifier {
	return &Notifier{hub: hub, mailer: mailer}
}

// FanoutAlert delivers one alert to every sink.
func (n *Notifier) FanoutAlert(alert *domain.Alert) {
	n.hub.Broadcast("new-group-message", &AlertEvent{
		AlertEntry: alert.Entry,
		AlertText:  alert.Text,
	})

	fmt.Print(alert.Text)

	if alert.Email && n.mailer != nil {
		go n.sendEmails(alert)
	}
}

// BroadcastStats pushes the refreshed aggregate counters to viewers.
func (n *Notifier) BroadcastStats(stats *domain.GlobalStats) {
	n.hub.Broadcast("stats-update", stats)
}

func (n *Notifier) sendEmails(alert *domain.Alert) {
	subject := fmt.Sprintf("[%s] Palabra clave en %s", alert.Entry.GroupName, alert.Entry.GroupName)
	for _, sink := range alert.Sinks {
		if err := n.mailer.Send(sink, subject, alert.Text); err != nil {
			fmt.Printf("[Notifier] Email to %s failed: %v\n", sink.User, err)
		}
	}
}
