package domain

import (
	"fmt"
	"strings"
	"time"
)

// AlertTypeKeyword marks entries produced by a keyword match.
const AlertTypeKeyword = "keyword_match"

// AlertEntry is one immutable alert log record. Entries are only ever
// appended; the retention trim is the single operation that removes
// them. Physical append order is chronological order.
type AlertEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	GroupID       string    `json:"groupId"`
	GroupName     string    `json:"groupName"`
	Contact       string    `json:"contact"`
	ContactNumber string    `json:"contactNumber"`
	Text          string    `json:"text"`
	AlertType     string    `json:"alertType"`
	HasMedia      bool      `json:"hasMedia"`
	MediaType     string    `json:"mediaType"`
	KeywordsFound []string  `json:"keywordsFound"`
}

// RenderText formats the alert block printed to the terminal and used
// as the email body.
func (e *AlertEntry) RenderText() string {
	var b strings.Builder
	b.WriteString("\n═══════════════════════════════\n")
	fmt.Fprintf(&b, "📅 %s\n", e.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "👥 Group: %s\n", e.GroupName)
	fmt.Fprintf(&b, "👤 De: %s\n", e.Contact)
	fmt.Fprintf(&b, "💬 Mensaje:\n%s\n", e.Text)
	b.WriteString("═══════════════════════════════\n")
	return b.String()
}

// Alert bundles a log entry with everything the notification sinks
// need. Fan-out is fire and forget and not part of the durability
// contract: the entry may already be persisted, or persistence may
// have failed, by the time sinks see it.
type Alert struct {
	Entry *AlertEntry
	Text  string // rendered block for terminal and email bodies
	Email bool   // deliver to email sinks as well as the dashboard
	Sinks []EmailAccount
}
