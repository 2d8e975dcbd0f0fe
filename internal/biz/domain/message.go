package domain

import (
	"strings"
	"time"
)

// MsgTypeChat is the client's label for a plain text message.
const MsgTypeChat = "chat"

// InboundMessage is a single message event delivered by the messaging
// client, with chat and contact metadata already resolved by the
// transport.
type InboundMessage struct {
	ID            string
	ChatID        string
	ChatName      string
	IsGroup       bool
	From          string
	ContactName   string
	ContactNumber string
	Body          string
	Caption       string
	HasMedia      bool
	MsgType       string
	Timestamp     time.Time
}

// ResolveText returns the text the keyword filter runs on. Plain
// messages use the body verbatim; media messages use the caption. A
// captionless media message, or blank resolved text, has nothing to
// filter on.
func (m *InboundMessage) ResolveText() (string, bool) {
	text := m.Body
	if m.HasMedia && m.MsgType != MsgTypeChat {
		text = m.Caption
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// ContactLabel returns the display name for the sender.
func (m *InboundMessage) ContactLabel() string {
	if m.ContactName != "" {
		return m.ContactName
	}
	if m.ContactNumber != "" {
		return m.ContactNumber
	}
	return "Desconocido"
}

// ChatMessage is a message fetched on demand from the client for the
// dashboard's full-history view, matched or not.
type ChatMessage struct {
	ID          string    `json:"id"`
	From        string    `json:"from"`
	FromName    string    `json:"fromName"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
	HasMedia    bool      `json:"hasMedia"`
	Type        string    `json:"type"`
	IsForwarded bool      `json:"isForwarded"`
}
