// Package watransport connects to the WhatsApp session bridge, a
// sidecar process that owns the actual WhatsApp Web session and relays
// its events over a local WebSocket. This package is the only part of
// the system that talks to it.
package watransport

import (
	"context"

	"github.com/user/groupwatch/internal/biz/domain"
)

// Disconnect reasons reported by the session bridge. A logout or an
// in-app navigation means the session is gone for good and reconnecting
// is pointless until a human re-links the device.
const (
	ReasonLogout     = "LOGOUT"
	ReasonNavigation = "NAVIGATION"
)

// MessageHandler is the callback for live inbound messages.
type MessageHandler func(msg *domain.InboundMessage)

// Client is the session bridge connection. Callbacks must be registered
// before Start; Start blocks until the connection drops or ctx is
// cancelled.
type Client interface {
	Start(ctx context.Context) error
	Stop()

	// Ready reports whether the WhatsApp session behind the bridge is
	// authenticated and able to serve queries.
	Ready() bool

	OnMessage(handler MessageHandler)
	OnReady(handler func())
	OnAuthenticated(handler func())
	OnAuthFailure(handler func(msg string))
	OnDisconnected(handler func(reason string))
	OnQR(handler func(qr string))

	// ListGroups queries the bridge for the current group chats.
	ListGroups(ctx context.Context) ([]domain.GroupInfo, error)

	// FetchRecentMessages queries a chat's recent messages, newest
	// last, matched or not.
	FetchRecentMessages(ctx context.Context, chatID string, limit int) ([]domain.ChatMessage, error)
}
