package repo

import (
	"context"

	"github.com/user/groupwatch/internal/biz/domain"
)

// ChatRepo is the read-only view of the messaging client's chat list.
// There is deliberately no send operation anywhere on this surface:
// the system observes, it never writes back to the client.
type ChatRepo interface {
	// ListGroups returns the live group chats. Returns
	// domain.ErrUpstreamDown while the client session is not ready.
	ListGroups(ctx context.Context) ([]domain.GroupInfo, error)

	// FetchRecentMessages fetches a chat's recent messages on demand,
	// matched or not, for the dashboard's full-history view.
	FetchRecentMessages(ctx context.Context, chatID string, limit int) ([]domain.ChatMessage, error)
}
