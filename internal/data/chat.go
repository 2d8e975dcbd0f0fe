package data

import (
	"context"

	"github.com/user/groupwatch/internal/biz/domain"
	"github.com/user/groupwatch/internal/biz/repo"
	"github.com/user/groupwatch/internal/watransport"
)

// chatRepo adapts the session bridge client to the read-only chat
// view. It adds nothing but the readiness gate; the client reports
// ErrUpstreamDown itself for queries racing a disconnect.
type chatRepo struct {
	client watransport.Client
}

// NewChatRepo wraps the bridge client as a ChatRepo.
func NewChatRepo(client watransport.Client) repo.ChatRepo {
	return &chatRepo{client: client}
}

func (r *chatRepo) ListGroups(ctx context.Context) ([]domain.GroupInfo, error) {
	if !r.client.Ready() {
		return nil, domain.ErrUpstreamDown
	}
	return r.client.ListGroups(ctx)
}

func (r *chatRepo) FetchRecentMessages(ctx context.Context, chatID string, limit int) ([]domain.ChatMessage, error) {
	if !r.client.Ready() {
		return nil, domain.ErrUpstreamDown
	}
	return r.client.FetchRecentMessages(ctx, chatID, limit)
}
