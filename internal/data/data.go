// Package data holds the sqlite-backed stores and the adapters over
// the session bridge.
package data

import (
	"fmt"
	"path/filepath"

	"github.com/user/groupwatch/internal/biz/repo"
	"github.com/user/groupwatch/internal/watransport"
)

// Repositories bundles every store the use cases depend on.
type Repositories struct {
	Config repo.ConfigRepo
	Logs   repo.AlertLogRepo
	Chats  repo.ChatRepo
}

// NewRepositories opens the databases under dataDir and wires the
// bridge client in as the chat source.
func NewRepositories(dataDir string, client watransport.Client) (*Repositories, error) {
	config, err := NewConfigRepo(filepath.Join(dataDir, "groupwatch.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open config store: %w", err)
	}

	logs, err := NewAlertLogRepo(filepath.Join(dataDir, "alerts.db"))
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("failed to open alert log store: %w", err)
	}

	return &Repositories{
		Config: config,
		Logs:   logs,
		Chats:  NewChatRepo(client),
	}, nil
}

// Close closes the underlying databases.
func (r *Repositories) Close() {
	r.Logs.Close()
	r.Config.Close()
}
