package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/groupwatch/internal/biz/repo"
	"github.com/user/groupwatch/internal/biz/usecase"
)

// GroupScanner periodically re-lists the client's group chats and
// announces new ones to dashboard viewers. The interval is re-read from
// the configuration on every cycle, so a dashboard edit takes effect on
// the next tick without a restart.
type GroupScanner struct {
	chats    repo.ChatRepo
	config   repo.ConfigRepo
	registry *usecase.GroupRegistry
	hub      usecase.Broadcaster

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGroupScanner creates a scanner.
func NewGroupScanner(chats repo.ChatRepo, config repo.ConfigRepo, registry *usecase.GroupRegistry, hub usecase.Broadcaster) *GroupScanner {
	return &GroupScanner{
		chats:    chats,
		config:   config,
		registry: registry,
		hub:      hub,
	}
}

// InitialScan builds the first snapshot and pushes it to viewers. Call
// it when the session reports ready.
func (s *GroupScanner) InitialScan(ctx context.Context) {
	groups, err := s.chats.ListGroups(ctx)
	if err != nil {
		fmt.Printf("[Scanner] Initial group scan failed: %v\n", err)
		return
	}

	s.registry.Replace(groups)
	s.hub.Broadcast("chats-loaded", groups)
	fmt.Printf("[Scanner] Loaded %d group chats\n", len(groups))
}

// Start starts the periodic scan loop.
func (s *GroupScanner) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.scanLoop()

	fmt.Println("[Scanner] Started")
}

// Stop stops the scan loop and waits for it to exit.
func (s *GroupScanner) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	fmt.Println("[Scanner] Stopped")
}

func (s *GroupScanner) scanLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.interval()):
			s.scan()
		}
	}
}

// interval reads the configured scan interval, falling back to the
// default when the store is unreadable.
func (s *GroupScanner) interval() time.Duration {
	cfg, err := s.config.LoadGlobal(s.ctx)
	if err != nil {
		fmt.Printf("[Scanner] Failed to load config, using default interval: %v\n", err)
		return time.Minute
	}
	return cfg.ScanInterval()
}

func (s *GroupScanner) scan() {
	groups, err := s.chats.ListGroups(s.ctx)
	if err != nil {
		// Expected while the session is down; the next tick retries.
		fmt.Printf("[Scanner] Group scan failed: %v\n", err)
		return
	}

	newCount, changed := s.registry.Reconcile(groups)
	if !changed {
		return
	}

	s.hub.Broadcast("chats-updated", groups)
	fmt.Printf("[Scanner] Detected %d new group chats\n", newCount)
}
