package watransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
)

const maxReconnectAttempts = 10

// Broadcaster pushes connection state changes to dashboard viewers.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Supervisor keeps the bridge connection alive: it runs the client,
// and when the connection drops it reconnects with exponential
// backoff. A logout or navigation disconnect halts it instead, since
// the session will not come back without a human re-linking.
type Supervisor struct {
	client Client
	hub    Broadcaster

	b *backoff.Backoff

	mu       sync.Mutex
	halted   bool
	attempts int
}

// NewSupervisor creates a supervisor for the client. hub may be nil.
func NewSupervisor(client Client, hub Broadcaster) *Supervisor {
	return &Supervisor{
		client: client,
		hub:    hub,
		b: &backoff.Backoff{
			Min:    10 * time.Second,
			Max:    5 * time.Minute,
			Factor: 2,
			Jitter: true,
		},
	}
}

// NoteReady resets the backoff schedule and the retry budget. Call it
// when the session reports ready, so the next outage starts retrying
// from the floor.
func (s *Supervisor) NoteReady() {
	s.b.Reset()
	s.mu.Lock()
	s.attempts = 0
	s.mu.Unlock()
}

// NoteDisconnect inspects the bridge's disconnect reason and halts the
// reconnect loop for terminal ones.
func (s *Supervisor) NoteDisconnect(reason string) {
	if reason == ReasonLogout || reason == ReasonNavigation {
		s.mu.Lock()
		s.halted = true
		s.mu.Unlock()
		fmt.Printf("[Supervisor] Session ended (%s), not reconnecting\n", reason)
	}
}

func (s *Supervisor) isHalted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// Run connects and reconnects until ctx is cancelled, the session ends
// terminally, or the retry budget runs out. NoteReady refills the
// budget, so only consecutive failures count against it.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if s.hub != nil {
			s.hub.Broadcast("wa-connecting", map[string]bool{"connecting": true})
		}

		err := s.client.Start(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.isHalted() {
			return nil
		}
		if err != nil {
			fmt.Printf("[Supervisor] Connection lost: %v\n", err)
		}

		s.mu.Lock()
		s.attempts++
		attempts := s.attempts
		s.mu.Unlock()
		if attempts >= maxReconnectAttempts {
			return fmt.Errorf("giving up after %d consecutive connection attempts", attempts)
		}

		delay := s.b.Duration()
		fmt.Printf("[Supervisor] Reconnecting in %s (attempt %d/%d)\n", delay, attempts, maxReconnectAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
