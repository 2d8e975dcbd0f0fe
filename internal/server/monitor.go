package server

import (
	"context"
	"fmt"

	"github.com/user/groupwatch/internal/biz/domain"
	"github.com/user/groupwatch/internal/biz/usecase"
	"github.com/user/groupwatch/internal/service"
	"github.com/user/groupwatch/internal/watransport"
)

// MonitorServer wires the session bridge events into the monitor
// engine, the scanner and the dashboard hub, and keeps the connection
// alive through the supervisor.
type MonitorServer struct {
	client  watransport.Client
	sup     *watransport.Supervisor
	engine  *usecase.MonitorEngine
	scanner *service.GroupScanner
	hub     *Hub
}

// NewMonitorServer creates the glue and registers the event handlers.
func NewMonitorServer(
	client watransport.Client,
	sup *watransport.Supervisor,
	engine *usecase.MonitorEngine,
	scanner *service.GroupScanner,
	hub *Hub,
) *MonitorServer {
	s := &MonitorServer{
		client:  client,
		sup:     sup,
		engine:  engine,
		scanner: scanner,
		hub:     hub,
	}

	client.OnQR(s.handleQR)
	client.OnAuthenticated(s.handleAuthenticated)
	client.OnAuthFailure(s.handleAuthFailure)
	client.OnReady(s.handleReady)
	client.OnDisconnected(s.handleDisconnected)
	client.OnMessage(s.handleMessage)

	return s
}

// Start runs the supervised bridge connection until ctx is cancelled.
func (s *MonitorServer) Start(ctx context.Context) error {
	s.scanner.Start(ctx)
	return s.sup.Run(ctx)
}

// Stop stops the scanner and the bridge connection.
func (s *MonitorServer) Stop() {
	s.scanner.Stop()
	s.client.Stop()
}

func (s *MonitorServer) handleQR(qr string) {
	fmt.Println("[Monitor] QR code received, scan to link the session")
	// Raw string for terminal-side renderers, wrapped for the dashboard.
	s.hub.Broadcast("qr", qr)
	s.hub.Broadcast("wa-qr", map[string]string{"qr": qr})
}

func (s *MonitorServer) handleAuthenticated() {
	fmt.Println("[Monitor] Session authenticated")
	s.hub.Broadcast("authenticated", nil)
}

func (s *MonitorServer) handleAuthFailure(msg string) {
	fmt.Printf("[Monitor] Authentication failed: %s\n", msg)
	s.hub.Broadcast("auth_failure", map[string]string{"message": msg})
	s.hub.Broadcast("wa-error", map[string]string{"error": msg})
}

func (s *MonitorServer) handleReady() {
	fmt.Println("[Monitor] WhatsApp session ready")
	s.sup.NoteReady()
	s.hub.Broadcast("wa-ready", map[string]bool{"ready": true})
	s.scanner.InitialScan(context.Background())
}

func (s *MonitorServer) handleDisconnected(reason string) {
	fmt.Printf("[Monitor] Session disconnected: %s\n", reason)
	s.sup.NoteDisconnect(reason)
	s.hub.Broadcast("wa-disconnected", map[string]string{"reason": reason})
}

func (s *MonitorServer) handleMessage(msg *domain.InboundMessage) {
	if _, err := s.engine.HandleMessage(context.Background(), msg); err != nil {
		fmt.Printf("[Monitor] Error processing message: %v\n", err)
	}
}
