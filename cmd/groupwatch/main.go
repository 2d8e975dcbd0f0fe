package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/user/groupwatch/internal/biz/usecase"
	"github.com/user/groupwatch/internal/conf"
	"github.com/user/groupwatch/internal/data"
	"github.com/user/groupwatch/internal/server"
	"github.com/user/groupwatch/internal/service"
	"github.com/user/groupwatch/internal/watransport"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Session bridge client
	client := watransport.NewBridgeClient(cfg.BridgeURL)

	// Repository layer
	repos, err := data.NewRepositories(cfg.DataDir, client)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	fmt.Printf("[Main] Data dir: %s\n", cfg.DataDir)

	// Dashboard hub
	hub := server.NewHub()

	// Usecase layer
	registry := usecase.NewGroupRegistry()
	settingsUC := usecase.NewSettingsUsecase(repos.Config, hub)
	exportUC := usecase.NewExportUsecase(repos.Config, repos.Logs)
	filter := usecase.NewKeywordFilter()

	// Service layer
	mailer := service.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort)
	notifier := service.NewNotifier(hub, mailer)
	engine := usecase.NewMonitorEngine(repos.Config, repos.Logs, filter, notifier)
	scanner := service.NewGroupScanner(repos.Chats, repos.Config, registry, hub)
	sup := watransport.NewSupervisor(client, hub)

	// New viewers get the current state immediately.
	hub.SetHello(func() []server.Event {
		ctx := context.Background()
		events := []server.Event{
			{Name: "wa-ready", Data: map[string]bool{"ready": client.Ready()}},
			{Name: "chats-loaded", Data: registry.Snapshot()},
		}
		if config, err := settingsUC.Global(ctx); err == nil {
			events = append(events, server.Event{Name: "config-updated", Data: config})
		}
		if stats, err := settingsUC.Stats(ctx); err == nil {
			events = append(events, server.Event{Name: "stats-update", Data: stats})
		}
		return events
	})

	// HTTP API
	apiServer := server.NewHTTPServer(hub, settingsUC, exportUC, registry, repos.Logs, repos.Chats, cfg.HTTPPort)
	go func() {
		if err := apiServer.Start(); err != nil {
			fmt.Printf("[Main] API server error: %v\n", err)
		}
	}()

	// Monitor glue
	srv := server.NewMonitorServer(client, sup, engine, scanner, hub)

	ctx, cancel := context.WithCancel(context.Background())

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
		srv.Stop()
		apiServer.Stop()
		repos.Close()
		os.Exit(0)
	}()

	fmt.Println("Starting GroupWatch...")
	if err := srv.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Monitor error: %v", err)
	}
}
