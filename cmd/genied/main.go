package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/genie-mentor/genied/internal/agent"
	"github.com/genie-mentor/genied/internal/api"
	"github.com/genie-mentor/genied/internal/config"
	"github.com/genie-mentor/genied/internal/events"
	"github.com/genie-mentor/genied/internal/mentor"
	"github.com/genie-mentor/genied/internal/session"
	"github.com/genie-mentor/genied/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("genied starting", "port", cfg.Port, "agent_url", cfg.AgentBaseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Agent service client
	genie := agent.NewClient(cfg.AgentBaseURL, time.Duration(cfg.AgentTimeoutSecs)*time.Second)

	// Session registry (Redis-backed when configured, memory-only otherwise)
	sessions, err := session.NewRegistry(cfg.RedisAddr, slog.Default())
	if err != nil {
		slog.Error("failed to set up session registry", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	// Database (optional — genied works without it, just no durable history)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure database schema", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected")
	} else {
		slog.Warn("database not configured — history will not survive restarts")
	}

	// NATS (optional — no lifecycle events without it)
	var pub *events.Publisher
	if cfg.NatsURL != "" {
		pub, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without lifecycle events")
	}

	// Mentor — the ask coordinator
	m := mentor.New(genie, sessions, db, pub, slog.Default())

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, m)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("genied ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("genied stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
