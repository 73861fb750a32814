package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parleychat/parley/internal/agents"
	"github.com/parleychat/parley/internal/auth"
	"github.com/parleychat/parley/internal/backup"
	"github.com/parleychat/parley/internal/config"
	"github.com/parleychat/parley/internal/database"
	"github.com/parleychat/parley/internal/hub"
	"github.com/parleychat/parley/internal/llm"
	"github.com/parleychat/parley/internal/logger"
	"github.com/parleychat/parley/internal/server"
)

var version = "dev"

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println("parley " + version)
		os.Exit(0)
	}

	logger.Banner()

	cfg := config.Load()

	db, err := database.New(cfg.DataDir)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Resolve JWT secret: env var > database > generate and persist
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		if stored := db.GetSetting("jwt_secret"); stored != "" {
			jwtSecret = stored
		} else {
			jwtSecret, err = auth.GenerateSecret()
			if err != nil {
				logger.Fatal("Failed to generate JWT secret: %v", err)
			}
			// Persist so tokens survive restarts
			if err := db.SetSetting("jwt_secret", jwtSecret); err != nil {
				logger.Error("Failed to persist JWT secret: %v", err)
			}
			logger.Success("Generated and persisted JWT secret")
		}
	}
	authService := auth.NewService(jwtSecret)

	llmClient := llm.NewClient(cfg.OpenRouterKey, cfg.Model)
	if !llmClient.IsConfigured() {
		logger.Warn("OPENROUTER_API_KEY not set — agents will not respond until it is configured")
	}

	h := hub.New(hub.Options{
		EchoSelf:       cfg.EchoSelf,
		SendBuffer:     cfg.SendBuffer,
		Auth:           authService,
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	directory := agents.NewDirectory(db)
	coordinator := agents.NewCoordinator(directory, llmClient, server.Caster{Hub: h}, cfg.GenerateTimeout)

	backupMgr := backup.New(db, cfg.DataDir)
	if err := backupMgr.Start(); err != nil {
		logger.Error("Failed to start backup schedule: %v", err)
	}
	defer backupMgr.Stop()

	srv := server.New(server.Config{
		DB:             db,
		Auth:           authService,
		Hub:            h,
		Coordinator:    coordinator,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	if cfg.BindAddress != "127.0.0.1" && cfg.BindAddress != "localhost" {
		logger.Warn("Binding to %s — accessible from the network. Use PARLEY_BIND=127.0.0.1 for localhost-only.", cfg.BindAddress)
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // intentionally zero for WebSocket support
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		url := fmt.Sprintf("http://localhost:%d", cfg.Port)
		logger.Listen(addr, url, cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	<-done
	logger.Shutdown("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("Server shutdown failed: %v", err)
	}
}
