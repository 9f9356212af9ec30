package main

import (
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/gitgate/internal/config"
	"github.com/gitgate/internal/github"
	"github.com/gitgate/internal/http"
	"github.com/gitgate/internal/logger"
)

func main() {
	// Load .env file if it exists (optional, won't error if missing)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg.Environment)

	if cfg.GitHub.HasOAuthCredentials() {
		clientID := cfg.GitHub.ClientID
		if len(clientID) > 8 {
			clientID = clientID[:8]
		}
		slog.Info("github oauth configured", "client_id_prefix", clientID)
	} else {
		slog.Warn("github oauth credentials not set - token exchange will be rejected")
	}

	server := http.NewServer(cfg, github.NewClient(cfg.GitHub))

	slog.Info("starting server", "address", cfg.ServerAddress)
	if err := server.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
