package main

import (
	"log"
	"log/slog"
	"os"

	"suitable-focus/internal/authstub"
	"suitable-focus/internal/config"
	"suitable-focus/internal/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if cfg.App.Env == "production" {
		log.Fatal("the auth stub is development tooling and must not run in production")
	}
	gin.SetMode(gin.ReleaseMode)

	logger := logging.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// Open the user store
	store, err := authstub.OpenStore(cfg.Authstub.DBPath)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer store.Close()

	srv := authstub.NewServer(store, cfg.Authstub.JWTSecret, cfg.Authstub.AccessTokenTTL,
		authstub.WithServerLogger(logger))

	log.Printf("auth stub listening on %s (db: %s)", cfg.Authstub.Addr, cfg.Authstub.DBPath)
	if err := srv.Router().Run(cfg.Authstub.Addr); err != nil {
		log.Fatal("Server failed:", err)
	}
}
