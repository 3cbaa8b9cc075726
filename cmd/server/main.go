// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/lovelobby/server/internal/auth"
	"github.com/lovelobby/server/internal/config"
	"github.com/lovelobby/server/internal/handlers"
	"github.com/lovelobby/server/internal/lobby"
	"github.com/lovelobby/server/internal/middleware"
	"github.com/lovelobby/server/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logrus.New()
	if cfg.Env == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := auth.Init(); err != nil {
		log.Fatalf("auth: %v", err)
	}

	store := lobby.NewStore(cfg.MaxLobbies)
	store.PerQuestionSeconds = cfg.PerQuestionSeconds
	store.NewToken = func(code string, role lobby.Role) (string, error) {
		return auth.CreateSessionToken(code, string(role))
	}

	orch := session.New(store, logger, session.Options{
		JudgingTimeout:    cfg.JudgingTimeout,
		RateLimitInterval: cfg.RateLimitInterval,
		LobbyTTL:          cfg.LobbyTTL,
		DisconnectTTL:     cfg.DisconnectTTL,
		SweepInterval:     cfg.SweepInterval,
		VerifyToken:       auth.VerifySessionToken,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orch.RunSweeper(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.SessionWSHandler(logger, orch, cfg.AllowedOrigin),
	)))
	mux.Handle("/packs", middleware.LogMiddleware(logger)(handlers.PacksHandler()))
	mux.Handle("/healthz", handlers.HealthHandler(store))

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
