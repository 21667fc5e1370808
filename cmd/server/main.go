package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conquest-server/internal/game"
	"conquest-server/internal/middleware"
	"conquest-server/internal/notify"
	"conquest-server/internal/server"
	"conquest-server/internal/shared/config"
	"conquest-server/internal/shared/logger"
	"conquest-server/internal/storage"
	"conquest-server/internal/storage/memstore"
	"conquest-server/internal/storage/pgstore"
	"conquest-server/internal/storage/redisstore"
)

func main() {
	if err := config.Init(); err != nil {
		log.Fatal("Failed to initialize configuration:", err)
	}
	logger.Init()

	mainLogger := slog.With("component", "main")
	cfg := config.GlobalConfig

	store, closeStore, err := connectStore(cfg)
	if err != nil {
		mainLogger.Error("Failed to connect storage backend", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	repo := game.NewRepository(store, cfg.Game.PendingWriteMaxAge, slog.Default())
	notifier := notify.NewClient(cfg.Relay.URL, cfg.Relay.Timeout, slog.Default())
	gameService := game.NewService(repo, notifier, game.ServiceConfig{
		Rule: game.RuleConfig{
			BaseMovesPerTurn:  cfg.Game.BaseMovesPerTurn,
			DieSides:          cfg.Game.CombatDieSides,
			KillsOn:           cfg.Game.CombatKillsOn,
			MaxStructureLevel: cfg.Game.MaxStructureLevel,
			RecruitCost:       cfg.Game.RecruitCost,
			RecruitCostStep:   cfg.Game.RecruitCostStep,
		},
		StartingGarrison:  cfg.Game.StartingGarrison,
		StartingResource:  cfg.Game.StartingResource,
		DefaultMapSize:    cfg.Game.DefaultMapSize,
		DefaultMaxPlayers: cfg.Game.DefaultMaxPlayers,
		DefaultTurnLimit:  cfg.Game.DefaultTurnLimit,
		GraceWindow:       cfg.Game.GraceWindow,
	}, slog.Default())

	mux := server.NewRoutes(store, gameService, slog.Default()).Setup()

	corsMiddleware := middleware.NewCORS()
	rateLimiter := middleware.NewRateLimiter()
	handler := corsMiddleware.Middleware(rateLimiter.Middleware(mux))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		mainLogger.Info("Server starting",
			"port", cfg.Server.Port,
			"storage_backend", cfg.Storage.Backend,
			"relay_enabled", notifier.Enabled(),
			"environment", cfg.Server.Environment,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	mainLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.Error("Shutdown failed", "error", err)
	}
}

func connectStore(cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "redis":
		store, err := redisstore.Connect()
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("Failed to close Redis store", "error", err)
			}
		}, nil
	case "postgres":
		store, err := pgstore.Connect()
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("Failed to close Postgres store", "error", err)
			}
		}, nil
	default:
		slog.Info("No external store configured, using in-memory storage",
			"component", "main")
		return memstore.New(), func() {}, nil
	}
}
