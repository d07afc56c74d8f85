package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/watchparty/config"
	"github.com/mossy-p/watchparty/internal/handlers"
	"github.com/mossy-p/watchparty/internal/logger"
	"github.com/mossy-p/watchparty/internal/redis"
	"github.com/mossy-p/watchparty/internal/session"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if portOverride > 0 {
		cfg.Port = portOverride
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	opts := session.Options{
		RoomCapacity:  cfg.Room.Capacity,
		ChatRetention: cfg.Room.ChatRetention,
		ChatHistory:   cfg.Room.ChatHistory,
		EmptyRoomTTL:  cfg.Room.EmptyTTL,
		EventRate:     cfg.WebSocket.EventRate,
		EventBurst:    cfg.WebSocket.EventBurst,
	}

	if cfg.Redis.Enabled {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		presence := redis.NewPresence(client, cfg.Redis.TTL, log)
		defer presence.Close()
		opts.Mirror = presence

		log.Info("redis presence mirror enabled",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	}

	manager := session.NewManager(opts, log)
	defer manager.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := handlers.NewHandler(manager, cfg, log)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(handler, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}
	srv.RegisterOnShutdown(handler.CloseConnections)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("watch-party server started",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
		)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}

	log.Info("server stopped")
	return nil
}
