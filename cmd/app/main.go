package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"session-scheduler/internal/config"
	"session-scheduler/internal/effects"
	"session-scheduler/internal/http-server/router"
	"session-scheduler/internal/idempotency"
	svc "session-scheduler/internal/service"
	"session-scheduler/internal/storage"
	"session-scheduler/internal/storage/memory"
	"session-scheduler/internal/storage/postgres"
	"session-scheduler/pkg/handlers/slogpretty"
	"session-scheduler/pkg/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting session scheduler", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	store, err := setupStorage(cfg)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	var (
		redisClient *redis.Client
		keeper      idempotency.Keeper
		notifier    effects.Notifier
	)

	if cfg.RedisAddr != "" {
		redisClient, err = idempotency.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			log.Error("Failed to init redis", sl.Err(err))
			os.Exit(1)
		}
		keeper = idempotency.NewRedisKeeper(redisClient)
		notifier = effects.NewRedisNotifier(redisClient, cfg.Effects.NotifyChannel)
		log.Info("Using redis for idempotency keys and notifications", slog.String("addr", cfg.RedisAddr))
	} else {
		keeper = idempotency.NewCacheKeeper(cfg.Scheduling.IdempotencyTTL)
		notifier = effects.NewLogNotifier(log)
		log.Info("Redis is not configured, using in-process idempotency keys")
	}

	var payments effects.Payments = effects.NewLogPayments(log)
	if cfg.Effects.PaymentsURL != "" {
		payments = effects.NewHTTPPayments(cfg.Effects.PaymentsURL, cfg.Effects.JobTimeout)
	}

	var rooms effects.Rooms = effects.NewLogRooms(log)
	if cfg.Effects.RoomsURL != "" {
		rooms = effects.NewHTTPRooms(cfg.Effects.RoomsURL, cfg.Effects.JobTimeout)
	}

	dispatcher := effects.NewDispatcher(log, cfg.Effects.Workers, cfg.Effects.QueueSize, cfg.Effects.JobTimeout)
	dispatcher.Start(context.Background())

	service := svc.New(log, store, effects.New(dispatcher, notifier, payments, rooms), keeper, svc.Options{
		RequestTTL:           cfg.Scheduling.RequestTTL,
		AvailabilityCacheTTL: cfg.Scheduling.AvailabilityCacheTTL,
		IdempotencyTTL:       cfg.Scheduling.IdempotencyTTL,
		Guards:               cfg.Scheduling.Cutoffs,
		Policies:             cfg.Policies,
	})

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router.New(log, service, cfg.RateLimit),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	// Drain queued effects before the connections they use go away.
	dispatcher.Stop(ctx)

	if err := store.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close redis", sl.Err(err))
		} else {
			log.Info("Redis closed")
		}
	}

	log.Info("Shutdown finished, server stopped")

}

func setupStorage(cfg *config.Config) (storage.Store, error) {
	if cfg.StorageDriver == config.StorageMemory {
		return memory.New(), nil
	}

	store, err := postgres.New(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
