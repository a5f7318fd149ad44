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

	"engagement-engine/internal/api"
	"engagement-engine/internal/auth"
	"engagement-engine/internal/bot"
	"engagement-engine/internal/config"
	"engagement-engine/internal/engagement"
	"engagement-engine/internal/logger"
	"engagement-engine/internal/moderation"
	"engagement-engine/internal/notify"
	"engagement-engine/internal/realtime"
	"engagement-engine/internal/scheduler"
	"engagement-engine/internal/storage"
	"engagement-engine/internal/storage/memory"
	"engagement-engine/internal/storage/postgres"
	"engagement-engine/internal/storage/redis"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting engagement engine",
		zap.String("log_level", cfg.LogLevel),
		zap.String("storage", cfg.StorageDriver),
		zap.Duration("scan_interval", cfg.ScanInterval),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	var cache *redis.Client
	if cfg.RedisEnabled() {
		log.Info("connecting to Redis...")
		cache, err = redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
		if err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer cache.Close()

		log.Info("Redis connected successfully")
	}

	verifier := auth.NewVerifier(cfg.JWTSecret)
	hub := realtime.NewHub(log)

	// With redis every process relays the shared channel into its own hub,
	// so events are published to redis only.
	var sockets realtime.Publisher = hub
	if cache != nil {
		broker := realtime.NewRedisBroker(cache, hub, log)
		go func() {
			if err := broker.Run(ctx, nil); err != nil {
				log.Error("realtime relay stopped with error", zap.Error(err))
			}
		}()
		sockets = broker
	}
	publishers := realtime.Fanout{sockets}

	if cfg.TelegramToken != "" {
		log.Info("initializing Telegram bot...")
		tgBot, err := bot.New(bot.Options{Token: cfg.TelegramToken}, store, cache, verifier, log)
		if err != nil {
			log.Fatal("failed to create bot", zap.Error(err))
		}
		publishers = append(publishers, tgBot.Publisher(cfg.PublicBaseURL))

		go func() {
			if err := tgBot.Start(ctx); err != nil {
				log.Error("bot stopped with error", zap.Error(err))
			}
		}()
	}

	dispatcher := notify.NewDispatcher(store, publishers, log)
	svc := engagement.NewService(store, dispatcher, cfg.PublicBaseURL, log)
	gate := moderation.NewGate(store, dispatcher, log)

	var locker scheduler.Locker
	if cache != nil {
		locker = cache
	}
	scanner := scheduler.New(store, dispatcher, locker, scheduler.Options{
		Interval:     cfg.ScanInterval,
		Lookahead:    cfg.ScanLookahead,
		InitialDelay: cfg.ScanInitialDelay,
		Timeout:      cfg.ScanTimeout,
	}, log)

	log.Info("starting deadline scanner...")
	go scanner.Start(ctx)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.New(svc, gate, dispatcher, store, verifier, cache, hub, api.Options{
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		}, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error("http server failed", zap.Error(err))
		}
		cancel()
	}

	log.Info("shutting down gracefully...")
	scanner.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}

	log.Info("engagement engine stopped")
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	log.Info("connecting to PostgreSQL...")
	store, err := postgres.New(cfg.PostgresDSN, postgres.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, log)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	log.Info("PostgreSQL connected successfully")
	return store, nil
}
