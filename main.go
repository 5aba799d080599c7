package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"alphawatch/internal/batcher"
	"alphawatch/internal/config"
	"alphawatch/internal/crypto"
	"alphawatch/internal/executor"
	"alphawatch/internal/handler"
	"alphawatch/internal/marketdata"
	"alphawatch/internal/models"
	"alphawatch/internal/notifier"
	"alphawatch/internal/pipeline"
	"alphawatch/internal/provider"
	"alphawatch/internal/reasoning"
	"alphawatch/internal/repository"
	"alphawatch/internal/server"
	"alphawatch/internal/service"
	"alphawatch/internal/wallet"
	"alphawatch/internal/watcher"
)

const (
	processTimeout  = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwt_secret must be set")
	}

	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repository.MigrateDB(db, logger)

	keyManager, err := crypto.NewKeyManager()
	if err != nil {
		logger.Fatal("Failed to initialize KeyManager", zap.Error(err))
	}

	accountRepo := repository.NewAccountRepository(db, logger)
	watchRepo := repository.NewWatchRepository(db, logger)
	operatorRepo := repository.NewOperatorRepository(db, logger)
	auditRepo := repository.NewAuditRepository(db, logger)

	reasoningClient, err := reasoning.NewClient(reasoning.Config{
		BaseURL: cfg.Reasoning.URL,
		APIKey:  cfg.Reasoning.APIKey,
		Model:   cfg.Reasoning.Model,
		Timeout: time.Duration(cfg.Reasoning.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize reasoning client", zap.Error(err))
	}
	marketClient := marketdata.NewClient(cfg.MarketData.URL, cfg.MarketData.APIKey,
		time.Duration(cfg.MarketData.TimeoutSeconds)*time.Second)
	walletClient := wallet.NewClient(cfg.Wallet.URL, cfg.Wallet.APIKey,
		time.Duration(cfg.Wallet.TimeoutSeconds)*time.Second)
	executorClient := executor.NewClient(cfg.Executor.URL, cfg.Executor.APIKey,
		time.Duration(cfg.Executor.TimeoutSeconds)*time.Second)

	botToken := ""
	if cfg.Notifier.Enabled {
		botToken = cfg.Notifier.BotToken
	}
	bot, err := notifier.NewBot(botToken, cfg.Notifier.ChatID, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifier bot", zap.Error(err))
	}

	pipe := pipeline.New(reasoningClient, marketClient, walletClient, executorClient,
		auditRepo, cfg.Pipeline.PnlThreshold, logger)

	batch := batcher.New(func(key string, window []models.RawMessage) {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()

		for _, result := range pipe.Process(ctx, window) {
			logger.Info("Window processed",
				zap.String("key", key),
				zap.String("token", result.Signal.Token),
				zap.String("verdict", string(result.Verdict)))
			if result.Verdict == models.VerdictActionInvoked {
				bot.NotifyAction(result.Signal, key)
			}
		}
	}, logger)

	clientFactory := provider.NewFactory(accountRepo, keyManager, logger)
	loginManager := provider.NewLoginManager(logger)

	supervisor := watcher.NewSupervisor(logger)
	supervisor.OnFailure(func(key models.WatchKey, err error) {
		bot.NotifyWatcherFailure(key.String(), err)
	})

	bind := func(target models.WatchTarget) watcher.ListenerFactory {
		return watcher.NewListener(target, clientFactory, watchRepo, batch, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	targets, err := watchRepo.ListAll(ctx)
	if err != nil {
		logger.Fatal("Failed to load watch targets", zap.Error(err))
	}
	supervisor.RestoreAll(targets, func(target models.WatchTarget) (watcher.ListenerFactory, error) {
		return bind(target), nil
	})

	authService := service.NewAuthService(operatorRepo, []byte(cfg.Auth.JWTSecret), logger)

	srv := server.NewServer(server.Handlers{
		Auth:       handler.NewAuthHandler(authService, logger),
		Onboarding: handler.NewOnboardingHandler(accountRepo, loginManager, keyManager, logger),
		Watch:      handler.NewWatchHandler(watchRepo, clientFactory, supervisor, bind, logger),
		Groups:     handler.NewGroupsHandler(clientFactory, logger),
		Queue:      handler.NewQueueHandler(batch),
		Audit:      handler.NewAuditHandler(auditRepo, logger),
	}, []byte(cfg.Auth.JWTSecret), logger)

	go func() {
		if err := srv.Run(cfg.Server.Port); err != nil {
			logger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	logger.Info("alphawatch started", zap.Int("watchers", supervisor.Count()))

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server shutdown failed", zap.Error(err))
	}
	supervisor.StopAll(shutdownTimeout)
}
