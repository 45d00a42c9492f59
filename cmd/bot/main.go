package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourusername/vocabot/internal/config"
	"github.com/yourusername/vocabot/internal/handler"
	"github.com/yourusername/vocabot/internal/pkg/dedup"
	"github.com/yourusername/vocabot/internal/pkg/logger"
	"github.com/yourusername/vocabot/internal/pkg/metrics"
	"github.com/yourusername/vocabot/internal/repository"
	"github.com/yourusername/vocabot/internal/service"
	"github.com/yourusername/vocabot/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	location, err := utils.LoadLocation(cfg.Timezone)
	if err != nil {
		location = time.UTC
	}

	zapLogger, err := logger.New(cfg.LogLevel, location)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer zapLogger.Sync()

	zap.ReplaceGlobals(zapLogger)
	zap.L().Info("logger initialized", zap.String("timezone", location.String()))

	if err := cfg.ValidateBot(); err != nil {
		zap.L().Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewDB(cfg.DSN(), 10, 20)
	if err != nil {
		zap.L().Error("connect to PostgreSQL", zap.Error(err), zap.String("host", cfg.PostgresHost))
		os.Exit(1)
	}
	defer repo.Close()

	if err = repo.Up(cfg.MigrationsDir); err != nil {
		zap.L().Error("run migrations", zap.Error(err))
		os.Exit(1)
	}

	var dedupe handler.Deduplicator
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()

		if err != nil {
			zap.L().Warn("redis unavailable, update dedup disabled", zap.Error(err), zap.String("addr", cfg.RedisAddr))
		} else {
			dedupe = dedup.NewDeduplicator(rdb, cfg.DedupTTL)
		}
	}

	if cfg.MetricsAddr != "" {
		go metrics.Serve(ctx, cfg.MetricsAddr)
	}

	svc := service.NewService(repo)

	gateway, err := handler.NewBotGateway(cfg.TelegramToken, cfg.TelegramEndpoint, cfg.HTTPTimeout, cfg.PollTimeout)
	if err != nil {
		zap.L().Error("create telegram gateway", zap.Error(err))
		os.Exit(1)
	}
	zap.L().Info("authorized on telegram", zap.String("bot", gateway.Username()))

	bot, err := handler.NewTelegramHandler(gateway, svc, dedupe, handler.Options{
		BatchSize:    cfg.BatchSize,
		BatchTime:    cfg.BatchTime,
		Location:     location,
		MediaRoot:    cfg.MediaRoot,
		DefaultImage: cfg.DefaultImage,
		PollInterval: cfg.PollInterval,
	})
	if err != nil {
		zap.L().Error("create telegram handler", zap.Error(err))
		os.Exit(1)
	}

	if err := bot.Run(ctx); err != nil {
		zap.L().Error("bot stopped", zap.Error(err))
		os.Exit(1)
	}
}

