// Package main is the entry point for the DS wallet limit Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/auth"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/bot"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/config"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/database"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/ledger"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/logger"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/repository"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/scheduler"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/telemetry"
	"gitlab.com/yelinaung/dsw-limit-bot/internal/undo"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("dsw-limit-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.InitHashSalt()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.OptionsFromConfig(cfg))
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	users := repository.NewBotUserRepository(pool)
	registry := auth.NewRegistry(cfg.OwnerID)
	if err := registry.Load(ctx, users); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load authorized users")
	}

	if cfg.LimitResetEnabled {
		jobs, err := scheduler.New(cfg.LimitResetTimezone)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to create limit reset scheduler")
		}
		jobs.Start()
		defer func() {
			if err := jobs.Shutdown(); err != nil {
				logger.Log.Error().Err(err).Msg("Failed to stop limit reset scheduler")
			}
		}()
	}

	telegramBot, err := bot.New(cfg, ledger.NewEngine(pool), users, registry, undo.New(cfg.UndoDepth))
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	telegramBot.Start(ctx)
	logger.Log.Info().Msg("Shutting down...")
}
