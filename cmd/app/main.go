// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"telegram-bg-remover/internal/application"
	"telegram-bg-remover/internal/config"
	"telegram-bg-remover/internal/domain/ports/adapter"
	"telegram-bg-remover/internal/infra/adapters/removal"
	tele "telegram-bg-remover/internal/infra/adapters/telegram"
	"telegram-bg-remover/internal/infra/api"
	"telegram-bg-remover/internal/infra/i18n"
	"telegram-bg-remover/internal/infra/logging"
	"telegram-bg-remover/internal/infra/metrics"
	red "telegram-bg-remover/internal/infra/redis"
	"telegram-bg-remover/internal/infra/sched"
	"telegram-bg-remover/internal/infra/storage"
	"telegram-bg-remover/internal/infra/watermark"
	"telegram-bg-remover/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop remover allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("bot exited")
	}
	logger.Info().Msg("shutdown complete")
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.Removal.Provider)

	// ---- Storage and image pipeline ----
	osFs := afero.NewOsFs()
	store, err := storage.NewFSArtifactStore(osFs, cfg.Storage.Dir)
	if err != nil {
		return err
	}
	stamper := watermark.NewStamper(osFs, cfg.Watermark.FontPaths, logger)

	remover, err := removal.New(cfg.Removal, logger)
	if err != nil {
		return fmt.Errorf("removal: %w", err)
	}
	hctx, hcancel := context.WithTimeout(ctx, 30*time.Second)
	err = remover.HealthCheck(hctx)
	hcancel()
	if err != nil {
		return fmt.Errorf("removal capability %s unavailable: %w", remover.Name(), err)
	}
	logger.Info().Str("provider", remover.Name()).Str("font", stamper.FontName()).Msg("image pipeline ready")

	// ---- Redis (optional) ----
	var (
		redisClient *red.Client
		limiter     *red.RateLimiter
		locker      red.Locker
	)
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected, rate limiting enabled")
	} else {
		logger.Info().Msg("redis not configured, rate limiting disabled")
	}

	// ---- Use cases ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		return err
	}
	bgUC := usecase.NewBackgroundUseCase(remover, stamper, store, cfg.Watermark.Text, cfg.Removal.MaxDimension, logger)

	// ---- Telegram ----
	client, err := tele.NewClient(cfg.Bot.Token, cfg.Bot.Debug)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	logger.Info().Str("bot", client.API().Self.UserName).Str("token", logging.Redact(cfg.Bot.Token, cfg.Runtime.Dev)).Msg("authorized")

	facade := application.NewBotFacade(client, bgUC, tr, cfg.Watermark.Text, logger)
	botAdapter, err := tele.NewRealTelegramBotAdapter(client, cfg, facade, limiter, logger)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if strings.ToLower(cfg.Bot.Mode) != "polling" {
		logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot mode not implemented; falling back to polling")
	}

	// ---- Admin server ----
	var adminSrv *api.Server
	if cfg.Admin.Port > 0 {
		adminSrv = api.NewServer(cfg.Admin.Port, readiness{remover: remover, redis: redisClient}, logger)
		go func() {
			if err := adminSrv.Start(); err != nil {
				logger.Error().Err(err).Msg("admin server error")
			}
		}()
	}

	// ---- Artifact reaper ----
	var reaper *sched.ArtifactReaper
	if cfg.Reaper.Schedule != "" {
		reaper, err = sched.NewArtifactReaper(cfg.Reaper.Schedule, cfg.Reaper.TTL, store, locker, logger)
		if err != nil {
			return err
		}
		if err := reaper.Start(ctx); err != nil {
			return err
		}
	}

	// ---- Polling until a signal arrives ----
	pollErr := botAdapter.StartPolling(ctx)
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if reaper != nil {
		select {
		case <-reaper.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn().Msg("reaper did not finish in time")
		}
	}
	if adminSrv != nil {
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("admin server shutdown")
		}
	}
	return pollErr
}

// readiness fails when the removal capability or redis cannot serve.
type readiness struct {
	remover adapter.BackgroundRemover
	redis   *red.Client
}

func (r readiness) HealthCheck(ctx context.Context) error {
	if err := r.remover.HealthCheck(ctx); err != nil {
		return err
	}
	if r.redis != nil {
		return r.redis.Ping(ctx)
	}
	return nil
}
