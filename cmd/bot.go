package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/qzbx-cloud/avision/internal/config"
	"github.com/qzbx-cloud/avision/internal/gemini"
	"github.com/qzbx-cloud/avision/internal/store"
	"github.com/qzbx-cloud/avision/internal/store/pg"
	"github.com/qzbx-cloud/avision/internal/store/sqlite"
	"github.com/qzbx-cloud/avision/internal/telegram"
)

func runBot() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Activation store: Postgres when a DSN is provided, otherwise a local
	// SQLite file. Both share the same default-active semantics.
	var activations store.ActivationStore
	if cfg.Database.PostgresDSN != "" {
		activations, err = pg.Open(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			slog.Error("failed to open postgres activation store", "error", err)
			os.Exit(1)
		}
		slog.Info("activation store ready", "backend", "postgres")
	} else {
		statePath := config.ExpandHome(cfg.StatePath)
		activations, err = sqlite.Open(statePath)
		if err != nil {
			slog.Error("failed to open sqlite activation store", "error", err, "path", statePath)
			os.Exit(1)
		}
		slog.Info("activation store ready", "backend", "sqlite", "path", statePath)
	}
	defer activations.Close()

	describer := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model).
		WithRetry(cfg.Gemini.ToRetryConfig())

	channel, err := telegram.New(cfg.Telegram, cfg.Pipeline, activations, describer)
	if err != nil {
		slog.Error("failed to initialize telegram channel", "error", err)
		os.Exit(1)
	}

	if err := channel.Start(ctx); err != nil {
		slog.Error("failed to start telegram channel", "error", err)
		os.Exit(1)
	}

	slog.Info("avision bot started",
		"version", Version,
		"model", cfg.Gemini.Model,
		"debounce", cfg.Pipeline.Debounce,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	slog.Info("graceful shutdown initiated", "signal", sig)

	if err := channel.Stop(context.Background()); err != nil {
		slog.Warn("telegram channel stop", "error", err)
	}
	cancel()
}
