package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rewired-gh/oisentry/internal/config"
	"github.com/rewired-gh/oisentry/internal/exchange"
	"github.com/rewired-gh/oisentry/internal/history"
	"github.com/rewired-gh/oisentry/internal/logger"
	"github.com/rewired-gh/oisentry/internal/metrics"
	"github.com/rewired-gh/oisentry/internal/monitor"
	"github.com/rewired-gh/oisentry/internal/notify"
	"github.com/rewired-gh/oisentry/internal/storage"
	"github.com/spf13/pflag"
)

func main() {
	fs := config.NewFlagSet(os.Args[0])
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.EffectiveLevel(), cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := storage.OpenOrFallback(ctx, storage.Options{
		Backend:       cfg.Storage.Backend,
		StateFile:     cfg.Storage.StateFile,
		SQLitePath:    cfg.Storage.SQLitePath,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		RedisKey:      cfg.Storage.RedisKey,
	})
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	ticks, err := backend.Load(ctx)
	if err != nil {
		logger.Warn("Failed to load persisted history, starting empty: %v", err)
		ticks = nil
	}
	store := history.Restore(cfg.Monitor.KeepPoints, ticks)

	var sinks notify.Multi
	if cfg.Notify.Discord.WebhookURL != "" {
		sinks = append(sinks, notify.NewDiscord(cfg.Notify.Discord.WebhookURL))
		logger.Info("Discord notifications enabled")
	}
	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		tg.ListenForCommands(ctx)
		sinks = append(sinks, tg)
		logger.Info("Telegram client initialized successfully")
	}
	if len(sinks) == 0 {
		logger.Debug("No notification sinks configured, alerts are logged only")
	}

	if addr := cfg.Metrics.ListenAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				logger.Error("Metrics listener failed: %v", err)
			}
		}()
		logger.Info("Serving metrics on %s/metrics", addr)
	} else {
		metrics.Register()
	}

	opts := []monitor.Option{monitor.WithPersister(backend)}
	if len(sinks) > 0 {
		opts = append(opts, monitor.WithNotifier(sinks))
	}
	mon := monitor.New(
		exchange.NewBinance(cfg.Exchange.Symbol, cfg.Exchange.BinanceURL),
		exchange.NewBybit(cfg.Exchange.Symbol, cfg.Exchange.BybitURL),
		store,
		monitor.Config{
			PollInterval:  cfg.Monitor.PollInterval,
			KeepPoints:    cfg.Monitor.KeepPoints,
			MaxIterations: cfg.Monitor.MaxIterations,
			Thresholds: monitor.Thresholds{
				UpPct:      cfg.Monitor.UpThreshPct,
				DownPct:    cfg.Monitor.DownThreshPct,
				SyncPct:    cfg.Monitor.SyncThreshPct,
				TotalSwing: cfg.Monitor.TotalSwingThresh,
			},
		},
		opts...,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			logger.Info("Shutdown signal received, finishing current cycle...")
			cancel()
		case <-ctx.Done():
		}
	}()

	mon.Run(ctx)
	logger.Info("Service stopped")
}
