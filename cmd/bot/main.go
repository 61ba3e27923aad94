// ==============================
// File: cmd/bot/main.go
// ==============================
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pumptrader/internal/bot"
	"pumptrader/internal/config"
	"pumptrader/internal/events"
	"pumptrader/internal/export"
	"pumptrader/internal/feed"
	"pumptrader/internal/ledger"
	"pumptrader/internal/logger"
	"pumptrader/internal/metrics"
	"pumptrader/internal/storage"
	"pumptrader/internal/wallet"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	exportDir := flag.String("export-dir", "", "export position history to this directory on shutdown")
	flag.Parse()

	if err := run(*configPath, *exportDir); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, exportDir string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.DebugLogging, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log.Info("🚀 Starting pump.fun trading bot")

	w, err := wallet.New(cfg.WalletPrivateKey)
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}
	log.Info("Wallet loaded", zap.String("address", logger.ShortenAddress(w.String())))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := ledger.NewRPCClient(cfg.RPCList[0], log)
	builder := ledger.NewTradeBuilder(client, w, log)
	confirmer := ledger.NewConfirmer(client, log)

	store, err := storage.Open(cfg.DatabasePath, log)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	marketFeed, err := feed.NewWSFeed(ctx, cfg.WebSocketURL, cfg.DedupCacheSize, log)
	if err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	defer marketFeed.Close()

	bus := events.NewBus(log, 64)
	defer bus.Close()

	// telemetry subscribers: position lifecycle and halts in one place
	bus.SubscribeFunc(events.PositionClosed, func(_ context.Context, ev events.Event) error {
		if closed, ok := ev.(events.PositionClosedEvent); ok {
			if closed.ProceedsKnown {
				log.Info("Trade recorded",
					zap.String("mint", logger.ShortenAddress(closed.TokenAddress)),
					zap.Float64("pnl_sol", closed.Profit))
			} else {
				log.Warn("Trade recorded without measured proceeds",
					zap.String("mint", logger.ShortenAddress(closed.TokenAddress)))
			}
		}
		return nil
	})
	bus.SubscribeFunc(events.TradingHalted, func(_ context.Context, ev events.Event) error {
		if halted, ok := ev.(events.TradingHaltedEvent); ok {
			log.Error("Manual inspection required",
				zap.String("mint", halted.TokenAddress),
				zap.String("reason", halted.Reason))
		}
		return nil
	})

	if cfg.MetricsListen != "" {
		go func() {
			log.Info("Metrics endpoint listening", zap.String("addr", cfg.MetricsListen))
			if err := metrics.Serve(cfg.MetricsListen); err != nil {
				log.Warn("Metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	trader := bot.New(cfg.Settings, bot.Deps{
		Feed:      marketFeed,
		Client:    client,
		Builder:   builder,
		Confirmer: confirmer,
		Wallet:    w,
		Bus:       bus,
		Recorder:  store,
	}, log)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return trader.Run(groupCtx)
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if exportDir != "" {
		if history := trader.History(); len(history) > 0 {
			exporter := export.NewHistoryExporter(log)
			if _, exportErr := exporter.Export(history, export.Options{
				Format:     export.FormatCSV,
				OnlyClosed: true,
				OutputDir:  exportDir,
			}); exportErr != nil {
				log.Warn("History export failed", zap.Error(exportErr))
			}
		}
	}

	log.Info("👋 Shutdown complete")
	return err
}
