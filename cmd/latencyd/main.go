package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vjranagit/latency/internal/config"
	"github.com/vjranagit/latency/internal/logging"
	"github.com/vjranagit/latency/pkg/api"
	"github.com/vjranagit/latency/pkg/stats"
	"github.com/vjranagit/latency/pkg/telemetry"
)

const (
	version = "0.1.0"
)

func main() {
	fs := pflag.NewFlagSet("latencyd", pflag.ExitOnError)
	config.RegisterFlags(fs)
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("latencyd v%s\n", version)
		return
	}

	// Load configuration
	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("version", version),
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("endpoint", cfg.Server.Endpoint),
		zap.String("envelope", cfg.Server.Envelope),
		zap.String("source", cfg.Data.Source),
		zap.Int("cache_capacity", cfg.Cache.Capacity))

	// Load telemetry snapshot
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	store, err := telemetry.Load(ctx, cfg.Data.Source)
	cancel()
	if err != nil {
		logger.Fatal("failed to load telemetry", zap.Error(err))
	}
	if store.Len() == 0 {
		logger.Warn("telemetry snapshot is empty, every region will report no data",
			zap.String("source", cfg.Data.Source))
	}
	logger.Info("telemetry loaded",
		zap.Int("records", store.Len()),
		zap.Int("regions", len(store.Regions())))

	var opts []stats.Option
	if cache := stats.NewResultCache(cfg.Cache.Capacity, cfg.Cache.TTL); cache != nil {
		opts = append(opts, stats.WithCache(cache))
	}
	aggregator := stats.NewAggregator(store, opts...)

	// Create API server
	server := api.NewServer(cfg.ToServerConfig(version), aggregator, store, logger)

	// Start server in goroutine
	go func() {
		logger.Info("API server listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := server.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}
