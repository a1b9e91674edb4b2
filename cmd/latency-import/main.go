// Command latency-import converts a JSON telemetry file into a badger
// snapshot that latencyd can serve with --source badger://<dir>.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vjranagit/latency/internal/config"
	"github.com/vjranagit/latency/internal/logging"
	"github.com/vjranagit/latency/pkg/telemetry"
)

func main() {
	fs := pflag.NewFlagSet("latency-import", pflag.ExitOnError)
	config.RegisterImportFlags(fs)
	out := fs.String("out", "", "directory of the badger snapshot to write")
	fs.Parse(os.Args[1:])

	if *out == "" {
		fmt.Fprintln(os.Stderr, "usage: latency-import --source <file> --out <dir> [--compression-level 1-4]")
		fs.PrintDefaults()
		os.Exit(2)
	}

	// Source, compression level and logging share the daemon's config keys
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := telemetry.Load(ctx, cfg.Data.Source)
	if err != nil {
		logger.Fatal("failed to load telemetry", zap.Error(err))
	}

	if err := telemetry.ImportBadger(ctx, *out, store.Records(), cfg.Data.CompressionLevel); err != nil {
		logger.Fatal("failed to write snapshot", zap.String("out", *out), zap.Error(err))
	}

	logger.Info("snapshot written",
		zap.String("source", cfg.Data.Source),
		zap.String("out", telemetry.BadgerScheme+*out),
		zap.Int("compression_level", cfg.Data.CompressionLevel),
		zap.Int("records", store.Len()),
		zap.Int("regions", len(store.Regions())))
}
