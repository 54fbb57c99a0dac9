// Package main mirrors the vehicle and engine catalogues into Neo4j. By
// default it syncs once and exits; with -follow it keeps the graph in step
// with catalogue refreshes.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/engine/graph"
	"github.com/WessleyAI/wessley-remap/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file; environment variables override it")
	follow := flag.Bool("follow", false, "keep running and resync after every catalogue refresh")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-sync timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := graph.NewDriver(ctx, cfg.Neo4jURL, cfg.Neo4jUser, cfg.Neo4jPass)
	if err != nil {
		logger.Error("neo4j", "err", err)
		os.Exit(1)
	}
	defer driver.Close(context.Background())

	g := graph.New(graph.DriverOpener{Driver: driver}, logger)
	if err := run(ctx, cfg, g, *follow, *timeout, logger); err != nil {
		logger.Error("catalogue sync failed", "err", err)
		os.Exit(1)
	}
}

type syncer interface {
	SyncCatalogue(ctx context.Context, snap *catalog.Snapshot) (graph.SyncStats, error)
}

func run(ctx context.Context, cfg config.Config, g syncer, follow bool, timeout time.Duration, logger *slog.Logger) error {
	store, src, err := catalog.Open(ctx, catalog.OpenOptions{
		VehiclesURL:  cfg.CatalogueURL,
		VehiclesFile: cfg.CatalogueFile,
		EnginesFile:  cfg.EnginesFile,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	syncOnce := func(snap *catalog.Snapshot) error {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		_, err := g.SyncCatalogue(sctx, snap)
		return err
	}
	if err := syncOnce(store.Load()); err != nil {
		return err
	}
	if !follow {
		return nil
	}
	if src == nil {
		logger.Info("no catalogue source configured, nothing to follow")
		return nil
	}

	refresher := catalog.NewRefresher(store, src, cfg.CatalogueRefresh,
		catalog.WithLogger(logger),
		catalog.OnSwap(func(snap *catalog.Snapshot) {
			if err := syncOnce(snap); err != nil {
				logger.Error("graph resync failed", "version", snap.Version, "err", err)
			}
		}),
	)
	return refresher.Run(ctx)
}
