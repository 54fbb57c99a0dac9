// Package main runs the resolver behind NATS request/reply so other services
// can resolve vehicles without calling the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/engine/resolve"
	"github.com/WessleyAI/wessley-remap/pkg/config"
	"github.com/WessleyAI/wessley-remap/pkg/metrics"
	"github.com/WessleyAI/wessley-remap/pkg/natsutil"
)

const queueGroup = "remap-resolvers"

func main() {
	configPath := flag.String("config", "", "optional YAML config file; environment variables override it")
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	reg := metrics.New()

	store, src, err := catalog.Open(ctx, catalog.OpenOptions{
		VehiclesURL:  cfg.CatalogueURL,
		VehiclesFile: cfg.CatalogueFile,
		EnginesFile:  cfg.EnginesFile,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	resolver := resolve.NewResolver(store, resolve.WithLogger(logger), resolve.WithMetrics(reg))

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("remap-resolver-worker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", cfg.NATSURL, err)
	}
	defer nc.Drain()

	var refresher *catalog.Refresher
	if src != nil {
		refresher = catalog.NewRefresher(store, src, cfg.CatalogueRefresh,
			catalog.WithLogger(logger), catalog.WithMetrics(reg))
	}
	if err := serve(nc, resolver, refresher, logger); err != nil {
		return err
	}
	logger.Info("resolver worker ready", "subject", resolve.SubjectResolve, "queue", queueGroup,
		"catalogue", store.Load().Version)

	g, gctx := errgroup.WithContext(ctx)
	if refresher != nil {
		g.Go(func() error { return refresher.Run(gctx) })
	}
	if cfg.MetricsPort != "" {
		g.Go(func() error { return reg.Serve(gctx, ":"+cfg.MetricsPort, logger) })
	}
	g.Go(func() error {
		reg.CollectRuntime(gctx, 15*time.Second)
		return nil
	})
	return g.Wait()
}

// serve registers the resolve handler and, when the catalogue has a remote
// source, the refresh broadcast listener.
func serve(nc *nats.Conn, resolver *resolve.Resolver, refresher *catalog.Refresher, logger *slog.Logger) error {
	if _, err := natsutil.Handle(nc, resolve.SubjectResolve, queueGroup, logger, resolver.Handle); err != nil {
		return fmt.Errorf("handle %s: %w", resolve.SubjectResolve, err)
	}
	if refresher == nil {
		return nil
	}
	_, err := natsutil.Subscribe(nc, resolve.SubjectCatalogueRefresh, logger,
		func(_ context.Context, m resolve.CatalogueRefresh) {
			logger.Info("catalogue refresh requested", "reason", m.Reason, "requested_at", m.RequestedAt)
			refresher.Trigger()
		})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", resolve.SubjectCatalogueRefresh, err)
	}
	return nil
}
