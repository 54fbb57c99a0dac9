// Package main implements the remap resolver API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/engine/lookup"
	"github.com/WessleyAI/wessley-remap/engine/resolve"
	"github.com/WessleyAI/wessley-remap/pkg/config"
	"github.com/WessleyAI/wessley-remap/pkg/metrics"
	"github.com/WessleyAI/wessley-remap/pkg/mid"
	"github.com/WessleyAI/wessley-remap/pkg/natsutil"
)

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
		logger.Error("server exited with error", "err", err)
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

	srv := &server{resolver: resolver, logger: logger}
	if cfg.PlateAPIURL != "" {
		client, closeCache, err := newPlateClient(ctx, cfg, logger, reg)
		if err != nil {
			return err
		}
		defer closeCache()
		srv.plates = client
	}

	mux := http.NewServeMux()
	srv.routes(mux)
	mux.Handle("GET /metrics", reg.Handler())

	// Metrics reads the matched route pattern, so it sits innermost.
	handler := mid.Chain(mux,
		mid.OTel("remap-api"),
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.Metrics(reg),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api server starting", "port", cfg.Port, "catalogue", store.Load().Version)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutCtx)
	})
	g.Go(func() error {
		reg.CollectRuntime(gctx, 15*time.Second)
		return nil
	})
	if cfg.MetricsPort != "" && cfg.MetricsPort != cfg.Port {
		g.Go(func() error { return reg.Serve(gctx, ":"+cfg.MetricsPort, logger) })
	}

	if src != nil {
		refresher := catalog.NewRefresher(store, src, cfg.CatalogueRefresh,
			catalog.WithLogger(logger), catalog.WithMetrics(reg))
		g.Go(func() error { return refresher.Run(gctx) })

		if cfg.CatalogueFile != "" {
			w := catalog.NewWatcher(cfg.CatalogueFile, refresher.Trigger, logger)
			g.Go(func() error { return w.Run(gctx) })
		}
		if nc := connectNATS(cfg.NATSURL, logger); nc != nil {
			defer nc.Drain()
			if _, err := natsutil.Subscribe(nc, resolve.SubjectCatalogueRefresh, logger,
				func(_ context.Context, m resolve.CatalogueRefresh) {
					logger.Info("catalogue refresh requested", "reason", m.Reason)
					refresher.Trigger()
				}); err != nil {
				return fmt.Errorf("subscribe %s: %w", resolve.SubjectCatalogueRefresh, err)
			}
		}
	}

	return g.Wait()
}

// newPlateClient builds the plate API client with an in-process LRU in
// front of Redis when REDIS_URL is set. The returned func releases Redis.
func newPlateClient(ctx context.Context, cfg config.Config, logger *slog.Logger, reg *metrics.Registry) (*lookup.Client, func(), error) {
	var cache lookup.Cache = lookup.NewLRUCache(10_000, cfg.PlateCacheTTL)
	closeCache := func() {}
	if cfg.RedisURL != "" {
		rdb, err := lookup.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		closeCache = func() { rdb.Close() }
		cache = lookup.TieredCache{L1: cache, L2: lookup.NewRedisCache(rdb, "", cfg.PlateCacheTTL, logger)}
	}

	lc := lookup.DefaultConfig(cfg.PlateAPIURL, cfg.PlateAPIKey)
	lc.Rate = cfg.PlateRate
	client := lookup.NewClient(lc,
		lookup.WithCache(cache),
		lookup.WithLogger(logger),
		lookup.WithMetrics(reg),
	)
	return client, closeCache, nil
}

// connectNATS returns nil when the server is unreachable; refresh
// broadcasts are then simply not received.
func connectNATS(url string, logger *slog.Logger) *nats.Conn {
	if url == "" {
		return nil
	}
	nc, err := nats.Connect(url, nats.Name("remap-api"))
	if err != nil {
		logger.Warn("nats unavailable, catalogue broadcasts disabled", "url", url, "err", err)
		return nil
	}
	return nc
}
