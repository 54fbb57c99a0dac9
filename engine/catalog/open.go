package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OpenOptions selects where the catalogues come from. Empty fields fall back
// to the bundled copies.
type OpenOptions struct {
	VehiclesURL  string
	VehiclesFile string // wins over VehiclesURL
	EnginesFile  string
	FetchTimeout time.Duration // initial remote fetch; default 10s
	Logger       *slog.Logger
}

// Open builds a Store from the bundled catalogues, replaces the engines
// from EnginesFile if set, and attempts one fetch from the configured
// vehicle source. A failed fetch is logged and the bundled vehicles are
// served. The returned Source is nil when no vehicle source is configured.
func Open(ctx context.Context, o OpenOptions) (*Store, Source, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engines, err := BundledEngines()
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: bundled engines: %w", err)
	}
	if o.EnginesFile != "" {
		if engines, err = LoadEngines(o.EnginesFile); err != nil {
			return nil, nil, err
		}
	}
	for _, e := range CheckConsistency(engines) {
		logger.Warn("engine catalogue inconsistency", "err", e)
	}

	vehicles, err := BundledVehicles()
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: bundled vehicles: %w", err)
	}
	snap, err := NewSnapshot(vehicles, engines, BundledVersion)
	if err != nil {
		return nil, nil, err
	}
	store := NewStore(snap)

	var src Source
	switch {
	case o.VehiclesFile != "":
		src = FileSource{Path: o.VehiclesFile}
	case o.VehiclesURL != "":
		src = NewHTTPSource(o.VehiclesURL)
	default:
		logger.Info("serving bundled catalogue", "version", snap.Version, "engines", len(engines))
		return store, nil, nil
	}

	timeout := o.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := NewRefresher(store, src, 0, WithLogger(logger)).RefreshNow(fetchCtx); err != nil {
		logger.Warn("initial catalogue fetch failed, serving bundled copy", "source", src.Name(), "err", err)
	}
	logger.Info("catalogue loaded", "source", src.Name(), "version", store.Load().Version, "engines", len(engines))
	return store, src, nil
}
