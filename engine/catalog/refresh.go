package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/WessleyAI/wessley-remap/pkg/metrics"
)

// Refresher periodically fetches the vehicle catalogue from a Source and
// swaps it into a Store. A failed fetch is logged and the previous snapshot
// stays in place; callers of the resolver never see the failure.
type Refresher struct {
	store    *Store
	src      Source
	interval time.Duration
	logger   *slog.Logger
	trigger  chan struct{}
	onSwap   func(*Snapshot)

	refreshes *metrics.Counter
	failures  *metrics.Counter
	unchanged *metrics.Counter
	lastOK    *metrics.Gauge
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithLogger sets the refresher's logger.
func WithLogger(l *slog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = l }
}

// WithMetrics registers refresh counters on reg.
func WithMetrics(reg *metrics.Registry) RefresherOption {
	return func(r *Refresher) {
		r.refreshes = reg.Counter(metrics.WithLabels("remap_catalogue_refresh_total", "source", r.src.Name()), "Catalogue refreshes applied")
		r.failures = reg.Counter("remap_catalogue_refresh_failures_total", "Catalogue fetches that failed")
		r.unchanged = reg.Counter("remap_catalogue_refresh_unchanged_total", "Catalogue fetches with an unchanged version")
		r.lastOK = reg.Gauge("remap_catalogue_last_refresh_timestamp_seconds", "Unix time of the last applied refresh")
	}
}

// OnSwap registers a callback run after each applied refresh.
func OnSwap(f func(*Snapshot)) RefresherOption {
	return func(r *Refresher) { r.onSwap = f }
}

// NewRefresher creates a refresher. An interval <= 0 disables polling; the
// refresher then only reacts to Trigger.
func NewRefresher(store *Store, src Source, interval time.Duration, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		store:    store,
		src:      src,
		interval: interval,
		logger:   slog.Default(),
		trigger:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Trigger requests an immediate refresh. It never blocks; triggers that
// arrive while one is pending are merged.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// RefreshNow fetches once and swaps the result in if its version differs
// from the current snapshot. It reports whether a swap happened.
func (r *Refresher) RefreshNow(ctx context.Context) (bool, error) {
	doc, err := r.src.Fetch(ctx)
	if err != nil {
		if r.failures != nil {
			r.failures.Inc()
		}
		return false, err
	}
	if doc.Version != "" && doc.Version == r.store.Load().Version {
		if r.unchanged != nil {
			r.unchanged.Inc()
		}
		return false, nil
	}
	snap, err := r.store.SwapVehicles(doc.Vehicles, doc.Version)
	if err != nil {
		return false, err
	}
	if r.refreshes != nil {
		r.refreshes.Inc()
		r.lastOK.Set(snap.LoadedAt.Unix())
	}
	if r.onSwap != nil {
		r.onSwap(snap)
	}
	return true, nil
}

// Run polls until ctx is done. It always returns nil on shutdown.
func (r *Refresher) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		tick = t.C
	}
	r.logger.Info("catalogue refresher started", "source", r.src.Name(), "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		case <-r.trigger:
		}
		r.refresh(ctx)
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	swapped, err := r.RefreshNow(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("catalogue refresh failed, keeping previous snapshot",
			"source", r.src.Name(), "version", r.store.Load().Version, "err", err)
		return
	}
	if swapped {
		r.logger.Info("catalogue refreshed", "source", r.src.Name(), "version", r.store.Load().Version)
	}
}
