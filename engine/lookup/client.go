// Package lookup fetches vehicle records for UK-style registration plates
// from an external plate API. Results are cached, rate limited and guarded
// by a circuit breaker; they feed the resolver's scored mode.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/pkg/fn"
	"github.com/WessleyAI/wessley-remap/pkg/metrics"
	"github.com/WessleyAI/wessley-remap/pkg/resilience"
)

// APIKeyHeader carries the plate API credential.
const APIKeyHeader = "x-api-key"

// maxBody caps how much of an API response is read.
const maxBody = 1 << 20

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // per HTTP attempt
	Rate    float64       // requests per second; <= 0 disables limiting
	Burst   int
	Retry   fn.RetryOpts
	Breaker resilience.BreakerOpts
}

// DefaultConfig returns the settings used by the API binary.
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: 8 * time.Second,
		Rate:    5,
		Burst:   5,
		Retry:   fn.DefaultRetry,
		Breaker: resilience.DefaultBreakerOpts,
	}
}

// Client looks up plates. It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	cache   Cache
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *slog.Logger
	met     *metrics.Registry

	fetch fn.Stage[string, domain.PartialVehicleDescriptor]
}

// Option configures a Client.
type Option func(*Client)

func WithCache(c Cache) Option { return func(cl *Client) { cl.cache = c } }

func WithHTTPClient(h *http.Client) Option { return func(cl *Client) { cl.http = h } }

func WithLogger(l *slog.Logger) Option { return func(cl *Client) { cl.logger = l } }

func WithMetrics(reg *metrics.Registry) Option { return func(cl *Client) { cl.met = reg } }

// NewClient builds a client. Without WithCache, lookups are not cached.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.limiter = resilience.NewLimiter(cfg.Rate, cfg.Burst)

	bopts := cfg.Breaker
	bopts.Ignore = func(err error) bool { return errors.Is(err, domain.ErrVehicleNotFound) }
	bopts.OnStateChange = func(from, to resilience.State) {
		c.logger.Warn("plate api breaker", "from", from.String(), "to", to.String())
		if c.met != nil {
			c.met.Gauge("remap_plate_breaker_state", "Plate API breaker state (0 closed, 1 open, 2 half-open)").Set(int64(to))
		}
	}
	c.breaker = resilience.NewBreaker(bopts)

	c.fetch = fn.TracedStage("lookup.plate",
		resilience.BreakerStage(c.breaker,
			fn.RetryStage(cfg.Retry,
				resilience.LimiterStage(c.limiter, c.get))))
	return c
}

// Lookup returns the vehicle record for a plate. Invalid plates fail with
// domain.ErrInvalidPlate, unknown ones with domain.ErrVehicleNotFound and
// everything else with domain.ErrLookupFailed.
func (c *Client) Lookup(ctx context.Context, plate string) (domain.PartialVehicleDescriptor, error) {
	norm, err := domain.NormalizePlate(plate)
	if err != nil {
		return domain.PartialVehicleDescriptor{}, err
	}
	start := time.Now()

	if c.cache != nil {
		if d, ok := c.cache.Get(ctx, norm); ok {
			c.observe("hit", start)
			return d, nil
		}
	}

	d, err := c.fetch(ctx, norm).Unwrap()
	switch {
	case err == nil:
		d.Registration = norm
		if c.cache != nil {
			c.cache.Set(ctx, norm, d)
		}
		c.observe("miss", start)
		return d, nil
	case errors.Is(err, domain.ErrVehicleNotFound):
		c.observe("not_found", start)
		return domain.PartialVehicleDescriptor{}, err
	default:
		c.observe("error", start)
		c.logger.Warn("plate lookup failed", "plate", norm, "err", err)
		if errors.Is(err, domain.ErrLookupFailed) {
			return domain.PartialVehicleDescriptor{}, err
		}
		return domain.PartialVehicleDescriptor{}, fmt.Errorf("%w: %w", domain.ErrLookupFailed, err)
	}
}

// get performs one HTTP attempt. Answers that retrying cannot change are
// marked fn.Permanent.
func (c *Client) get(ctx context.Context, plate string) fn.Result[domain.PartialVehicleDescriptor] {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/vehicles/" + url.PathEscape(plate)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fn.Err[domain.PartialVehicleDescriptor](fn.Permanent(err))
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fn.Err[domain.PartialVehicleDescriptor](err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fn.Err[domain.PartialVehicleDescriptor](err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fn.Err[domain.PartialVehicleDescriptor](fn.Permanent(domain.ErrVehicleNotFound))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fn.Err[domain.PartialVehicleDescriptor](fmt.Errorf("plate api: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return fn.Err[domain.PartialVehicleDescriptor](fn.Permanent(
			fmt.Errorf("%w: plate api status %d", domain.ErrLookupFailed, resp.StatusCode)))
	}

	d, err := decodeRecord(body)
	if err != nil {
		return fn.Err[domain.PartialVehicleDescriptor](fn.Permanent(fmt.Errorf("%w: %w", domain.ErrLookupFailed, err)))
	}
	return fn.Ok(d)
}

// BreakerState exposes the plate API breaker for health reporting.
func (c *Client) BreakerState() resilience.State { return c.breaker.State() }

func (c *Client) observe(outcome string, start time.Time) {
	if c.met == nil {
		return
	}
	c.met.Counter(metrics.WithLabels("remap_plate_lookups_total", "outcome", outcome), "Plate lookups by outcome").Inc()
	c.met.Histogram("remap_plate_lookup_duration_seconds", "Plate lookup latency", nil).Since(start)
}
