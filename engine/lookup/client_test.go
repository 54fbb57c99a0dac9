package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/pkg/fn"
	"github.com/WessleyAI/wessley-remap/pkg/metrics"
	"github.com/WessleyAI/wessley-remap/pkg/resilience"
)

const golfBody = `{"make":"VOLKSWAGEN","model":"GOLF","year":"2018","engineCapacity":"1968","fuelType":"DIESEL","powerBhp":"148"}`

type plateAPI struct {
	hits              atomic.Int32
	status            func(n int32) int
	body              string
	lastPath, lastKey atomic.Value
}

func (p *plateAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := p.hits.Add(1)
	p.lastPath.Store(r.URL.Path)
	p.lastKey.Store(r.Header.Get(APIKeyHeader))
	st := http.StatusOK
	if p.status != nil {
		st = p.status(n)
	}
	w.WriteHeader(st)
	if st == http.StatusOK {
		_, _ = w.Write([]byte(p.body))
	}
}

func testClient(t *testing.T, api *plateAPI, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	cfg := Config{
		BaseURL: srv.URL + "/",
		APIKey:  "secret",
		Timeout: time.Second,
		Retry:   fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond},
		Breaker: resilience.BreakerOpts{FailThreshold: 2, Timeout: time.Hour},
	}
	return NewClient(cfg, opts...)
}

func TestLookup(t *testing.T) {
	api := &plateAPI{body: golfBody}
	c := testClient(t, api)

	d, err := c.Lookup(context.Background(), "ab12 cde")
	if err != nil {
		t.Fatal(err)
	}
	if d.Make != "VOLKSWAGEN" || d.Year == nil || *d.Year != 2018 || d.Registration != "AB12CDE" {
		t.Errorf("descriptor = %+v", d)
	}
	if got := api.lastPath.Load(); got != "/vehicles/AB12CDE" {
		t.Errorf("path = %v", got)
	}
	if got := api.lastKey.Load(); got != "secret" {
		t.Errorf("api key header = %v", got)
	}
}

func TestLookupInvalidPlate(t *testing.T) {
	api := &plateAPI{body: golfBody}
	c := testClient(t, api)
	for _, p := range []string{"", "A", "AB12CDE123", "AB!2"} {
		if _, err := c.Lookup(context.Background(), p); !errors.Is(err, domain.ErrInvalidPlate) {
			t.Errorf("Lookup(%q) err = %v, want ErrInvalidPlate", p, err)
		}
	}
	if api.hits.Load() != 0 {
		t.Errorf("invalid plates reached the API %d times", api.hits.Load())
	}
}

func TestLookupNotFoundIsNotRetried(t *testing.T) {
	api := &plateAPI{status: func(int32) int { return http.StatusNotFound }}
	c := testClient(t, api)
	for i := 0; i < 4; i++ {
		if _, err := c.Lookup(context.Background(), "XX99XXX"); !errors.Is(err, domain.ErrVehicleNotFound) {
			t.Fatalf("err = %v, want ErrVehicleNotFound", err)
		}
	}
	if api.hits.Load() != 4 {
		t.Errorf("hits = %d, want one per lookup", api.hits.Load())
	}
	if c.BreakerState() != resilience.StateClosed {
		t.Errorf("not-found answers tripped the breaker")
	}
}

func TestLookupRetriesServerErrors(t *testing.T) {
	api := &plateAPI{body: golfBody, status: func(n int32) int {
		if n < 3 {
			return http.StatusBadGateway
		}
		return http.StatusOK
	}}
	c := testClient(t, api)
	if _, err := c.Lookup(context.Background(), "AB12CDE"); err != nil {
		t.Fatal(err)
	}
	if api.hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", api.hits.Load())
	}
}

func TestLookupFailureTripsBreaker(t *testing.T) {
	api := &plateAPI{status: func(int32) int { return http.StatusServiceUnavailable }}
	c := testClient(t, api)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Lookup(ctx, "AB12CDE"); !errors.Is(err, domain.ErrLookupFailed) {
			t.Fatalf("err = %v, want ErrLookupFailed", err)
		}
	}
	if api.hits.Load() != 6 {
		t.Errorf("hits = %d, want 6", api.hits.Load())
	}
	_, err := c.Lookup(ctx, "AB12CDE")
	if !errors.Is(err, domain.ErrLookupFailed) || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want open breaker", err)
	}
	if api.hits.Load() != 6 {
		t.Errorf("open breaker let a request through")
	}
}

func TestLookupClientErrorIsPermanent(t *testing.T) {
	api := &plateAPI{status: func(int32) int { return http.StatusUnauthorized }}
	c := testClient(t, api)
	if _, err := c.Lookup(context.Background(), "AB12CDE"); !errors.Is(err, domain.ErrLookupFailed) {
		t.Fatalf("err = %v", err)
	}
	if api.hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", api.hits.Load())
	}
}

func TestLookupBadBody(t *testing.T) {
	api := &plateAPI{body: "<html>"}
	c := testClient(t, api)
	if _, err := c.Lookup(context.Background(), "AB12CDE"); !errors.Is(err, domain.ErrLookupFailed) {
		t.Fatalf("err = %v", err)
	}
	if api.hits.Load() != 1 {
		t.Errorf("undecodable body was retried")
	}
}

func TestLookupCached(t *testing.T) {
	api := &plateAPI{body: golfBody}
	reg := metrics.New()
	c := testClient(t, api, WithCache(NewLRUCache(16, time.Minute)), WithMetrics(reg))
	ctx := context.Background()

	for _, p := range []string{"AB12CDE", "ab12-cde", "AB12 CDE"} {
		if _, err := c.Lookup(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	if api.hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", api.hits.Load())
	}
	if got := reg.Counter(`remap_plate_lookups_total{outcome="hit"}`, "").Value(); got != 2 {
		t.Errorf("cache hits = %d, want 2", got)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache(4, 10*time.Millisecond)
	ctx := context.Background()
	c.Set(ctx, "AB12CDE", domain.PartialVehicleDescriptor{Make: "VW"})
	if _, ok := c.Get(ctx, "AB12CDE"); !ok {
		t.Fatal("fresh entry missing")
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get(ctx, "AB12CDE"); ok {
		t.Fatal("expired entry returned")
	}
}

func TestTieredCacheBackfill(t *testing.T) {
	ctx := context.Background()
	l1, l2 := NewLRUCache(4, time.Minute), NewLRUCache(4, time.Minute)
	tc := TieredCache{L1: l1, L2: l2}

	l2.Set(ctx, "AB12CDE", domain.PartialVehicleDescriptor{Make: "VW"})
	if d, ok := tc.Get(ctx, "AB12CDE"); !ok || d.Make != "VW" {
		t.Fatalf("L2 hit missed: %+v, %v", d, ok)
	}
	if _, ok := l1.Get(ctx, "AB12CDE"); !ok {
		t.Error("L2 hit not copied into L1")
	}

	tc.Set(ctx, "CD34EFG", domain.PartialVehicleDescriptor{Make: "Ford"})
	if l1.Len() != 2 || l2.Len() != 2 {
		t.Errorf("Set should write both tiers: l1=%d l2=%d", l1.Len(), l2.Len())
	}
	if _, ok := (TieredCache{}).Get(ctx, "AB12CDE"); ok {
		t.Error("empty tiered cache hit")
	}
}

func TestRedisCacheUnavailableIsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	c := NewRedisCache(client, "", time.Minute, nil)
	ctx := context.Background()

	c.Set(ctx, "AB12CDE", domain.PartialVehicleDescriptor{Make: "VW"})
	if _, ok := c.Get(ctx, "AB12CDE"); ok {
		t.Fatal("unreachable redis reported a hit")
	}
	if c.prefix != "remap:plate:" {
		t.Errorf("default prefix = %q", c.prefix)
	}
}

func TestNewRedisClientBadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "http://nope"); err == nil {
		t.Fatal("expected error for non-redis URL")
	}
}
