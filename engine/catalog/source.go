package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/pkg/fn"
	"github.com/WessleyAI/wessley-remap/pkg/resilience"
)

// Document is a fetched vehicle catalogue and its content fingerprint.
type Document struct {
	Vehicles *VehicleCatalogue
	Version  string
}

// Source yields vehicle catalogue documents.
type Source interface {
	Fetch(ctx context.Context) (Document, error)
	Name() string
}

const maxDocumentBytes = 32 << 20

// HTTPSource fetches the vehicle catalogue from a remote URL. Intermediary
// caches are bypassed; retries run inside a circuit breaker so a dead origin
// is not hammered.
type HTTPSource struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
	Retry   fn.RetryOpts
	Breaker *resilience.Breaker
}

// NewHTTPSource creates an HTTPSource with default timeout, retry and breaker.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:     url,
		Client:  &http.Client{},
		Timeout: 10 * time.Second,
		Retry: fn.RetryOpts{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Jitter:      true,
		},
		Breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

func (s *HTTPSource) Name() string { return s.URL }

// Fetch downloads and decodes the catalogue.
func (s *HTTPSource) Fetch(ctx context.Context) (Document, error) {
	type payload struct {
		body   []byte
		format Format
	}
	res := resilience.CallResult(s.Breaker, ctx, func(ctx context.Context) fn.Result[payload] {
		return fn.Retry(ctx, s.Retry, func(ctx context.Context) fn.Result[payload] {
			body, format, err := s.get(ctx)
			if err != nil {
				return fn.Err[payload](err)
			}
			return fn.Ok(payload{body: body, format: format})
		})
	})
	p, err := res.Unwrap()
	if err != nil {
		return Document{}, fmt.Errorf("catalog: fetch %s: %w: %v", s.URL, domain.ErrCatalogueUnavailable, err)
	}
	v, err := DecodeVehicles(bytes.NewReader(p.body), p.format)
	if err != nil {
		return Document{}, err
	}
	return Document{Vehicles: v, Version: Version(p.body)}, nil
}

func (s *HTTPSource) get(ctx context.Context) ([]byte, Format, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, FormatJSON, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json, application/yaml")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, FormatJSON, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, FormatJSON, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, FormatJSON, err
	}
	format := FormatFromContentType(resp.Header.Get("Content-Type"))
	if resp.Header.Get("Content-Type") == "" {
		format = FormatFromPath(req.URL.Path)
	}
	return body, format, nil
}

// FileSource reads the vehicle catalogue from a local file; the format
// follows the extension.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

// Fetch reads and decodes the file.
func (s FileSource) Fetch(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Document{}, fmt.Errorf("catalog: read %s: %w: %v", s.Path, domain.ErrCatalogueUnavailable, err)
	}
	v, err := DecodeVehicles(bytes.NewReader(data), FormatFromPath(s.Path))
	if err != nil {
		return Document{}, err
	}
	return Document{Vehicles: v, Version: Version(data)}, nil
}

// LoadEngines reads an engine catalogue file.
func LoadEngines(path string) (EngineCatalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeEngines(f, FormatFromPath(path))
}
