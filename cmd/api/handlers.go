package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/engine/resolve"
	"github.com/WessleyAI/wessley-remap/pkg/resilience"
)

const (
	maxBodyBytes = 1 << 20
	maxBatch     = 100
)

// plateLookup is satisfied by *lookup.Client.
type plateLookup interface {
	Lookup(ctx context.Context, plate string) (domain.PartialVehicleDescriptor, error)
}

type server struct {
	resolver *resolve.Resolver
	plates   plateLookup // nil when no plate API is configured
	logger   *slog.Logger
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/makes", s.handleMakes)
	mux.HandleFunc("GET /api/v1/makes/{make}/models", s.handleModels)
	mux.HandleFunc("GET /api/v1/makes/{make}/models/{model}/years", s.handleYears)
	mux.HandleFunc("GET /api/v1/makes/{make}/models/{model}/years/{range}/engines", s.handleEngines)
	mux.HandleFunc("GET /api/v1/engines/{key}", s.handleEngine)
	mux.HandleFunc("POST /api/v1/resolve", s.handleResolve)
	mux.HandleFunc("POST /api/v1/resolve/batch", s.handleResolveBatch)
	mux.HandleFunc("POST /api/v1/resolve/text", s.handleResolveText)
	mux.HandleFunc("GET /api/v1/plates/{plate}", s.handlePlate)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.resolver.Snapshot()
	plate := "disabled"
	if b, ok := s.plates.(interface{ BreakerState() resilience.State }); ok {
		plate = b.BreakerState().String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"catalogue": snap.Version,
		"loadedAt":  snap.LoadedAt.UTC().Format(time.RFC3339),
		"engines":   len(snap.Engines),
		"plateApi":  plate,
	})
}

func (s *server) handleMakes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"makes": s.resolver.Makes()})
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, ok := s.resolver.Models(r.PathValue("make"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown manufacturer")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

// handleYears answers 200 even for unknown vehicles: the generic bands let
// the form fall back to manual entry.
func (s *server) handleYears(w http.ResponseWriter, r *http.Request) {
	ranges, matched := s.resolver.YearRanges(r.PathValue("make"), r.PathValue("model"))
	writeJSON(w, http.StatusOK, map[string]any{"years": ranges, "matched": matched})
}

func (s *server) handleEngines(w http.ResponseWriter, r *http.Request) {
	engines, ok := s.resolver.Engines(r.PathValue("make"), r.PathValue("model"), r.PathValue("range"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown vehicle or year range")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"engines": engines})
}

func (s *server) handleEngine(w http.ResponseWriter, r *http.Request) {
	m, ok := s.resolver.ResolveEngine(r.PathValue("key"))
	if !ok {
		writeError(w, http.StatusNotFound, "no engine matches "+r.PathValue("key"))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type resolveRequest struct {
	domain.PartialVehicleDescriptor
	Mode string `json:"mode,omitempty"`
}

func (s *server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.resolver.Handle(r.Context(), resolve.Request{Descriptor: req.PartialVehicleDescriptor, Mode: req.Mode})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp.Selection)
}

type batchRequest struct {
	Descriptors []domain.PartialVehicleDescriptor `json:"descriptors"`
	Mode        string                            `json:"mode,omitempty"`
}

func (s *server) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Descriptors) > maxBatch {
		writeError(w, http.StatusBadRequest, "too many descriptors")
		return
	}
	mode, err := resolve.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, d := range req.Descriptors {
		if err := domain.ValidateDescriptor(d); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	sels := s.resolver.ResolveBatch(r.Context(), req.Descriptors, mode, 8)
	writeJSON(w, http.StatusOK, map[string]any{"selections": sels})
}

func (s *server) handleResolveText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	resp, _ := s.resolver.Handle(r.Context(), resolve.Request{Text: req.Text})
	writeJSON(w, http.StatusOK, map[string]any{"selection": resp.Selection, "extracted": resp.Extracted})
}

func (s *server) handlePlate(w http.ResponseWriter, r *http.Request) {
	if s.plates == nil {
		writeError(w, http.StatusServiceUnavailable, "plate lookup is not configured")
		return
	}
	d, err := s.plates.Lookup(r.Context(), r.PathValue("plate"))
	switch {
	case errors.Is(err, domain.ErrInvalidPlate):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrVehicleNotFound):
		writeError(w, http.StatusNotFound, "no vehicle registered under that plate")
		return
	case err != nil:
		s.logger.Error("plate lookup failed", "err", err)
		writeError(w, http.StatusBadGateway, "plate lookup unavailable")
		return
	}
	sel := s.resolver.Resolve(r.Context(), d, resolve.ModeScored)
	writeJSON(w, http.StatusOK, map[string]any{"vehicle": d, "selection": sel})
}
