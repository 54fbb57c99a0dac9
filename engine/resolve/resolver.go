// Package resolve turns loosely specified vehicle descriptors into canonical
// catalogue selections: manufacturer, model, year range, engine option and
// engine record. Absence of a match is never an error; unmatched stages are
// left empty with their Matched flag false.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/engine/keys"
	"github.com/WessleyAI/wessley-remap/pkg/fn"
	"github.com/WessleyAI/wessley-remap/pkg/metrics"
	"github.com/WessleyAI/wessley-remap/pkg/vehiclenlp"
)

// Mode selects how strictly years and engines must match.
type Mode int

const (
	// ModeCascade mirrors dropdown selection: the year must fall inside a
	// catalogue range and the engine must be one of the range's options.
	ModeCascade Mode = iota
	// ModeScored is for external records (plate lookups, free text): the
	// nearest year range is accepted and engines are picked by score.
	ModeScored
)

func (m Mode) String() string {
	if m == ModeScored {
		return "scored"
	}
	return "cascade"
}

// ParseMode maps "cascade"/"scored" (or "") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cascade":
		return ModeCascade, nil
	case "scored":
		return ModeScored, nil
	}
	return ModeCascade, fmt.Errorf("resolve: unknown mode %q", s)
}

// Resolver answers resolution and dropdown queries against the snapshot
// currently held by a catalog.Store. Each call pins one snapshot, so a
// concurrent refresh never mixes two catalogue versions in one answer.
type Resolver struct {
	store  *catalog.Store
	logger *slog.Logger
	met    *metrics.Registry

	text atomic.Pointer[textIndex]
}

type textIndex struct {
	snap *catalog.Snapshot
	ex   *vehiclenlp.Extractor
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// WithMetrics records resolution counters and latency on reg.
func WithMetrics(reg *metrics.Registry) ResolverOption {
	return func(r *Resolver) { r.met = reg }
}

// NewResolver creates a resolver over store. A nil store is a programming
// error and panics.
func NewResolver(store *catalog.Store, opts ...ResolverOption) *Resolver {
	if store == nil {
		panic(domain.ErrNilCatalogue)
	}
	r := &Resolver{store: store, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Snapshot returns the snapshot the next call would use.
func (r *Resolver) Snapshot() *catalog.Snapshot { return r.store.Load() }

// Resolve maps a descriptor to a catalogue selection. The manufacturer,
// model and year stages run in order and a failed stage leaves the later
// ones unmatched. The engine stage runs on its own: an engine value on the
// descriptor is resolved to a record even when the vehicle was not located.
func (r *Resolver) Resolve(ctx context.Context, d domain.PartialVehicleDescriptor, mode Mode) domain.ResolvedVehicleSelection {
	_, span := otel.Tracer("engine/resolve").Start(ctx, "resolve.vehicle")
	defer span.End()
	start := time.Now()

	sel := ResolveIn(r.store.Load(), d, mode)

	span.SetAttributes(
		attribute.String("remap.mode", mode.String()),
		attribute.String("remap.manufacturer", sel.ManufacturerKey),
		attribute.String("remap.model", sel.ModelKey),
		attribute.String("remap.engine_key", sel.EngineKey),
		attribute.Bool("remap.complete", sel.Complete()),
	)
	r.observe(mode, sel, start)
	r.logger.Debug("resolved vehicle",
		"mode", mode.String(), "make", d.Make, "model", d.Model,
		"manufacturer_key", sel.ManufacturerKey, "model_key", sel.ModelKey,
		"year_range", sel.YearRange, "engine_key", sel.EngineKey, "tier", sel.EngineTier)
	return sel
}

// ResolveBatch resolves many descriptors with bounded concurrency. Results
// keep input order.
func (r *Resolver) ResolveBatch(ctx context.Context, ds []domain.PartialVehicleDescriptor, mode Mode, workers int) []domain.ResolvedVehicleSelection {
	return fn.ParMap(ds, workers, func(d domain.PartialVehicleDescriptor) domain.ResolvedVehicleSelection {
		return r.Resolve(ctx, d, mode)
	})
}

// ResolveIn runs a resolution against an explicit snapshot.
func ResolveIn(snap *catalog.Snapshot, d domain.PartialVehicleDescriptor, mode Mode) domain.ResolvedVehicleSelection {
	var sel domain.ResolvedVehicleSelection

	direct, hasDirect := resolveRawEngine(snap, d)
	if options, ok := locateVehicle(snap, d, mode, &sel); ok {
		sel.EngineOption = selectEngineOption(snap, options, d, direct, hasDirect, mode)
	}

	switch {
	case hasDirect:
		setEngine(&sel, direct)
	case sel.EngineOption != "":
		if m, ok := ResolveEngine(snap, sel.EngineOption); ok {
			setEngine(&sel, m)
		}
	}
	return sel
}

// locateVehicle fills the manufacturer, model and year range stages and
// returns the engine options listed under the located range.
func locateVehicle(snap *catalog.Snapshot, d domain.PartialVehicleDescriptor, mode Mode, sel *domain.ResolvedVehicleSelection) ([]string, bool) {
	mk, ok := LocateManufacturer(snap, d.Make)
	if !ok {
		return nil, false
	}
	sel.ManufacturerKey, sel.Matched.Manufacturer = mk, true

	model, ok := LocateModel(snap, mk, d.Model)
	if !ok {
		return nil, false
	}
	sel.ModelKey, sel.Matched.Model = model, true

	if d.Year == nil {
		return nil, false
	}
	table, _ := snap.YearTable(mk, model)
	yr, ok := LocateYearRange(table.Ranges(), *d.Year)
	if !ok && mode == ModeScored {
		yr, ok = ClosestYearRange(table.Ranges(), *d.Year)
	}
	if !ok {
		return nil, false
	}
	sel.YearRange, sel.Matched.Year = yr, true
	return table.Engines(yr), true
}

// resolveRawEngine resolves the first of the descriptor's engine strings
// that reaches a record.
func resolveRawEngine(snap *catalog.Snapshot, d domain.PartialVehicleDescriptor) (EngineMatch, bool) {
	for _, raw := range d.RawEngineStrings() {
		if m, ok := ResolveEngine(snap, raw); ok {
			return m, true
		}
	}
	return EngineMatch{}, false
}

// selectEngineOption picks the dropdown option for the located year range.
// An option whose normalized text equals a raw engine string wins, then an
// option resolving to the same record as the descriptor's engine. Scoring
// only runs in scored mode when no engine was resolved from the descriptor.
func selectEngineOption(snap *catalog.Snapshot, options []string, d domain.PartialVehicleDescriptor, direct EngineMatch, hasDirect bool, mode Mode) string {
	for _, raw := range d.RawEngineStrings() {
		want := keys.Normalize(raw)
		for _, opt := range options {
			if keys.Normalize(opt) == want {
				return opt
			}
		}
	}
	if hasDirect {
		for _, opt := range options {
			if m, ok := ResolveEngine(snap, opt); ok && m.Key == direct.Key {
				return opt
			}
		}
		return ""
	}
	if mode != ModeScored {
		return ""
	}
	opts := make([]Option, len(options))
	for i, o := range options {
		opts[i] = Option{Label: o, Value: o}
	}
	best, ok := ScoreAndSelect(opts, d)
	if !ok {
		return ""
	}
	return best.Option.Value
}

func setEngine(sel *domain.ResolvedVehicleSelection, m EngineMatch) {
	rec := m.Record
	sel.EngineKey, sel.EngineTier, sel.Record = m.Key, m.Tier.String(), &rec
	sel.Matched.Engine = true
}

// ResolveEngine resolves an engine descriptor against the current snapshot.
func (r *Resolver) ResolveEngine(descriptor string) (EngineMatch, bool) {
	m, ok := ResolveEngine(r.store.Load(), descriptor)
	if r.met != nil {
		tier := TierNone
		if ok {
			tier = m.Tier
		}
		r.met.Counter(metrics.WithLabels("remap_resolve_engine_total", "tier", tier.String()), "Engine resolutions by matching tier").Inc()
	}
	return m, ok
}

// ResolveText extracts a descriptor from free text ("2018 VW Golf 2.0 TDI
// 150hp") and resolves it in scored mode. The extracted descriptor is
// returned alongside the selection.
func (r *Resolver) ResolveText(ctx context.Context, text string) (domain.ResolvedVehicleSelection, domain.PartialVehicleDescriptor) {
	snap := r.store.Load()
	d := r.extractor(snap).Describe(text)
	return r.Resolve(ctx, d, ModeScored), d
}

func (r *Resolver) extractor(snap *catalog.Snapshot) describer {
	if ti := r.text.Load(); ti != nil && ti.snap == snap {
		return describer{ti.ex}
	}
	ti := &textIndex{snap: snap, ex: vehiclenlp.NewExtractor(snap.Vehicles.Manufacturers, domain.ManufacturerAliases)}
	r.text.Store(ti)
	return describer{ti.ex}
}

type describer struct{ ex *vehiclenlp.Extractor }

// Describe turns free text into a descriptor.
func (d describer) Describe(text string) domain.PartialVehicleDescriptor {
	var out domain.PartialVehicleDescriptor
	if m := d.ex.ExtractBest(text); m != nil {
		out.Make, out.Model = m.Make, m.Model
		if m.Year > 0 {
			out.Year = domain.IntPtr(m.Year)
		}
	}
	f := vehiclenlp.ExtractEngine(text)
	out.Engine = f.Phrase
	out.FuelType = f.Fuel
	if f.CapacityLitres > 0 {
		out.EngineCapacityCC = domain.IntPtr(int(math.Round(f.CapacityLitres * 1000)))
	}
	if f.PowerHP > 0 {
		out.PowerBHP = domain.FloatPtr(f.PowerHP)
	}
	return out
}

func (r *Resolver) observe(mode Mode, sel domain.ResolvedVehicleSelection, start time.Time) {
	if r.met == nil {
		return
	}
	r.met.Counter(metrics.WithLabels("remap_resolve_total", "mode", mode.String()), "Vehicle resolutions by mode").Inc()
	if sel.Complete() {
		r.met.Counter(metrics.WithLabels("remap_resolve_complete_total", "mode", mode.String()), "Resolutions where every stage matched").Inc()
	}
	tier := sel.EngineTier
	if tier == "" {
		tier = TierNone.String()
	}
	r.met.Counter(metrics.WithLabels("remap_resolve_engine_total", "tier", tier), "Engine resolutions by matching tier").Inc()
	r.met.Histogram("remap_resolve_duration_seconds", "Vehicle resolution latency", []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05}).Since(start)
}
