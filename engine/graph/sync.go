package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/engine/keys"
	"github.com/WessleyAI/wessley-remap/engine/resolve"
)

// Store writes catalogue snapshots to the graph.
type Store struct {
	opener SessionOpener
	logger *slog.Logger
}

// New creates a Store. A nil logger uses slog.Default.
func New(opener SessionOpener, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{opener: opener, logger: logger}
}

// SyncStats counts what one SyncCatalogue call wrote.
type SyncStats struct {
	Makes       int    `json:"makes"`
	Models      int    `json:"models"`
	YearRanges  int    `json:"yearRanges"`
	Options     int    `json:"options"`
	Engines     int    `json:"engines"`
	Resolutions int    `json:"resolutions"`
	Version     string `json:"version"`
}

// rows is a snapshot flattened into UNWIND parameter lists.
type rows struct {
	makes       []map[string]any
	models      []map[string]any
	yearRanges  []map[string]any
	options     []map[string]any
	engines     []map[string]any
	resolutions []map[string]any
}

func (r rows) stats(version string) SyncStats {
	return SyncStats{
		Makes:       len(r.makes),
		Models:      len(r.models),
		YearRanges:  len(r.yearRanges),
		Options:     len(r.options),
		Engines:     len(r.engines),
		Resolutions: len(r.resolutions),
		Version:     version,
	}
}

// Node ids are path-like so the same catalogue entry always MERGEs onto the
// same node.
func modelID(mk, model string) string         { return mk + "/" + model }
func yearRangeID(mk, model, yr string) string { return modelID(mk, model) + "/" + yr }
func optionID(yrID, label string) string      { return yrID + "#" + label }

// flatten walks the snapshot in sorted order. Engine options the resolver
// can place get a resolution row carrying the tier.
func flatten(snap *catalog.Snapshot) rows {
	var r rows
	for _, mk := range snap.ManufacturerKeys() {
		r.makes = append(r.makes, map[string]any{"key": mk})

		names := map[string]string{}
		for _, n := range snap.ModelNames(mk) {
			names[keys.Normalize(n)] = n
		}
		for _, mdl := range snap.ModelKeys(mk) {
			name := names[mdl]
			if name == "" {
				name = mdl
			}
			r.models = append(r.models, map[string]any{"id": modelID(mk, mdl), "make": mk, "key": mdl, "name": name})

			table, _ := snap.YearTable(mk, mdl)
			for _, entry := range table {
				yrID := yearRangeID(mk, mdl, entry.Range)
				yr := map[string]any{"id": yrID, "model": modelID(mk, mdl), "range": entry.Range}
				if p, ok := resolve.ParseYearRange(entry.Range); ok {
					yr["from"] = int64(p.From)
					yr["open"] = p.Open
					if !p.Open {
						yr["to"] = int64(p.To)
					}
				}
				r.yearRanges = append(r.yearRanges, yr)

				for _, label := range entry.Engines {
					oid := optionID(yrID, label)
					r.options = append(r.options, map[string]any{"id": oid, "yearRange": yrID, "label": label})
					if m, ok := resolve.ResolveEngine(snap, label); ok {
						r.resolutions = append(r.resolutions, map[string]any{"option": oid, "engine": m.Key, "tier": m.Tier.String()})
					}
				}
			}
		}
	}

	engineKeys := make([]string, 0, len(snap.Engines))
	for k := range snap.Engines {
		engineKeys = append(engineKeys, k)
	}
	sort.Strings(engineKeys)
	for _, k := range engineKeys {
		rec := snap.Engines[k]
		row := map[string]any{
			"key":         k,
			"capacity":    rec.Capacity,
			"cylinders":   int64(rec.Cylinders),
			"fuelType":    string(rec.FuelType),
			"stockPower":  rec.Stock.Power,
			"stockTorque": rec.Stock.Torque,
			"stage1Power": rec.Stage1.Power,
			"ecus":        []string(rec.CompatibleECUs),
		}
		if rec.Stage2 != nil {
			row["stage2Power"] = rec.Stage2.Power
		}
		r.engines = append(r.engines, row)
	}
	return r
}

var syncStatements = []struct {
	cypher string
	rows   func(rows) []map[string]any
}{
	{`UNWIND $rows AS row
	  MERGE (m:Make {key: row.key})`,
		func(r rows) []map[string]any { return r.makes }},
	{`UNWIND $rows AS row
	  MATCH (mk:Make {key: row.make})
	  MERGE (m:VehicleModel {id: row.id}) SET m.key = row.key, m.name = row.name
	  MERGE (mk)-[:HAS_MODEL]->(m)`,
		func(r rows) []map[string]any { return r.models }},
	{`UNWIND $rows AS row
	  MATCH (m:VehicleModel {id: row.model})
	  MERGE (y:YearRange {id: row.id}) SET y.range = row.range, y.from = row.from, y.to = row.to, y.open = row.open
	  MERGE (m)-[:HAS_YEARS]->(y)`,
		func(r rows) []map[string]any { return r.yearRanges }},
	{`UNWIND $rows AS row
	  MATCH (y:YearRange {id: row.yearRange})
	  MERGE (o:EngineOption {id: row.id}) SET o.label = row.label
	  MERGE (y)-[:OFFERS]->(o)`,
		func(r rows) []map[string]any { return r.options }},
	{`UNWIND $rows AS row
	  MERGE (e:EngineSpec {key: row.key})
	  SET e.capacity = row.capacity, e.cylinders = row.cylinders, e.fuel_type = row.fuelType,
	      e.stock_power = row.stockPower, e.stock_torque = row.stockTorque,
	      e.stage1_power = row.stage1Power, e.stage2_power = row.stage2Power, e.ecus = row.ecus`,
		func(r rows) []map[string]any { return r.engines }},
	{`UNWIND $rows AS row
	  MATCH (o:EngineOption {id: row.option}), (e:EngineSpec {key: row.engine})
	  MERGE (o)-[r:RESOLVES_TO]->(e) SET r.tier = row.tier`,
		func(r rows) []map[string]any { return r.resolutions }},
}

// SyncCatalogue MERGEs the whole snapshot in one write transaction, so a
// failed sync leaves the previous graph untouched. Nodes for entries that
// disappeared from the catalogue are not removed.
func (s *Store) SyncCatalogue(ctx context.Context, snap *catalog.Snapshot) (SyncStats, error) {
	start := time.Now()
	r := flatten(snap)

	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	err := sess.ExecuteWrite(ctx, func(tx Tx) error {
		for i, st := range syncStatements {
			batch := st.rows(r)
			if len(batch) == 0 {
				continue
			}
			res, err := tx.Run(ctx, st.cypher, map[string]any{"rows": batch})
			if err != nil {
				return fmt.Errorf("statement %d: %w", i, err)
			}
			if err := drain(ctx, res); err != nil {
				return fmt.Errorf("statement %d: %w", i, err)
			}
		}
		_, err := tx.Run(ctx, `MERGE (c:Catalogue {id: 'current'}) SET c.version = $version, c.synced_at = $at`,
			map[string]any{"version": snap.Version, "at": time.Now().UTC().Format(time.RFC3339)})
		return err
	})
	if err != nil {
		return SyncStats{}, fmt.Errorf("graph: sync catalogue %s: %w", snap.Version, err)
	}

	st := r.stats(snap.Version)
	s.logger.Info("catalogue synced to graph",
		"version", st.Version, "makes", st.Makes, "models", st.Models,
		"options", st.Options, "engines", st.Engines, "resolutions", st.Resolutions,
		"duration", time.Since(start))
	return st, nil
}

func drain(ctx context.Context, res Result) error {
	if res == nil {
		return nil
	}
	for res.Next(ctx) {
	}
	return res.Err()
}
