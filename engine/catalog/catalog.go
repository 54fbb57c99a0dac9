// Package catalog holds the vehicle and engine catalogues the resolver reads
// from. Catalogues are decoded into immutable Snapshots; refreshes build a new
// Snapshot and swap it into a Store.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/engine/keys"
)

// YearEntry is one year-range row of a model: the range as written in the
// catalogue ("2013-2016", "2019+") and its engine display strings.
type YearEntry struct {
	Range   string   `json:"range"`
	Engines []string `json:"engines"`
}

// YearEngines is the ordered year-range table of one model. It decodes from a
// JSON or YAML object and keeps document order, which the year locator
// depends on.
type YearEngines []YearEntry

// UnmarshalJSON reads the object token by token so key order survives.
func (y *YearEngines) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: year ranges must be an object", domain.ErrInvalidCatalogue)
	}
	var out YearEngines
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		rng, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: year range key %v", domain.ErrInvalidCatalogue, tok)
		}
		var engines []string
		if err := dec.Decode(&engines); err != nil {
			return fmt.Errorf("year range %q: %w", rng, err)
		}
		out = append(out, YearEntry{Range: rng, Engines: engines})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*y = out
	return nil
}

// MarshalJSON writes the table back as an ordered object.
func (y YearEngines) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range y {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Range)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Engines)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML walks the mapping node pairwise so key order survives.
func (y *YearEngines) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: year ranges must be a mapping (line %d)", domain.ErrInvalidCatalogue, node.Line)
	}
	out := make(YearEngines, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var engines []string
		if err := node.Content[i+1].Decode(&engines); err != nil {
			return fmt.Errorf("year range %q: %w", node.Content[i].Value, err)
		}
		out = append(out, YearEntry{Range: node.Content[i].Value, Engines: engines})
	}
	*y = out
	return nil
}

// Ranges returns the year-range strings in document order.
func (y YearEngines) Ranges() []string {
	out := make([]string, len(y))
	for i, e := range y {
		out[i] = e.Range
	}
	return out
}

// Engines returns the engine display strings of a range, or nil.
func (y YearEngines) Engines(yearRange string) []string {
	for _, e := range y {
		if e.Range == yearRange {
			return e.Engines
		}
	}
	return nil
}

// VehicleCatalogue combines the manufacturer catalogue (manufacturer key ->
// model display names) and the model/year/engine catalogue (manufacturer key
// -> model key -> year table).
type VehicleCatalogue struct {
	Manufacturers map[string][]string               `json:"manufacturers" yaml:"manufacturers"`
	Models        map[string]map[string]YearEngines `json:"models" yaml:"models"`
}

// EngineCatalogue maps composite engine keys to their records.
type EngineCatalogue map[string]domain.EngineRecord

// Snapshot is an immutable view over both catalogues. It is safe for
// concurrent use; nothing mutates it after NewSnapshot returns.
type Snapshot struct {
	Vehicles *VehicleCatalogue
	Engines  EngineCatalogue
	Version  string
	LoadedAt time.Time

	index engineIndex
}

// NewSnapshot builds a snapshot and its engine key index.
func NewSnapshot(v *VehicleCatalogue, e EngineCatalogue, version string) (*Snapshot, error) {
	if v == nil || e == nil {
		return nil, domain.ErrNilCatalogue
	}
	return &Snapshot{
		Vehicles: v,
		Engines:  e,
		Version:  version,
		LoadedAt: time.Now(),
		index:    buildIndex(e),
	}, nil
}

// ManufacturerKeys returns every manufacturer key known to either catalogue,
// sorted.
func (s *Snapshot) ManufacturerKeys() []string {
	seen := make(map[string]struct{}, len(s.Vehicles.Manufacturers))
	for k := range s.Vehicles.Manufacturers {
		seen[k] = struct{}{}
	}
	for k := range s.Vehicles.Models {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HasManufacturer reports whether the manufacturer key is known.
func (s *Snapshot) HasManufacturer(key string) bool {
	if _, ok := s.Vehicles.Manufacturers[key]; ok {
		return true
	}
	_, ok := s.Vehicles.Models[key]
	return ok
}

// ModelNames returns the display names of a manufacturer's models in
// catalogue order.
func (s *Snapshot) ModelNames(manufacturerKey string) []string {
	return s.Vehicles.Manufacturers[manufacturerKey]
}

// ModelKeys returns the model keys of a manufacturer, sorted.
func (s *Snapshot) ModelKeys(manufacturerKey string) []string {
	models := s.Vehicles.Models[manufacturerKey]
	out := make([]string, 0, len(models))
	for k := range models {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HasModel reports whether the model key exists for the manufacturer.
func (s *Snapshot) HasModel(manufacturerKey, modelKey string) bool {
	_, ok := s.Vehicles.Models[manufacturerKey][modelKey]
	return ok
}

// YearTable returns the ordered year table of a model.
func (s *Snapshot) YearTable(manufacturerKey, modelKey string) (YearEngines, bool) {
	y, ok := s.Vehicles.Models[manufacturerKey][modelKey]
	return y, ok
}

// Engine returns the record stored under a composite key.
func (s *Snapshot) Engine(key string) (domain.EngineRecord, bool) {
	r, ok := s.Engines[key]
	return r, ok
}

// EngineKeys returns every parseable engine key sorted by capacity, power
// and raw key.
func (s *Snapshot) EngineKeys() []keys.EngineKey {
	return s.index.all
}

// EnginesWithCapacity returns the parseable keys sharing a canonical
// capacity, sorted by power then raw key.
func (s *Snapshot) EnginesWithCapacity(capacity string) []keys.EngineKey {
	return s.index.byCapacity[capacity]
}

type engineIndex struct {
	all        []keys.EngineKey
	byCapacity map[string][]keys.EngineKey
}

func buildIndex(e EngineCatalogue) engineIndex {
	idx := engineIndex{byCapacity: make(map[string][]keys.EngineKey)}
	for raw := range e {
		k, ok := keys.ParseEngineKey(raw)
		if !ok {
			continue
		}
		idx.all = append(idx.all, k)
	}
	sort.Slice(idx.all, func(i, j int) bool {
		a, b := idx.all[i], idx.all[j]
		if a.Capacity != b.Capacity {
			return a.Capacity < b.Capacity
		}
		if a.Power != b.Power {
			return a.Power < b.Power
		}
		return a.Raw < b.Raw
	})
	for _, k := range idx.all {
		idx.byCapacity[k.Capacity] = append(idx.byCapacity[k.Capacity], k)
	}
	return idx
}
