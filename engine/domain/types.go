// Package domain defines the core vehicle and engine types shared by the
// catalogue, the resolver and every surface that hosts it. It also acts as
// the validation gate for descriptors arriving from outside.
package domain

import "sort"

// Performance is a power/torque pair for one tuning stage.
type Performance struct {
	Power  float64 `json:"power" yaml:"power"`   // hp
	Torque float64 `json:"torque" yaml:"torque"` // Nm
}

// StringSet is an ordered, duplicate-free set of strings. It decodes from a
// plain list.
type StringSet []string

// NewStringSet builds a sorted set from items, dropping empties and duplicates.
func NewStringSet(items ...string) StringSet {
	seen := make(map[string]struct{}, len(items))
	out := make(StringSet, 0, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether s is in the set.
func (s StringSet) Contains(v string) bool {
	for _, it := range s {
		if it == v {
			return true
		}
	}
	return false
}

// EngineRecord is one entry of the engine specification catalogue. The
// record is authoritative; the composite catalogue key is derived from it.
type EngineRecord struct {
	Capacity        string       `json:"capacity" yaml:"capacity"` // litres, e.g. "2.0"
	Cylinders       int          `json:"cylinders" yaml:"cylinders"`
	Aspiration      string       `json:"aspiration,omitempty" yaml:"aspiration,omitempty"`
	Bore            string       `json:"bore,omitempty" yaml:"bore,omitempty"`
	FuelType        FuelType     `json:"fuelType" yaml:"fuelType"`
	CompatibleECUs  StringSet    `json:"compatibleEcus" yaml:"compatibleEcus"`
	CompatibleTools StringSet    `json:"compatibleTools" yaml:"compatibleTools"`
	Stock           Performance  `json:"stock" yaml:"stock"`
	Stage1          Performance  `json:"stage1" yaml:"stage1"`
	Stage2          *Performance `json:"stage2,omitempty" yaml:"stage2,omitempty"`
	Stage3          *Performance `json:"stage3,omitempty" yaml:"stage3,omitempty"`
}

// FuelType classifies the fuel an engine runs on.
type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
	FuelUnknown  FuelType = ""
)

// ParseFuelType maps vendor spellings ("Gasoline", "HEAVY OIL", "petrol/electric")
// onto a FuelType.
func ParseFuelType(s string) FuelType {
	switch normalizeFuel(s) {
	case "petrol", "gasoline", "benzin", "essence", "unleaded", "gas":
		return FuelPetrol
	case "diesel", "heavy oil", "gasoil", "gas oil":
		return FuelDiesel
	case "hybrid", "petrol/electric", "hybrid electric", "phev", "mhev", "diesel/electric":
		return FuelHybrid
	case "electric", "electricity", "ev", "bev":
		return FuelElectric
	}
	return FuelUnknown
}

func normalizeFuel(s string) string {
	b := make([]byte, 0, len(s))
	space := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c == ' ' || c == '\t' || c == '_' {
			if len(b) > 0 {
				space = true
			}
			continue
		}
		if space {
			b = append(b, ' ')
			space = false
		}
		b = append(b, c)
	}
	return string(b)
}

// PartialVehicleDescriptor is a loosely structured vehicle record, typically
// returned by a registration-plate lookup. Every field is optional: empty
// strings and nil pointers mean "not supplied".
type PartialVehicleDescriptor struct {
	Make             string   `json:"make,omitempty"`
	Model            string   `json:"model,omitempty"`
	Year             *int     `json:"year,omitempty"`
	EngineLabel      string   `json:"engineLabel,omitempty"`
	Engine           string   `json:"engine,omitempty"`
	EngineCapacityCC *int     `json:"engineCapacity,omitempty"`
	FuelType         string   `json:"fuelType,omitempty"`
	PowerBHP         *float64 `json:"powerBhp,omitempty"`
	TorqueNm         *float64 `json:"torqueNm,omitempty"`
	VIN              string   `json:"vin,omitempty"`
	Registration     string   `json:"registration,omitempty"`
}

// HasYear reports whether a model year was supplied.
func (d PartialVehicleDescriptor) HasYear() bool { return d.Year != nil }

// RawEngineStrings returns the non-empty free-text engine fields.
func (d PartialVehicleDescriptor) RawEngineStrings() []string {
	var out []string
	for _, s := range []string{d.EngineLabel, d.Engine} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IntPtr and FloatPtr are helpers for building descriptors in code.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

// MatchFlags records which fields of a selection were resolved. Engine is
// set only when an EngineRecord was found; a picked dropdown option alone
// does not count.
type MatchFlags struct {
	Manufacturer bool `json:"manufacturer"`
	Model        bool `json:"model"`
	Year         bool `json:"year"`
	Engine       bool `json:"engine"`
}

// ResolvedVehicleSelection is the per-call result of a resolution. It is
// never persisted; callers use it to pre-fill a form or fetch an EngineRecord.
type ResolvedVehicleSelection struct {
	ManufacturerKey string        `json:"manufacturerKey,omitempty"`
	ModelKey        string        `json:"modelKey,omitempty"`
	YearRange       string        `json:"yearRange,omitempty"`
	EngineOption    string        `json:"engineOption,omitempty"`
	EngineKey       string        `json:"engineKey,omitempty"`
	EngineTier      string        `json:"engineTier,omitempty"`
	Matched         MatchFlags    `json:"matched"`
	Record          *EngineRecord `json:"record,omitempty"`
}

// Complete reports whether every stage of the resolution matched.
func (s ResolvedVehicleSelection) Complete() bool {
	m := s.Matched
	return m.Manufacturer && m.Model && m.Year && m.Engine
}
