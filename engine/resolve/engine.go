package resolve

import (
	"fmt"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/engine/keys"
)

// Tier identifies the strategy that matched an engine descriptor. Lower
// tiers are stricter and always win.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierVariant
	TierSynonym
	TierCapacityPower
	TierTolerance
	TierClosest
)

var tierNames = [...]string{"none", "exact", "variant", "synonym", "capacity-power", "tolerance", "closest"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return "unknown"
	}
	return tierNames[t]
}

// MarshalText renders the tier by name.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	for i, n := range tierNames {
		if n == string(b) {
			*t = Tier(i)
			return nil
		}
	}
	return fmt.Errorf("resolve: unknown tier %q", b)
}

const (
	// MaxTolerance is the widest power offset tried by TierTolerance.
	MaxTolerance = 10
	// MaxClosestDelta is the widest power gap TierClosest accepts.
	MaxClosestDelta = 30
)

// EngineMatch is a resolved engine record and how it was found.
type EngineMatch struct {
	Key    string              `json:"key"`
	Tier   Tier                `json:"tier"`
	Record domain.EngineRecord `json:"record"`
}

// ResolveEngine maps an engine descriptor ("2.0 TDI GTI - 150hp" or a
// normalized key) to a catalogue record. Strategies run from strictest to
// loosest and the first hit wins; a descriptor that does not parse as
// <capacity>-<type>-<power>hp stops after variant stripping.
func ResolveEngine(snap *catalog.Snapshot, descriptor string) (EngineMatch, bool) {
	key := keys.Normalize(descriptor)
	if key == "" {
		return EngineMatch{}, false
	}
	if rec, ok := snap.Engine(key); ok {
		return EngineMatch{Key: key, Tier: TierExact, Record: rec}, true
	}

	stripped := stripVariants(key)
	if stripped != key {
		if rec, ok := snap.Engine(stripped); ok {
			return EngineMatch{Key: stripped, Tier: TierVariant, Record: rec}, true
		}
	}

	parsed, ok := keys.ParseEngineKey(stripped)
	if !ok {
		return EngineMatch{}, false
	}

	for _, typ := range synonymTypes(parsed.Type) {
		k := keys.FormatEngineKey(parsed.Capacity, typ, parsed.Power)
		if rec, ok := snap.Engine(k); ok {
			return EngineMatch{Key: k, Tier: TierSynonym, Record: rec}, true
		}
	}

	// Everything below scans keys sharing the capacity, sorted by power
	// then key, so ties resolve the same way on every call.
	same := snap.EnginesWithCapacity(parsed.Capacity)
	if len(same) == 0 {
		return EngineMatch{}, false
	}
	match := func(k keys.EngineKey, t Tier) (EngineMatch, bool) {
		rec, _ := snap.Engine(k.Raw)
		return EngineMatch{Key: k.Raw, Tier: t, Record: rec}, true
	}

	for _, k := range same {
		if k.Power == parsed.Power {
			return match(k, TierCapacityPower)
		}
	}

	for off := 1; off <= MaxTolerance; off++ {
		for _, p := range [2]int{parsed.Power - off, parsed.Power + off} {
			for _, k := range same {
				if k.Power == p {
					return match(k, TierTolerance)
				}
			}
		}
	}

	best, bestDelta := -1, MaxClosestDelta+1
	for i, k := range same {
		d := k.Power - parsed.Power
		if d < 0 {
			d = -d
		}
		// Strict less-than keeps the earlier (lower power) key on ties.
		if d < bestDelta {
			best, bestDelta = i, d
		}
	}
	if best >= 0 {
		return match(same[best], TierClosest)
	}
	return EngineMatch{}, false
}
