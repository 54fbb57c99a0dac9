package resolve

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
)

func snapWithEngines(t *testing.T, keys ...string) *catalog.Snapshot {
	t.Helper()
	snap, err := catalog.NewSnapshot(&catalog.VehicleCatalogue{}, engineSet(keys...), "t")
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestResolveEngine_Tiers(t *testing.T) {
	tests := []struct {
		name       string
		engines    []string
		descriptor string
		wantKey    string
		wantTier   Tier
	}{
		{"exact display string", []string{"2.0-tdi-150hp"}, "2.0 TDI - 150hp", "2.0-tdi-150hp", TierExact},
		{"exact wins over variant", []string{"2.0-tdi-gti-150hp", "2.0-tdi-150hp"}, "2.0-tdi-gti-150hp", "2.0-tdi-gti-150hp", TierExact},
		{"variant stripped", []string{"2.0-tdi-150hp"}, "2.0-tdi-gti-150hp", "2.0-tdi-150hp", TierVariant},
		{"variant beats tolerance", []string{"2.0-tdi-149hp", "2.0-tdi-150hp"}, "2.0-tdi-gti-150hp", "2.0-tdi-150hp", TierVariant},
		{"multi-token variant", []string{"2.0-tsi-150hp"}, "2.0 TSI R-Line - 150hp", "2.0-tsi-150hp", TierVariant},
		{"several variants", []string{"2.0-tdi-190hp"}, "2.0 TDI S-Line Quattro - 190hp", "2.0-tdi-190hp", TierVariant},
		{"synonym class", []string{"1.6-tdi-110hp", "1.6-cdi-110hp"}, "1.6-hdi-110hp", "1.6-tdi-110hp", TierSynonym},
		{"synonym after variant", []string{"2.0-tfsi-190hp"}, "2.0 TSI Quattro - 190hp", "2.0-tfsi-190hp", TierSynonym},
		{"bare type", []string{"1.5-tsi-150hp"}, "1.5-tsi-evo-150hp", "1.5-tsi-150hp", TierSynonym},
		{"generic literal", []string{"2.0-diesel-150hp"}, "2.0-td4-150hp", "2.0-diesel-150hp", TierSynonym},
		{"capacity and power", []string{"2.0-d-150hp"}, "2.0-xyz-150hp", "2.0-d-150hp", TierCapacityPower},
		{"capacity canonicalised", []string{"2.0-d-150hp"}, "2-xyz-150hp", "2.0-d-150hp", TierCapacityPower},
		{"tolerance tie prefers lower", []string{"2.0-d-145hp", "2.0-d-155hp"}, "2.0-xyz-150hp", "2.0-d-145hp", TierTolerance},
		{"tolerance above", []string{"2.0-d-153hp", "2.0-d-140hp"}, "2.0-xyz-150hp", "2.0-d-153hp", TierTolerance},
		{"tolerance edge", []string{"2.0-d-160hp"}, "2.0-xyz-150hp", "2.0-d-160hp", TierTolerance},
		{"closest", []string{"2.0-d-120hp", "2.0-d-175hp"}, "2.0-xyz-150hp", "2.0-d-175hp", TierClosest},
		{"closest tie prefers lower", []string{"2.0-d-130hp", "2.0-d-170hp"}, "2.0-xyz-150hp", "2.0-d-130hp", TierClosest},
		{"closest edge", []string{"2.0-d-180hp"}, "2.0-xyz-150hp", "2.0-d-180hp", TierClosest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := ResolveEngine(snapWithEngines(t, tt.engines...), tt.descriptor)
			if !ok {
				t.Fatalf("ResolveEngine(%q) not found", tt.descriptor)
			}
			if m.Key != tt.wantKey || m.Tier != tt.wantTier {
				t.Errorf("ResolveEngine(%q) = %s (%s), want %s (%s)", tt.descriptor, m.Key, m.Tier, tt.wantKey, tt.wantTier)
			}
			if m.Record.Aspiration != m.Key {
				t.Errorf("record does not belong to key %s: %+v", m.Key, m.Record)
			}
		})
	}
}

func TestResolveEngine_NotFound(t *testing.T) {
	tests := []struct {
		name       string
		engines    []string
		descriptor string
	}{
		{"empty", []string{"2.0-tdi-150hp"}, ""},
		{"unparseable", []string{"2.0-tdi-150hp"}, "golf-gti"},
		{"type only", []string{"2.0-tdi-150hp"}, "tdi"},
		{"no power", []string{"2.0-tdi-150hp"}, "2.0-tdi"},
		{"other capacity", []string{"2.0-tdi-150hp"}, "1.9-tdi-150hp"},
		{"beyond closest limit", []string{"2.0-d-119hp", "2.0-d-181hp"}, "2.0-xyz-150hp"},
		{"empty catalogue", nil, "2.0-tdi-150hp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if m, ok := ResolveEngine(snapWithEngines(t, tt.engines...), tt.descriptor); ok {
				t.Errorf("ResolveEngine(%q) = %+v, want not found", tt.descriptor, m)
			}
		})
	}
}

func TestResolveEngine_ClosestNeverExceedsLimit(t *testing.T) {
	snap := snapWithEngines(t, "2.0-d-100hp", "2.0-d-200hp", "2.0-d-260hp")
	for power := 60; power <= 320; power++ {
		m, ok := ResolveEngine(snap, keyFor(power))
		if !ok {
			continue
		}
		k := m.Key
		var got int
		switch k {
		case "2.0-d-100hp":
			got = 100
		case "2.0-d-200hp":
			got = 200
		case "2.0-d-260hp":
			got = 260
		}
		if d := got - power; d > MaxClosestDelta || d < -MaxClosestDelta {
			t.Errorf("power %d resolved to %s, %d hp away", power, k, d)
		}
	}
}

func keyFor(power int) string {
	return "2.0-xyz-" + strconv.Itoa(power) + "hp"
}

func TestResolveEngine_Deterministic(t *testing.T) {
	snap := snapWithEngines(t, "2.0-b-145hp", "2.0-a-145hp", "2.0-c-155hp")
	first, _ := ResolveEngine(snap, "2.0-xyz-150hp")
	for i := 0; i < 50; i++ {
		m, _ := ResolveEngine(snap, "2.0-xyz-150hp")
		if m.Key != first.Key {
			t.Fatalf("non-deterministic: %s then %s", first.Key, m.Key)
		}
	}
	if first.Key != "2.0-a-145hp" {
		t.Errorf("tie should go to key order, got %s", first.Key)
	}
}

func TestResolveEngine_BundledKeysResolveToThemselves(t *testing.T) {
	snap, err := catalog.Bundled()
	if err != nil {
		t.Fatal(err)
	}
	for key := range snap.Engines {
		m, ok := ResolveEngine(snap, key)
		if !ok || m.Key != key || m.Tier != TierExact {
			t.Errorf("ResolveEngine(%q) = %s (%s), %v", key, m.Key, m.Tier, ok)
		}
	}
}

func TestResolveEngine_BundledOptions(t *testing.T) {
	snap, err := catalog.Bundled()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		option   string
		wantKey  string
		wantTier Tier
	}{
		{"2.0 TDI - 150hp", "2.0-tdi-150hp", TierExact},
		{"2.0 TSI GTI - 245hp", "2.0-tsi-245hp", TierVariant},
		{"2.0 TSI R 4Motion - 300hp", "2.0-tsi-300hp", TierVariant},
		{"2.0 d M Sport - 190hp", "2.0-d-190hp", TierVariant},
		{"1.6 HDi - 110hp", "1.6-tdi-110hp", TierSynonym},
		{"1.4 TFSI - 150hp", "1.4-tsi-150hp", TierSynonym},
		{"3.0 TDI Quattro - 286hp", "3.0-tdi-272hp", TierClosest},
	}
	for _, tt := range tests {
		m, ok := ResolveEngine(snap, tt.option)
		if !ok || m.Key != tt.wantKey || m.Tier != tt.wantTier {
			t.Errorf("ResolveEngine(%q) = %s (%s), %v; want %s (%s)", tt.option, m.Key, m.Tier, ok, tt.wantKey, tt.wantTier)
		}
	}
	if _, ok := ResolveEngine(snap, "118d - 150hp"); ok {
		t.Errorf("BMW shorthand without capacity should not resolve")
	}
}

func TestStripVariants(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2.0-tdi-gti-150hp", "2.0-tdi-150hp"},
		{"2.0-tsi-r-line-150hp", "2.0-tsi-150hp"},
		{"2.0-tdi-gti-gti-quattro-150hp", "2.0-tdi-150hp"},
		{"2.0-tdi-m-sport-xdrive-190hp", "2.0-tdi-190hp"},
		{"gti-2.0-tdi", "gti-2.0-tdi"},
		{"2.0-tdi-gti", "2.0-tdi-gti"},
		{"2.0-tdi-150hp", "2.0-tdi-150hp"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripVariants(tt.in); got != tt.want {
			t.Errorf("stripVariants(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if len(variantTokens) < 35 {
		t.Errorf("variant vocabulary has %d tokens", len(variantTokens))
	}
}

func TestSynonymTypes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"hdi", []string{"tdi", "dci", "crdi", "cdi", "tsi", "tfsi", "diesel", "petrol"}},
		{"tsi-evo", []string{"tsi", "tfsi", "gdi", "tdi", "diesel", "petrol"}},
		{"skyactiv-d", []string{"diesel", "skyactiv", "tdi", "tsi", "tfsi", "petrol"}},
		{"xyz", []string{"tdi", "tsi", "tfsi", "diesel", "petrol"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, synonymTypes(tt.in)); diff != "" {
			t.Errorf("synonymTypes(%q) (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestTierText(t *testing.T) {
	for tier := TierNone; tier <= TierClosest; tier++ {
		b, err := tier.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Tier
		if err := back.UnmarshalText(b); err != nil || back != tier {
			t.Errorf("round trip %s: got %s, %v", tier, back, err)
		}
	}
	var bad Tier
	if err := bad.UnmarshalText([]byte("fuzzy")); err == nil {
		t.Error("expected error for unknown tier")
	}
	if Tier(99).String() != "unknown" {
		t.Errorf("out of range tier = %q", Tier(99).String())
	}
}
