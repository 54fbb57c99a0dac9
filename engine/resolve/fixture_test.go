package resolve

import (
	"strings"
	"testing"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/engine/domain"
)

const fixtureVehicles = `{
  "manufacturers": {
    "Volkswagen": ["Golf"],
    "DS": ["DS3 Crossback"],
    "Peugeot": ["308"]
  },
  "models": {
    "Volkswagen": {
      "Golf": {
        "2013-2016": ["2.0 TDI - 150hp", "2.0 TDI GTD - 184hp"],
        "2017-2020": ["1.5 TSI - 150hp", "2.0 TDI - 150hp", "2.0 TSI GTI - 245hp"]
      }
    },
    "DS": {"DS3 Crossback": {"2019+": ["1.5 BlueHDi - 130hp"]}},
    "Peugeot": {"308": {"2013-2021": ["1.6 HDi - 110hp"]}}
  }
}`

func fixtureSnapshot(t *testing.T, engineKeys ...string) *catalog.Snapshot {
	t.Helper()
	v, err := catalog.DecodeVehicles(strings.NewReader(fixtureVehicles), catalog.FormatJSON)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if len(engineKeys) == 0 {
		engineKeys = []string{"2.0-tdi-150hp", "2.0-tdi-184hp", "1.5-tsi-150hp", "2.0-tsi-245hp", "1.5-bluehdi-130hp", "1.6-tdi-110hp"}
	}
	snap, err := catalog.NewSnapshot(v, engineSet(engineKeys...), "fixture")
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

// engineSet builds an engine catalogue whose records carry their own key in
// Aspiration, so tests can tell records apart.
func engineSet(keys ...string) catalog.EngineCatalogue {
	out := make(catalog.EngineCatalogue, len(keys))
	for _, k := range keys {
		out[k] = domain.EngineRecord{Aspiration: k}
	}
	return out
}

func fixtureResolver(t *testing.T, opts ...ResolverOption) *Resolver {
	t.Helper()
	return NewResolver(catalog.NewStore(fixtureSnapshot(t)), opts...)
}
