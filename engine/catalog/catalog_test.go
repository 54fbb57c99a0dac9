package catalog

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WessleyAI/wessley-remap/engine/domain"
)

const vehiclesJSON = `{
  "manufacturers": {"Volkswagen": ["Golf", "Polo"], "Citroën": ["C5 Aircross"]},
  "models": {
    "Volkswagen": {
      "Golf": {
        "2020+": ["1.5 TSI - 150hp"],
        "2013-2016": ["2.0 TDI - 150hp", " 1.6 TDI - 110hp "],
        "2017-2020": ["2.0 TDI - 150hp"]
      }
    },
    "Citroën": {"C5 Aircross": {"2018+": ["1.5 BlueHDi - 130hp"]}}
  }
}`

const vehiclesYAML = `
manufacturers:
  Volkswagen: [Golf]
models:
  Volkswagen:
    Golf:
      "2020+": ["1.5 TSI - 150hp"]
      "2013-2016": ["2.0 TDI - 150hp"]
      "2017-2020": ["2.0 TDI - 150hp"]
`

func TestDecodeVehicles_JSONKeepsOrder(t *testing.T) {
	v, err := DecodeVehicles(strings.NewReader(vehiclesJSON), FormatJSON)
	if err != nil {
		t.Fatalf("DecodeVehicles: %v", err)
	}
	golf := v.Models["volkswagen"]["golf"]
	if diff := cmp.Diff([]string{"2020+", "2013-2016", "2017-2020"}, golf.Ranges()); diff != "" {
		t.Errorf("range order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2.0 TDI - 150hp", "1.6 TDI - 110hp"}, golf.Engines("2013-2016")); diff != "" {
		t.Errorf("engines mismatch (-want +got):\n%s", diff)
	}
	if _, ok := v.Models["citroen"]["c5-aircross"]; !ok {
		t.Errorf("expected accent-folded keys, got %v", v.Models)
	}
	if got := v.Manufacturers["citroen"]; len(got) != 1 || got[0] != "C5 Aircross" {
		t.Errorf("display names should be kept verbatim, got %v", got)
	}
}

func TestDecodeVehicles_YAMLKeepsOrder(t *testing.T) {
	v, err := DecodeVehicles(strings.NewReader(vehiclesYAML), FormatYAML)
	if err != nil {
		t.Fatalf("DecodeVehicles: %v", err)
	}
	got := v.Models["volkswagen"]["golf"].Ranges()
	if diff := cmp.Diff([]string{"2020+", "2013-2016", "2017-2020"}, got); diff != "" {
		t.Errorf("range order mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeVehicles_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty engines":   `{"models": {"vw": {"golf": {"2013-2016": []}}}}`,
		"blank engines":   `{"models": {"vw": {"golf": {"2013-2016": ["  "]}}}}`,
		"duplicate model": `{"models": {"vw": {"Golf": {"2013": ["a"]}, "golf": {"2014": ["b"]}}}}`,
		"ranges as list":  `{"models": {"vw": {"golf": [["2013", ["a"]]]}}}`,
		"not json":        `{"models":`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeVehicles(strings.NewReader(doc), FormatJSON)
			if !errors.Is(err, domain.ErrInvalidCatalogue) {
				t.Fatalf("expected ErrInvalidCatalogue, got %v", err)
			}
		})
	}
}

func TestYearEngines_MarshalJSONKeepsOrder(t *testing.T) {
	y := YearEngines{{Range: "2020+", Engines: []string{"a"}}, {Range: "2013-2016", Engines: []string{"b", "c"}}}
	b, err := y.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"2020+":["a"],"2013-2016":["b","c"]}`
	if string(b) != want {
		t.Errorf("MarshalJSON = %s, want %s", b, want)
	}
}

func TestDecodeEngines(t *testing.T) {
	doc := `{
	  "2.0 TDI 150hp": {"capacity": "2.0", "cylinders": 4, "fuelType": "Diesel",
	    "compatibleEcus": ["EDC17", "EDC17", "DCM6"], "compatibleTools": ["Kess3"],
	    "stock": {"power": 150, "torque": 340}, "stage1": {"power": 190, "torque": 410}}
	}`
	e, err := DecodeEngines(strings.NewReader(doc), FormatJSON)
	if err != nil {
		t.Fatalf("DecodeEngines: %v", err)
	}
	rec, ok := e["2.0-tdi-150hp"]
	if !ok {
		t.Fatalf("expected normalized key, got %v", e)
	}
	if rec.FuelType != domain.FuelDiesel {
		t.Errorf("FuelType = %q", rec.FuelType)
	}
	if diff := cmp.Diff(domain.StringSet{"DCM6", "EDC17"}, rec.CompatibleECUs); diff != "" {
		t.Errorf("ECUs mismatch (-want +got):\n%s", diff)
	}
	if rec.Stage2 != nil {
		t.Errorf("Stage2 should be absent")
	}
}

func TestBundled(t *testing.T) {
	snap, err := Bundled()
	if err != nil {
		t.Fatalf("Bundled: %v", err)
	}
	if snap.Version != BundledVersion || snap.Version == "" {
		t.Errorf("Version = %q", snap.Version)
	}
	for _, mk := range []string{"volkswagen", "mercedes-benz", "citroen", "ds", "land-rover", "skoda"} {
		if !snap.HasManufacturer(mk) {
			t.Errorf("bundled catalogue missing manufacturer %q", mk)
		}
	}
	if !snap.HasModel("ds", "ds3-crossback") {
		t.Errorf("bundled catalogue missing ds/ds3-crossback, have %v", snap.ModelKeys("ds"))
	}
	golf, _ := snap.YearTable("volkswagen", "golf")
	if diff := cmp.Diff([]string{"2013-2016", "2017-2020", "2020+"}, golf.Ranges()); diff != "" {
		t.Errorf("golf ranges (-want +got):\n%s", diff)
	}
	if errs := CheckConsistency(snap.Engines); len(errs) != 0 {
		t.Errorf("bundled engines inconsistent: %v", errs)
	}
	if len(snap.EngineKeys()) != len(snap.Engines) {
		t.Errorf("every bundled engine key should parse: %d of %d", len(snap.EngineKeys()), len(snap.Engines))
	}
}

func TestCheckConsistency(t *testing.T) {
	engines := EngineCatalogue{
		"2.0-tdi-150hp": {Capacity: "2.0", FuelType: domain.FuelDiesel},
		"2-tdi-140hp":   {Capacity: "2.0", FuelType: domain.FuelDiesel},
		"1.6-tdi-110hp": {Capacity: "1.9", FuelType: domain.FuelDiesel},
		"1.4-tsi-150hp": {Capacity: "1.4", FuelType: domain.FuelDiesel},
		"v8-special":    {Capacity: "4.0"},
		"1.8-turbo-1hp": {Capacity: "1.8", FuelType: domain.FuelPetrol},
	}
	errs := CheckConsistency(engines)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	for _, err := range errs {
		if !errors.Is(err, domain.ErrInconsistentEngine) {
			t.Errorf("error %v does not wrap ErrInconsistentEngine", err)
		}
	}
	if !strings.Contains(errs[0].Error(), "1.4-tsi-150hp") || !strings.Contains(errs[2].Error(), "v8-special") {
		t.Errorf("errors not sorted by key: %v", errs)
	}
}

func TestSnapshot_EngineIndex(t *testing.T) {
	snap, err := NewSnapshot(&VehicleCatalogue{}, EngineCatalogue{
		"2.0-tsi-245hp": {}, "2.0-tdi-150hp": {}, "2-tfsi-150hp": {}, "1.6-tdi-110hp": {}, "junk": {},
	}, "v1")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, k := range snap.EnginesWithCapacity("2.0") {
		got = append(got, k.Raw)
	}
	if diff := cmp.Diff([]string{"2-tfsi-150hp", "2.0-tdi-150hp", "2.0-tsi-245hp"}, got); diff != "" {
		t.Errorf("capacity index (-want +got):\n%s", diff)
	}
	if len(snap.EngineKeys()) != 4 {
		t.Errorf("EngineKeys = %v", snap.EngineKeys())
	}
}

func TestNewSnapshot_Nil(t *testing.T) {
	if _, err := NewSnapshot(nil, EngineCatalogue{}, ""); !errors.Is(err, domain.ErrNilCatalogue) {
		t.Errorf("expected ErrNilCatalogue, got %v", err)
	}
}

func TestNewStore_NilPanics(t *testing.T) {
	defer func() {
		r := recover()
		if err, ok := r.(error); !ok || !errors.Is(err, domain.ErrNilCatalogue) {
			t.Fatalf("expected panic with ErrNilCatalogue, got %v", r)
		}
	}()
	NewStore(nil)
}

func TestStore_SwapVehiclesKeepsEngines(t *testing.T) {
	engines := EngineCatalogue{"2.0-tdi-150hp": {Capacity: "2.0"}}
	first, _ := NewSnapshot(&VehicleCatalogue{}, engines, "v1")
	s := NewStore(first)

	next := &VehicleCatalogue{Models: map[string]map[string]YearEngines{"vw": {}}}
	snap, err := s.SwapVehicles(next, "v2")
	if err != nil {
		t.Fatal(err)
	}
	if s.Load() != snap || snap.Version != "v2" {
		t.Fatalf("store not updated")
	}
	if _, ok := snap.Engine("2.0-tdi-150hp"); !ok {
		t.Errorf("engines lost on vehicle swap")
	}
	if len(snap.EnginesWithCapacity("2.0")) != 1 {
		t.Errorf("engine index lost on vehicle swap")
	}
	if first.Version != "v1" {
		t.Errorf("previous snapshot mutated")
	}
}

func TestStore_ConcurrentReadersDuringSwap(t *testing.T) {
	first, _ := NewSnapshot(&VehicleCatalogue{}, EngineCatalogue{}, "v0")
	s := NewStore(first)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if s.Load() == nil {
					t.Error("nil snapshot observed")
					return
				}
			}
		}()
	}
	for i := 0; i < 100; i++ {
		if _, err := s.SwapVehicles(&VehicleCatalogue{}, "v"); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
}
