package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_Bundled(t *testing.T) {
	store, src, err := Open(context.Background(), OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if src != nil {
		t.Errorf("source = %v, want nil", src)
	}
	if got := store.Load().Version; got != BundledVersion {
		t.Errorf("version = %q, want bundled", got)
	}
}

func TestOpen_FileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vehicles.yaml")
	doc := "manufacturers:\n  tesla: [Model 3]\nmodels:\n  tesla:\n    model-3:\n      2019+: [Dual Motor - 351hp]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	store, src, err := Open(context.Background(), OpenOptions{VehiclesFile: path, VehiclesURL: "http://ignored.invalid"})
	if err != nil {
		t.Fatal(err)
	}
	if src == nil || src.Name() != path {
		t.Fatalf("source = %v", src)
	}
	snap := store.Load()
	if !snap.HasModel("tesla", "model-3") || snap.HasManufacturer("volkswagen") {
		t.Error("file catalogue not swapped in")
	}
	if len(snap.Engines) == 0 {
		t.Error("bundled engines dropped")
	}
}

func TestOpen_BadFileKeepsBundled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	store, src, err := Open(context.Background(), OpenOptions{VehiclesFile: path})
	if err != nil {
		t.Fatal(err)
	}
	if src == nil {
		t.Fatal("source should still be returned for later refreshes")
	}
	if store.Load().Version != BundledVersion {
		t.Error("bundled catalogue not kept")
	}
}

func TestOpen_EnginesFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "engines.json")
	if err := os.WriteFile(good, []byte(`{"1.0-tsi-110hp":{"capacity":"1.0","cylinders":3,"fuelType":"petrol","stock":{"power":110,"torque":200},"stage1":{"power":130,"torque":250}}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	store, _, err := Open(context.Background(), OpenOptions{EnginesFile: good})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(store.Load().Engines); n != 1 {
		t.Errorf("engines = %d, want 1", n)
	}

	if _, _, err := Open(context.Background(), OpenOptions{EnginesFile: filepath.Join(dir, "nope.json")}); err == nil {
		t.Errorf("missing engines file err = %v", err)
	}
}
