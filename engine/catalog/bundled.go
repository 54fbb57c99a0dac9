package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
)

// Bundled copies of both catalogues so startup never depends on the network.
var (
	//go:embed data/vehicles.json
	bundledVehicles []byte
	//go:embed data/engines.json
	bundledEngines []byte
)

// BundledVersion is the fingerprint of the embedded vehicle catalogue.
var BundledVersion = Version(bundledVehicles)

// BundledVehicles decodes the embedded vehicle catalogue.
func BundledVehicles() (*VehicleCatalogue, error) {
	return DecodeVehicles(bytes.NewReader(bundledVehicles), FormatJSON)
}

// BundledEngines decodes the embedded engine catalogue.
func BundledEngines() (EngineCatalogue, error) {
	return DecodeEngines(bytes.NewReader(bundledEngines), FormatJSON)
}

// Bundled returns a snapshot of the embedded catalogues.
func Bundled() (*Snapshot, error) {
	v, err := BundledVehicles()
	if err != nil {
		return nil, fmt.Errorf("catalog: bundled vehicles: %w", err)
	}
	e, err := BundledEngines()
	if err != nil {
		return nil, fmt.Errorf("catalog: bundled engines: %w", err)
	}
	return NewSnapshot(v, e, BundledVersion)
}
