package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/engine/keys"
)

// Format is a catalogue document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatFromPath picks the format from a file extension; anything that is
// not .yaml/.yml is JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// FormatFromContentType picks the format from an HTTP Content-Type header.
func FormatFromContentType(ct string) Format {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return FormatJSON
	}
	if strings.Contains(mt, "yaml") {
		return FormatYAML
	}
	return FormatJSON
}

// Version fingerprints a catalogue document.
func Version(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

func decodeInto(data []byte, f Format, v any) error {
	if f == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	return dec.Decode(v)
}

// DecodeVehicles reads a vehicle catalogue document and canonicalises its
// keys: manufacturer and model keys are normalized, range and engine strings
// trimmed. Empty engine lists and keys that collide after normalization are
// rejected with ErrInvalidCatalogue.
func DecodeVehicles(r io.Reader, f Format) (*VehicleCatalogue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read vehicles: %w", err)
	}
	var raw VehicleCatalogue
	if err := decodeInto(data, f, &raw); err != nil {
		return nil, fmt.Errorf("catalog: decode vehicles (%s): %w: %v", f, domain.ErrInvalidCatalogue, err)
	}
	return canonicalVehicles(raw)
}

func canonicalVehicles(raw VehicleCatalogue) (*VehicleCatalogue, error) {
	out := &VehicleCatalogue{
		Manufacturers: make(map[string][]string, len(raw.Manufacturers)),
		Models:        make(map[string]map[string]YearEngines, len(raw.Models)),
	}
	for name, models := range raw.Manufacturers {
		key := keys.Normalize(name)
		if key == "" {
			return nil, fmt.Errorf("catalog: %w: empty manufacturer key %q", domain.ErrInvalidCatalogue, name)
		}
		if _, dup := out.Manufacturers[key]; dup {
			return nil, fmt.Errorf("catalog: %w: duplicate manufacturer %q", domain.ErrInvalidCatalogue, key)
		}
		out.Manufacturers[key] = models
	}
	for name, models := range raw.Models {
		mkey := keys.Normalize(name)
		if _, dup := out.Models[mkey]; dup {
			return nil, fmt.Errorf("catalog: %w: duplicate manufacturer %q", domain.ErrInvalidCatalogue, mkey)
		}
		table := make(map[string]YearEngines, len(models))
		for model, years := range models {
			key := keys.Normalize(model)
			if key == "" {
				return nil, fmt.Errorf("catalog: %w: empty model key under %q", domain.ErrInvalidCatalogue, mkey)
			}
			if _, dup := table[key]; dup {
				return nil, fmt.Errorf("catalog: %w: duplicate model %s/%s", domain.ErrInvalidCatalogue, mkey, key)
			}
			clean := make(YearEngines, 0, len(years))
			for _, ye := range years {
				engines := make([]string, 0, len(ye.Engines))
				for _, e := range ye.Engines {
					if e = strings.TrimSpace(e); e != "" {
						engines = append(engines, e)
					}
				}
				if len(engines) == 0 {
					return nil, fmt.Errorf("catalog: %w: %s/%s %q has no engines", domain.ErrInvalidCatalogue, mkey, key, ye.Range)
				}
				clean = append(clean, YearEntry{Range: strings.TrimSpace(ye.Range), Engines: engines})
			}
			table[key] = clean
		}
		out.Models[mkey] = table
	}
	return out, nil
}

// DecodeEngines reads an engine specification document. Keys are
// normalized and the ECU/tool lists deduplicated.
func DecodeEngines(r io.Reader, f Format) (EngineCatalogue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read engines: %w", err)
	}
	var raw map[string]domain.EngineRecord
	if err := decodeInto(data, f, &raw); err != nil {
		return nil, fmt.Errorf("catalog: decode engines (%s): %w: %v", f, domain.ErrInvalidCatalogue, err)
	}
	out := make(EngineCatalogue, len(raw))
	for k, rec := range raw {
		key := keys.Normalize(k)
		if key == "" {
			return nil, fmt.Errorf("catalog: %w: empty engine key", domain.ErrInvalidCatalogue)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("catalog: %w: duplicate engine %q", domain.ErrInvalidCatalogue, key)
		}
		rec.FuelType = domain.ParseFuelType(string(rec.FuelType))
		rec.CompatibleECUs = domain.NewStringSet(rec.CompatibleECUs...)
		rec.CompatibleTools = domain.NewStringSet(rec.CompatibleTools...)
		out[key] = rec
	}
	return out, nil
}
