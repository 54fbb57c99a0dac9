package lookup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/WessleyAI/wessley-remap/engine/domain"
)

// apiRecord is the plate API's vehicle record. Providers disagree on
// whether numbers are JSON numbers or strings ("2018", "1968cc", "148 bhp"),
// so numeric fields go through looseNumber.
type apiRecord struct {
	Make           string      `json:"make"`
	Manufacturer   string      `json:"manufacturer"`
	Model          string      `json:"model"`
	Year           looseNumber `json:"year"`
	YearOfManuf    looseNumber `json:"yearOfManufacture"`
	EngineLabel    string      `json:"engineLabel"`
	Engine         string      `json:"engine"`
	EngineCapacity looseNumber `json:"engineCapacity"`
	FuelType       string      `json:"fuelType"`
	PowerBHP       looseNumber `json:"powerBhp"`
	TorqueNm       looseNumber `json:"torqueNm"`
	VIN            string      `json:"vin"`
}

// looseNumber decodes from a JSON number, a numeric string with optional
// unit suffix, null or "". Absent values leave set false.
type looseNumber struct {
	val float64
	set bool
}

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) && r != '.' && r != '-' })
		if end >= 0 {
			s = s[:end]
		}
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil // unparseable strings count as absent
		}
		n.val, n.set = v, true
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("lookup: number %s: %w", b, err)
	}
	n.val, n.set = v, true
	return nil
}

func (n looseNumber) intPtr() *int {
	if !n.set {
		return nil
	}
	return domain.IntPtr(int(n.val + 0.5))
}

func (n looseNumber) floatPtr() *float64 {
	if !n.set {
		return nil
	}
	return domain.FloatPtr(n.val)
}

// decodeRecord decodes a plate API body. The record may be the top-level
// object or wrapped in "data" or "vehicle".
func decodeRecord(body []byte) (domain.PartialVehicleDescriptor, error) {
	var env struct {
		Data    json.RawMessage `json:"data"`
		Vehicle json.RawMessage `json:"vehicle"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.PartialVehicleDescriptor{}, fmt.Errorf("lookup: decode: %w", err)
	}
	switch {
	case len(env.Data) > 0 && env.Data[0] == '{':
		body = env.Data
	case len(env.Vehicle) > 0 && env.Vehicle[0] == '{':
		body = env.Vehicle
	}

	var rec apiRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return domain.PartialVehicleDescriptor{}, fmt.Errorf("lookup: decode: %w", err)
	}

	d := domain.PartialVehicleDescriptor{
		Make:             strings.TrimSpace(firstNonEmpty(rec.Make, rec.Manufacturer)),
		Model:            strings.TrimSpace(rec.Model),
		Year:             rec.Year.intPtr(),
		EngineLabel:      strings.TrimSpace(rec.EngineLabel),
		Engine:           strings.TrimSpace(rec.Engine),
		EngineCapacityCC: rec.EngineCapacity.intPtr(),
		FuelType:         strings.TrimSpace(rec.FuelType),
		PowerBHP:         rec.PowerBHP.floatPtr(),
		TorqueNm:         rec.TorqueNm.floatPtr(),
		VIN:              strings.ToUpper(strings.TrimSpace(rec.VIN)),
	}
	if d.Year == nil {
		d.Year = rec.YearOfManuf.intPtr()
	}
	// Some providers report litres ("1.6L") where others report cc.
	if c := rec.EngineCapacity; c.set && c.val > 0 && c.val < 20 {
		d.EngineCapacityCC = domain.IntPtr(int(c.val*1000 + 0.5))
	}
	return d, nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
