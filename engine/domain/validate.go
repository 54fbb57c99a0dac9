package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// VIN format: 17 alphanumeric characters, excluding I, O, Q.
var vinRegex = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// plateRegex accepts the compact (space-free) form of a registration plate.
var plateRegex = regexp.MustCompile(`^[A-Z0-9]{2,8}$`)

// ValidateDescriptor checks the fields of an externally supplied descriptor
// that can be checked without a catalogue. Unknown makes or models are not
// errors here: the resolver treats them as unmatched.
func ValidateDescriptor(d PartialVehicleDescriptor) error {
	if d.Year != nil && (*d.Year < MinModelYear || *d.Year > MaxModelYear) {
		return NewValidationError("year", fmt.Sprintf("%d", *d.Year), ErrYearOutOfRange)
	}

	// VIN (optional but if provided must be valid)
	if d.VIN != "" && !vinRegex.MatchString(strings.ToUpper(d.VIN)) {
		return NewValidationError("vin", d.VIN, ErrInvalidVIN)
	}

	if d.EngineCapacityCC != nil && *d.EngineCapacityCC < 0 {
		return NewValidationError("engineCapacity", fmt.Sprintf("%d", *d.EngineCapacityCC), ErrNegativeValue)
	}
	if d.PowerBHP != nil && *d.PowerBHP < 0 {
		return NewValidationError("powerBhp", fmt.Sprintf("%g", *d.PowerBHP), ErrNegativeValue)
	}
	if d.TorqueNm != nil && *d.TorqueNm < 0 {
		return NewValidationError("torqueNm", fmt.Sprintf("%g", *d.TorqueNm), ErrNegativeValue)
	}
	return nil
}

// NormalizePlate upper-cases a registration plate and drops spaces and
// dashes. It returns ErrInvalidPlate when the result is not 2–8 alphanumerics.
func NormalizePlate(plate string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(plate) {
		if r == ' ' || r == '-' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if !plateRegex.MatchString(out) {
		return "", NewValidationError("plate", plate, ErrInvalidPlate)
	}
	return out, nil
}
