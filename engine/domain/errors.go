package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. None of them is returned for "no match": absence of a
// match is an ordinary (value, false) return throughout the resolver.
var (
	ErrNilCatalogue         = errors.New("nil catalogue")
	ErrInvalidCatalogue     = errors.New("invalid catalogue")
	ErrCatalogueUnavailable = errors.New("catalogue unavailable")
	ErrInconsistentEngine   = errors.New("engine key disagrees with record")
	ErrInvalidDescriptor    = errors.New("invalid descriptor")
	ErrInvalidVIN           = errors.New("invalid VIN")
	ErrInvalidPlate         = errors.New("invalid registration plate")
	ErrYearOutOfRange       = errors.New("year out of range")
	ErrNegativeValue        = errors.New("negative value")
	ErrLookupFailed         = errors.New("vehicle lookup failed")
	ErrVehicleNotFound      = errors.New("vehicle not found")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
