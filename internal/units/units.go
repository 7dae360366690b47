// Package units provides shared constants and validation for current speed units
// and the angle normalization rules used for ADCP orientation data.
package units

import "strings"

// Unit constants
const (
	MPS   = "mps"
	CMPS  = "cmps"
	KPH   = "kph"
	KNOTS = "knots"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, CMPS, KPH, KNOTS}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Ensemble velocities are always stored in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case CMPS:
		return speedMPS * 100.0
	case KPH:
		return speedMPS * 3.6
	case KNOTS:
		return speedMPS * 1.9438444924406
	default:
		return speedMPS
	}
}

// Label returns a short axis label for the unit.
func Label(unit string) string {
	switch unit {
	case CMPS:
		return "cm/s"
	case KPH:
		return "km/h"
	case KNOTS:
		return "kn"
	default:
		return "m/s"
	}
}
