// Package units provides shared constants and conversions for range units.
package units

import "math"

// Unit constants
const (
	Metres      = "m"
	Centimetres = "cm"
	Millimetres = "mm"
	Feet        = "ft"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Metres, Centimetres, Millimetres, Feet}

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
	return "m, cm, mm, ft"
}

// MillimetresToMetres converts an integer sensor distance to metres.
func MillimetresToMetres(mm int) float64 {
	return float64(mm) / 1000.0
}

// DegreesToRadians converts an integer sensor angle to radians. Any integer is
// accepted; values outside [0, 360) wrap through the trig functions.
func DegreesToRadians(deg int) float64 {
	return float64(deg) * math.Pi / 180.0
}

// ConvertLength converts a length from metres to the target units.
// Points are stored in metres.
func ConvertLength(metres float64, targetUnits string) float64 {
	switch targetUnits {
	case Metres:
		return metres
	case Centimetres:
		return metres * 100
	case Millimetres:
		return metres * 1000
	case Feet:
		return metres * 3.280839895
	default:
		return metres
	}
}
