package units

import "math"

// NormalizeHeading wraps a heading in degrees into [0, 360).
func NormalizeHeading(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0.0 {
		deg += 360.0
	}
	// A tiny negative angle rounds up to exactly 360.
	if deg >= 360.0 {
		deg = 0.0
	}
	return deg
}

// NormalizePitch wraps a pitch in degrees into (-90, 90].
// Pitch comes from an inclinometer with a ±90° range, so it wraps every 180°.
func NormalizePitch(deg float64) float64 {
	deg = math.Mod(deg, 180.0)
	if deg > 90.0 {
		deg -= 180.0
	}
	if deg <= -90.0 {
		deg += 180.0
	}
	return deg
}

// NormalizeRoll wraps a roll in degrees into (-180, 180].
func NormalizeRoll(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg > 180.0 {
		deg -= 360.0
	}
	if deg <= -180.0 {
		deg += 360.0
	}
	return deg
}
