// Package units provides angle and length conversions to SI units and the
// display units used when reporting speeds.
package units

import "math"

const (
	Pi    = math.Pi
	TwoPi = 2 * math.Pi
)

const (
	degToRad = Pi / 180.0
	radToDeg = 180.0 / Pi

	metersPerFoot = 0.3048
)

// DegToRad converts an angle in degrees to radians.
func DegToRad(deg float64) float64 { return deg * degToRad }

// RadToDeg converts an angle in radians to degrees.
func RadToDeg(rad float64) float64 { return rad * radToDeg }

// MMToM converts millimetres to metres.
func MMToM(mm float64) float64 { return mm / 1000.0 }

// MToM is a passthrough kept so call sites can state their unit.
func MToM(m float64) float64 { return m }

// KMToM converts kilometres to metres.
func KMToM(km float64) float64 { return km * 1000.0 }

// FtToM converts feet to metres.
func FtToM(ft float64) float64 { return ft * metersPerFoot }

// MToFt converts metres to feet.
func MToFt(m float64) float64 { return m / metersPerFoot }
