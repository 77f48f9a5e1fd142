package frame

import (
	"fmt"

	"github.com/banshee-data/flightpath/internal/units"
)

// Position is a geographic position. Longitude and latitude are in radians,
// altitude in metres above the reference sphere.
type Position struct {
	Longitude float64
	Latitude  float64
	Altitude  float64
}

func (p Position) String() string {
	return fmt.Sprintf("Longitude %.6f deg Latitude %.6f deg Altitude %.2f m",
		units.RadToDeg(p.Longitude), units.RadToDeg(p.Latitude), p.Altitude)
}

// Attitude is an orientation as heading (yaw), pitch and roll in radians.
type Attitude struct {
	Heading float64
	Pitch   float64
	Roll    float64
}

func (a Attitude) String() string {
	return fmt.Sprintf("Heading %.2f deg, Pitch %.2f deg, Roll %.2f deg",
		units.RadToDeg(a.Heading), units.RadToDeg(a.Pitch), units.RadToDeg(a.Roll))
}
