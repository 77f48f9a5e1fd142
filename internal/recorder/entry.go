package recorder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/flightpath/internal/frame"
	"github.com/banshee-data/flightpath/internal/geom"
	"github.com/banshee-data/flightpath/internal/units"
)

// Columns is the number of fields on a recorder line.
const Columns = 16

// lineFormat matches the column widths of the simulator's datalogger.
const lineFormat = "%7.2f %14.9f %13.9f %7.1f %5.1f %5.1f %6.1f %6.1f %6.1f %6.1f %9.3f %9.3f %9.3f %9.5f %9.5f %9.5f\n"

// Entry is one sample of the flight data recorder in SI units. Angles are in
// radians and body rates in rad/s; the file stores degrees.
type Entry struct {
	// Seconds since simulator start.
	Time float64

	Longitude float64
	Latitude  float64
	// Metres above sea level.
	Altitude float64

	TrueHeading float64
	Pitch       float64
	Roll        float64

	// Body-fixed velocity, rates and acceleration.
	VX, VY, VZ             float64
	OmegaX, OmegaY, OmegaZ float64
	AX, AY, AZ             float64
}

// ParseEntry parses one whitespace separated recorder line.
func ParseEntry(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != Columns {
		return Entry{}, fmt.Errorf("expected %d columns, got %d", Columns, len(fields))
	}

	var v [Columns]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		v[i] = x
	}

	return Entry{
		Time:        v[0],
		Longitude:   units.DegToRad(v[1]),
		Latitude:    units.DegToRad(v[2]),
		Altitude:    v[3],
		TrueHeading: units.DegToRad(v[4]),
		Pitch:       units.DegToRad(v[5]),
		Roll:        units.DegToRad(v[6]),
		VX:          v[7],
		VY:          v[8],
		VZ:          v[9],
		OmegaX:      units.DegToRad(v[10]),
		OmegaY:      units.DegToRad(v[11]),
		OmegaZ:      units.DegToRad(v[12]),
		AX:          v[13],
		AY:          v[14],
		AZ:          v[15],
	}, nil
}

// Format renders e as a recorder line, including the trailing newline.
func (e Entry) Format() string {
	return fmt.Sprintf(lineFormat,
		e.Time,
		units.RadToDeg(e.Longitude),
		units.RadToDeg(e.Latitude),
		e.Altitude,
		units.RadToDeg(e.TrueHeading),
		units.RadToDeg(e.Pitch),
		units.RadToDeg(e.Roll),
		e.VX, e.VY, e.VZ,
		units.RadToDeg(e.OmegaX),
		units.RadToDeg(e.OmegaY),
		units.RadToDeg(e.OmegaZ),
		e.AX, e.AY, e.AZ,
	)
}

func (e Entry) Position() frame.Position {
	return frame.Position{Longitude: e.Longitude, Latitude: e.Latitude, Altitude: e.Altitude}
}

func (e Entry) Attitude() frame.Attitude {
	return frame.Attitude{Heading: e.TrueHeading, Pitch: e.Pitch, Roll: e.Roll}
}

func (e Entry) Velocity() geom.Vec3     { return geom.Vec3{X: e.VX, Y: e.VY, Z: e.VZ} }
func (e Entry) Rates() geom.Vec3        { return geom.Vec3{X: e.OmegaX, Y: e.OmegaY, Z: e.OmegaZ} }
func (e Entry) Acceleration() geom.Vec3 { return geom.Vec3{X: e.AX, Y: e.AY, Z: e.AZ} }
