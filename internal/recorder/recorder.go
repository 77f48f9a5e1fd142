// Package recorder reads and writes flight data recorder files: one sample
// per line, sixteen whitespace separated columns.
package recorder

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/flightpath/internal/check"
	"github.com/banshee-data/flightpath/internal/frame"
	"github.com/banshee-data/flightpath/internal/fsutil"
	"github.com/banshee-data/flightpath/internal/geom"
	"github.com/banshee-data/flightpath/internal/kml"
	"github.com/banshee-data/flightpath/internal/monitoring"
	"github.com/banshee-data/flightpath/internal/units"
)

// Recorder holds the recorded input samples and the reconstructed output.
type Recorder struct {
	fs     fsutil.FileSystem
	input  []Entry
	output []Entry
}

// New returns a Recorder reading and writing through fsys. A nil fsys uses
// the host filesystem.
func New(fsys fsutil.FileSystem) *Recorder {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Recorder{fs: fsys}
}

// ReadFile appends every sample in path to the input data.
func (r *Recorder) ReadFile(path string) error {
	f, err := r.fs.Open(path)
	if err != nil {
		return check.Wrapf(err, "Recorder: Could not open file %s", path)
	}
	defer f.Close()

	if err := r.Read(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Debug("read %d samples from %s", len(r.input), path)
	return nil
}

// Read appends every sample from rd to the input data. Blank lines and
// lines starting with '#' are skipped.
func (r *Recorder) Read(rd io.Reader) error {
	sc := bufio.NewScanner(rd)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := ParseEntry(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		r.input = append(r.input, e)
	}
	return sc.Err()
}

// Append adds samples to the input data.
func (r *Recorder) Append(entries ...Entry) {
	r.input = append(r.input, entries...)
}

// Data returns the recorded input samples.
func (r *Recorder) Data() []Entry { return r.input }

// Output returns the reconstructed samples.
func (r *Recorder) Output() []Entry { return r.output }

// WriteData appends a reconstructed sample. Rates and accelerations are not
// reconstructed and stay zero.
func (r *Recorder) WriteData(time float64, p frame.Position, a frame.Attitude, v geom.Vec3) {
	r.output = append(r.output, Entry{
		Time:        time,
		Longitude:   p.Longitude,
		Latitude:    p.Latitude,
		Altitude:    p.Altitude,
		TrueHeading: a.Heading,
		Pitch:       a.Pitch,
		Roll:        a.Roll,
		VX:          v.X,
		VY:          v.Y,
		VZ:          v.Z,
	})
}

// Write formats entries in recorder file layout.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := bw.WriteString(e.Format()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the reconstructed samples to path.
func (r *Recorder) WriteFile(path string) error {
	return r.create(path, func(w io.Writer) error { return Write(w, r.output) })
}

// WriteKML writes the recorded and reconstructed tracks as KML.
func (r *Recorder) WriteKML(w io.Writer) error {
	return kml.Encode(w, kml.NewFlightDocument(Coordinates(r.input), Coordinates(r.output)))
}

// DumpKML writes the KML comparison document to path.
func (r *Recorder) DumpKML(path string) error {
	return r.create(path, r.WriteKML)
}

func (r *Recorder) create(path string, write func(io.Writer) error) error {
	f, err := r.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	monitoring.Info("wrote %s", path)
	return nil
}

// Coordinates converts samples to KML vertices in degrees.
func Coordinates(entries []Entry) []kml.Coordinate {
	out := make([]kml.Coordinate, len(entries))
	for i, e := range entries {
		out[i] = kml.Coordinate{
			Longitude: units.RadToDeg(e.Longitude),
			Latitude:  units.RadToDeg(e.Latitude),
			Altitude:  e.Altitude,
		}
	}
	return out
}
