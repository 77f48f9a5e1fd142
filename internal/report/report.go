// Package report renders flight comparison plots: PNG charts with gonum/plot
// and an interactive HTML page with go-echarts.
package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/flightpath/internal/frame"
	"github.com/banshee-data/flightpath/internal/fsutil"
	"github.com/banshee-data/flightpath/internal/monitoring"
	"github.com/banshee-data/flightpath/internal/recorder"
	"github.com/banshee-data/flightpath/internal/units"
)

var (
	originalColor      = color.RGBA{R: 0, G: 190, B: 190, A: 255}
	reconstructedColor = color.RGBA{R: 170, G: 0, B: 170, A: 255}
)

// timeTolerance pairs samples whose timestamps differ by less than this.
const timeTolerance = 1e-6

// ErrorPoint is the distance between the recorded and reconstructed
// position at one timestamp.
type ErrorPoint struct {
	Time  float64
	Error float64
}

// PositionErrors pairs samples of both tracks by timestamp and returns the
// straight-line distance between them. Samples present in only one track
// are ignored.
func PositionErrors(original, reconstructed []recorder.Entry) []ErrorPoint {
	var out []ErrorPoint
	i, j := 0, 0
	for i < len(original) && j < len(reconstructed) {
		o, r := original[i], reconstructed[j]
		switch {
		case math.Abs(o.Time-r.Time) < timeTolerance:
			out = append(out, ErrorPoint{Time: o.Time, Error: frame.Distance(o.Position(), r.Position())})
			i++
			j++
		case o.Time < r.Time:
			i++
		default:
			j++
		}
	}
	return out
}

// Writer saves plots through a FileSystem.
type Writer struct {
	fs fsutil.FileSystem
}

// New returns a Writer on fsys; nil uses the host filesystem.
func New(fsys fsutil.FileSystem) *Writer {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Writer{fs: fsys}
}

// PlotTrack saves the ground track of both flights (longitude against
// latitude, degrees) as a PNG.
func (w *Writer) PlotTrack(path string, original, reconstructed []recorder.Entry) error {
	p := plot.New()
	p.Title.Text = "Ground track"
	p.X.Label.Text = "Longitude (deg)"
	p.Y.Label.Text = "Latitude (deg)"

	track := func(entries []recorder.Entry) plotter.XYs {
		pts := make(plotter.XYs, len(entries))
		for i, e := range entries {
			pts[i] = plotter.XY{X: units.RadToDeg(e.Longitude), Y: units.RadToDeg(e.Latitude)}
		}
		return pts
	}
	if err := addLines(p, track(original), track(reconstructed)); err != nil {
		return err
	}
	return w.save(p, path)
}

// PlotAltitude saves altitude over time of both flights as a PNG.
func (w *Writer) PlotAltitude(path string, original, reconstructed []recorder.Entry) error {
	p := plot.New()
	p.Title.Text = "Altitude"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Altitude (m)"

	alt := func(entries []recorder.Entry) plotter.XYs {
		pts := make(plotter.XYs, len(entries))
		for i, e := range entries {
			pts[i] = plotter.XY{X: e.Time, Y: e.Altitude}
		}
		return pts
	}
	if err := addLines(p, alt(original), alt(reconstructed)); err != nil {
		return err
	}
	return w.save(p, path)
}

// PlotError saves the position error over time as a PNG.
func (w *Writer) PlotError(path string, original, reconstructed []recorder.Entry) error {
	errs := PositionErrors(original, reconstructed)
	if len(errs) == 0 {
		return fmt.Errorf("no common timestamps between tracks")
	}

	p := plot.New()
	p.Title.Text = "Position error"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Error (m)"

	pts := make(plotter.XYs, len(errs))
	for i, e := range errs {
		pts[i] = plotter.XY{X: e.Time, Y: e.Error}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = reconstructedColor
	line.Width = vg.Points(1)
	p.Add(line, plotter.NewGrid())
	return w.save(p, path)
}

func addLines(p *plot.Plot, original, reconstructed plotter.XYs) error {
	if len(original) == 0 && len(reconstructed) == 0 {
		return fmt.Errorf("nothing to plot")
	}
	p.Add(plotter.NewGrid())
	for _, s := range []struct {
		name  string
		pts   plotter.XYs
		color color.Color
	}{
		{"Original", original, originalColor},
		{"Reconstructed", reconstructed, reconstructedColor},
	} {
		if len(s.pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return fmt.Errorf("%s line: %w", s.name, err)
		}
		line.Color = s.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return nil
}

func (w *Writer) save(p *plot.Plot, path string) error {
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	f, err := w.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	monitoring.Info("wrote %s", path)
	return nil
}
