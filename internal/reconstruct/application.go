// Package reconstruct dead-reckons a flight path from body-fixed velocities
// and rotation rates and compares it with the recorded track.
package reconstruct

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/flightpath/internal/check"
	"github.com/banshee-data/flightpath/internal/frame"
	"github.com/banshee-data/flightpath/internal/geom"
	"github.com/banshee-data/flightpath/internal/monitoring"
	"github.com/banshee-data/flightpath/internal/recorder"
	"github.com/banshee-data/flightpath/internal/timeutil"
)

// Application owns the body frame being integrated, the recorder holding
// input and output samples, and the body velocity at the current step.
type Application struct {
	opts  Options
	frame *frame.ReferenceFrame
	rec   *recorder.Recorder

	// body velocity at step n
	vb geom.Vec3
	// last sample the frame was integrated to
	last recorder.Entry

	started time.Time

	steps    int
	skipped  int
	maxErr   float64
	finalErr float64
	path     float64
}

// Summary describes a finished run.
type Summary struct {
	Steps   int
	Skipped int
	// Duration is the recorded time span integrated so far, in seconds.
	Duration float64
	Wall     time.Duration

	// Position error between recorded and reconstructed track, metres.
	FinalError float64
	MaxError   float64
	// MeanSpeed is the reconstructed path length over Duration, m/s.
	MeanSpeed float64

	OrthogonalError float64
	LengthError     float64
}

func (s Summary) String() string {
	return fmt.Sprintf("%d steps (%d skipped) over %s, final error %.2f m, max error %.2f m",
		s.Steps, s.Skipped, timeutil.FormatElapsed(s.Duration), s.FinalError, s.MaxError)
}

// New reads opts.Input and places the body frame at the first sample's
// position and attitude.
func New(opts Options) (*Application, error) {
	rec := recorder.New(opts.FS)
	if err := rec.ReadFile(opts.Input); err != nil {
		return nil, err
	}
	data := rec.Data()
	if err := check.Ensure(len(data) > 0, "Application: %s contains no samples", opts.Input); err != nil {
		return nil, err
	}
	return newApplication(opts, rec, data[0]), nil
}

// FromEntries starts an Application on samples already in memory.
func FromEntries(entries []recorder.Entry, opts Options) (*Application, error) {
	if err := check.Ensure(len(entries) > 0, "Application: no samples"); err != nil {
		return nil, err
	}
	rec := recorder.New(opts.FS)
	rec.Append(entries...)
	return newApplication(opts, rec, entries[0]), nil
}

func newApplication(opts Options, rec *recorder.Recorder, first recorder.Entry) *Application {
	opts.normalize()

	rf := frame.NewAt(first.Position())
	rf.SetAttitude(first.Attitude())

	a := &Application{opts: opts, frame: rf, rec: rec, vb: first.Velocity(), last: first, started: opts.Clock.Now()}
	rec.WriteData(first.Time, rf.Position(), rf.Attitude(true), a.vb)
	return a
}

// Feed appends a live sample to the input and integrates up to it from the
// last accepted sample.
func (a *Application) Feed(next recorder.Entry) (bool, error) {
	a.rec.Append(next)
	return a.Step(a.last, next)
}

// Summary reports the run so far. Wall time counts from construction,
// which suits an Application driven by Feed.
func (a *Application) Summary() Summary {
	return a.summary(a.rec.Data(), a.started)
}

// Frame returns the integrated body frame.
func (a *Application) Frame() *frame.ReferenceFrame { return a.frame }

// Recorder returns the recorder holding input and reconstructed samples.
func (a *Application) Recorder() *recorder.Recorder { return a.rec }

// Run integrates through the recorded samples in order. Each step starts
// from the last accepted sample, so a skipped sample never drives the frame.
func (a *Application) Run(ctx context.Context) (Summary, error) {
	start := a.opts.Clock.Now()
	data := a.rec.Data()

	for n := 0; n+1 < len(data); n++ {
		if err := ctx.Err(); err != nil {
			return a.summary(data, start), err
		}
		if _, err := a.Step(a.last, data[n+1]); err != nil {
			return a.summary(data, start), fmt.Errorf("step %d at t=%.2f: %w", n, data[n+1].Time, err)
		}
		if a.steps%10000 == 0 && a.steps > 0 {
			monitoring.Debug("step %d, t=%.2f s, error %.2f m", a.steps, data[n+1].Time, a.finalErr)
		}
	}

	s := a.summary(data, start)
	monitoring.Info("%s", s)
	return s, nil
}

// Step advances the body frame from prev to next and appends the
// reconstructed sample. Samples with a non-increasing timestamp are skipped
// and reported with ok false.
func (a *Application) Step(prev, next recorder.Entry) (ok bool, err error) {
	dt := next.Time - prev.Time
	if dt <= 0 {
		monitoring.Warn("skipping sample at t=%.2f: time step %.3f s is not positive", next.Time, dt)
		a.skipped++
		return false, nil
	}

	omega := prev.Rates().Add(next.Rates()).Scale(0.5)

	var vNext geom.Vec3
	switch a.opts.Velocity {
	case VelocityIntegrated:
		acc := prev.Acceleration().Add(next.Acceleration()).Scale(0.5)
		// body-frame derivative: v̇ = a − ω × v
		vNext = a.vb.Add(acc.Sub(omega.Cross(a.vb)).Scale(dt))
	default:
		vNext = next.Velocity()
	}
	v := a.vb.Add(vNext).Scale(0.5)

	before := a.frame.Origin()
	a.frame.Dot(Increment(omega, v, dt))
	a.path += a.frame.Origin().Sub(before).Length()
	a.vb = vNext
	a.last = next
	a.steps++

	if every := a.opts.OrthonormalizeEvery; every > 0 && a.steps%every == 0 {
		if err := a.orthonormalize(); err != nil {
			return false, err
		}
	}

	pos := a.frame.Position()
	a.rec.WriteData(next.Time, pos, a.frame.Attitude(true), a.vb)

	a.finalErr = frame.Distance(next.Position(), pos)
	a.maxErr = math.Max(a.maxErr, a.finalErr)
	return true, nil
}

func (a *Application) orthonormalize() error {
	if a.opts.Method == MethodSVD {
		return a.frame.OrthonormalizeSVD()
	}
	a.frame.Orthonormalize()
	return nil
}

// Increment is the second-order exponential I + Ξdt + (Ξdt)²/2 of the body
// twist Ξ = [[skew(ω), v], [0, 0]].
func Increment(omega, v geom.Vec3, dt float64) geom.Mat4 {
	xi := geom.MustMat4(
		0, -omega.Z, omega.Y, v.X,
		omega.Z, 0, -omega.X, v.Y,
		-omega.Y, omega.X, 0, v.Z,
		0, 0, 0, 0,
	).Scale(dt)
	return geom.Identity().Add(xi).Add(xi.Mul(xi).Scale(0.5))
}

func (a *Application) summary(data []recorder.Entry, start time.Time) Summary {
	s := Summary{
		Steps:           a.steps,
		Skipped:         a.skipped,
		Wall:            a.opts.Clock.Since(start),
		FinalError:      a.finalErr,
		MaxError:        a.maxErr,
		OrthogonalError: a.frame.OrthogonalError(),
		LengthError:     a.frame.LengthError(),
	}
	if len(data) > 0 {
		s.Duration = a.last.Time - data[0].Time
	}
	if s.Duration > 0 {
		s.MeanSpeed = a.path / s.Duration
	}
	return s
}
