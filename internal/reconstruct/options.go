package reconstruct

import (
	"fmt"

	"github.com/banshee-data/flightpath/internal/fsutil"
	"github.com/banshee-data/flightpath/internal/timeutil"
)

// VelocitySource selects where the body velocity at each step comes from.
type VelocitySource string

const (
	// VelocityRecorded takes the body velocity from the recorder sample.
	VelocityRecorded VelocitySource = "recorded"
	// VelocityIntegrated integrates the body acceleration from the first
	// sample's velocity.
	VelocityIntegrated VelocitySource = "integrated"
)

// Method selects the orthonormalisation algorithm.
type Method string

const (
	MethodIterative Method = "iterative"
	MethodSVD       Method = "svd"
)

// ParseVelocitySource accepts "recorded" or "integrated"; empty means
// recorded.
func ParseVelocitySource(s string) (VelocitySource, error) {
	switch VelocitySource(s) {
	case "", VelocityRecorded:
		return VelocityRecorded, nil
	case VelocityIntegrated:
		return VelocityIntegrated, nil
	}
	return "", fmt.Errorf("unknown velocity source %q (want recorded or integrated)", s)
}

// ParseMethod accepts "iterative" or "svd"; empty means iterative.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodIterative:
		return MethodIterative, nil
	case MethodSVD:
		return MethodSVD, nil
	}
	return "", fmt.Errorf("unknown orthonormalization %q (want iterative or svd)", s)
}

// Options configures an Application.
type Options struct {
	// Input is the recorder file read by New.
	Input string
	// FS is used to read Input; nil means the host filesystem.
	FS fsutil.FileSystem
	// Clock times the run; nil means the system clock.
	Clock timeutil.Clock

	Velocity VelocitySource
	Method   Method
	// OrthonormalizeEvery re-orthonormalises the frame after this many
	// steps. Zero or negative disables it.
	OrthonormalizeEvery int
}

// DefaultOrthonormalizeEvery is used by the CLI when the config leaves the
// interval unset.
const DefaultOrthonormalizeEvery = 1

func (o *Options) normalize() {
	if o.Velocity == "" {
		o.Velocity = VelocityRecorded
	}
	if o.Method == "" {
		o.Method = MethodIterative
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
}
