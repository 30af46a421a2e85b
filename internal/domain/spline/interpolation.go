package spline

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Mode identifies how a segment between two keys is interpolated.
type Mode int

const (
	ModeStep       Mode = iota // Hold the left value until Threshold, then jump
	ModeLinear                 // Straight line between the two keys
	ModeCosine                 // Cosine ease between the two keys
	ModeCatmullRom             // Catmull-Rom through the keys; needs one neighbour on each side
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeStep:
		return "step"
	case ModeLinear:
		return "linear"
	case ModeCosine:
		return "cosine"
	case ModeCatmullRom:
		return "catmull_rom"
	default:
		return "unknown"
	}
}

// Interpolation describes how the segment starting at a key is sampled.
// Threshold is only used by ModeStep and is a normalized time in [0, 1].
type Interpolation struct {
	Mode      Mode
	Threshold float64
}

// Step returns a step interpolation switching to the next value at threshold.
func Step(threshold float64) Interpolation {
	return Interpolation{Mode: ModeStep, Threshold: threshold}
}

// Linear returns a linear interpolation.
func Linear() Interpolation {
	return Interpolation{Mode: ModeLinear}
}

// Cosine returns a cosine interpolation.
func Cosine() Interpolation {
	return Interpolation{Mode: ModeCosine}
}

// CatmullRom returns a Catmull-Rom interpolation.
func CatmullRom() Interpolation {
	return Interpolation{Mode: ModeCatmullRom}
}

// ParseInterpolation converts a config name into an Interpolation.
// An empty name means linear.
func ParseInterpolation(name string, threshold float64) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear":
		return Linear(), nil
	case "step":
		if threshold < 0 || threshold > 1 {
			return Interpolation{}, errors.Newf("step threshold %v out of range [0, 1]", threshold)
		}
		return Step(threshold), nil
	case "cosine":
		return Cosine(), nil
	case "catmull_rom", "catmullrom", "catmull-rom":
		return CatmullRom(), nil
	default:
		return Interpolation{}, errors.Newf("unknown interpolation: %s", name)
	}
}
