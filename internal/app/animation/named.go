package animation

import (
	"sort"

	"github.com/osa030/animbox/internal/domain/spline"
)

// Named is a group of tracks keyed by name, such as the x/y/z channels of a
// position.
type Named struct {
	State
	Splines map[string]*spline.Spline
}

// NewNamed creates a named-track group with the default state.
func NewNamed(splines map[string]*spline.Spline) *Named {
	if splines == nil {
		splines = make(map[string]*spline.Spline)
	}
	return &Named{State: NewState(), Splines: splines}
}

var (
	_ Group[map[string]Sample] = (*Named)(nil)
	_ Player                   = (*Named)(nil)
)

// PlaybackState returns the playback state.
func (n *Named) PlaybackState() *State {
	return &n.State
}

// Names returns the track names in sorted order.
func (n *Named) Names() []string {
	names := make([]string, 0, len(n.Splines))
	for name := range n.Splines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TrackBounds returns the key ranges of the non-empty tracks in name order.
func (n *Named) TrackBounds() []Bounds {
	bounds := make([]Bounds, 0, len(n.Splines))
	for _, name := range n.Names() {
		if b, ok := splineBounds(n.Splines[name]); ok {
			bounds = append(bounds, b)
		}
	}
	return bounds
}

// Sample returns the samples of the tracks that have data at t.
// It returns nil if none do.
func (n *Named) Sample(t float64) map[string]Sample {
	var out map[string]Sample
	for name, s := range n.Splines {
		smp := sampleSpline(s, t)
		if !smp.OK {
			continue
		}
		if out == nil {
			out = make(map[string]Sample, len(n.Splines))
		}
		out[name] = smp
	}
	return out
}

// Current samples the tracks at the playback time.
func (n *Named) Current() map[string]Sample {
	return Current[map[string]Sample](n)
}

func (n *Named) Advance(deltaTime float64) Step { return Advance[map[string]Sample](n, deltaTime) }
func (n *Named) IsEmpty() bool                  { return IsEmpty[map[string]Sample](n) }
func (n *Named) StartTime() (float64, bool)     { return StartTime[map[string]Sample](n) }
func (n *Named) EndTime() (float64, bool)       { return EndTime[map[string]Sample](n) }
func (n *Named) Duration() (float64, bool)      { return Duration[map[string]Sample](n) }
func (n *Named) TrackCount() int                { return len(n.Splines) }

// Labeled returns one sample per track in name order.
func (n *Named) Labeled(t float64) []LabeledSample {
	return n.labeled(t, sampleSpline)
}

// LabeledClamped is Labeled with t clamped into each track's key range.
func (n *Named) LabeledClamped(t float64) []LabeledSample {
	return n.labeled(t, sampleSplineClamped)
}

func (n *Named) labeled(t float64, sample func(*spline.Spline, float64) Sample) []LabeledSample {
	names := n.Names()
	out := make([]LabeledSample, len(names))
	for i, name := range names {
		out[i] = LabeledSample{Track: name, Sample: sample(n.Splines[name], t)}
	}
	return out
}
