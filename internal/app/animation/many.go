package animation

import (
	"strconv"

	"github.com/osa030/animbox/internal/domain/spline"
)

// Many is a group of indexed tracks.
type Many struct {
	State
	Splines []*spline.Spline
}

// NewMany creates a multi-track group with the default state.
func NewMany(splines ...*spline.Spline) *Many {
	return &Many{State: NewState(), Splines: splines}
}

var (
	_ Group[[]Sample] = (*Many)(nil)
	_ Player          = (*Many)(nil)
)

// PlaybackState returns the playback state.
func (m *Many) PlaybackState() *State {
	return &m.State
}

// TrackBounds returns the key ranges of the non-empty tracks.
func (m *Many) TrackBounds() []Bounds {
	bounds := make([]Bounds, 0, len(m.Splines))
	for _, s := range m.Splines {
		if b, ok := splineBounds(s); ok {
			bounds = append(bounds, b)
		}
	}
	return bounds
}

// Sample returns one sample per track, in track order.
// It returns nil if no track has data at t.
func (m *Many) Sample(t float64) []Sample {
	samples := make([]Sample, len(m.Splines))
	found := false
	for i, s := range m.Splines {
		samples[i] = sampleSpline(s, t)
		found = found || samples[i].OK
	}
	if !found {
		return nil
	}
	return samples
}

// Current samples every track at the playback time.
func (m *Many) Current() []Sample {
	return Current[[]Sample](m)
}

func (m *Many) Advance(deltaTime float64) Step { return Advance[[]Sample](m, deltaTime) }
func (m *Many) IsEmpty() bool                  { return IsEmpty[[]Sample](m) }
func (m *Many) StartTime() (float64, bool)     { return StartTime[[]Sample](m) }
func (m *Many) EndTime() (float64, bool)       { return EndTime[[]Sample](m) }
func (m *Many) Duration() (float64, bool)      { return Duration[[]Sample](m) }
func (m *Many) TrackCount() int                { return len(m.Splines) }

// Labeled returns one sample per track labelled by its index.
func (m *Many) Labeled(t float64) []LabeledSample {
	return m.labeled(t, sampleSpline)
}

// LabeledClamped is Labeled with t clamped into each track's key range.
func (m *Many) LabeledClamped(t float64) []LabeledSample {
	return m.labeled(t, sampleSplineClamped)
}

func (m *Many) labeled(t float64, sample func(*spline.Spline, float64) Sample) []LabeledSample {
	out := make([]LabeledSample, len(m.Splines))
	for i, s := range m.Splines {
		out[i] = LabeledSample{Track: strconv.Itoa(i), Sample: sample(s, t)}
	}
	return out
}
