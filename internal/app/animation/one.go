package animation

import "github.com/osa030/animbox/internal/domain/spline"

// One is a group with a single track.
type One struct {
	State
	Spline *spline.Spline
}

// NewOne creates a single-track group with the default state.
// A nil spline is replaced by an empty one.
func NewOne(s *spline.Spline) *One {
	if s == nil {
		s = spline.New()
	}
	return &One{State: NewState(), Spline: s}
}

var (
	_ Group[Sample] = (*One)(nil)
	_ Player        = (*One)(nil)
)

// PlaybackState returns the playback state.
func (o *One) PlaybackState() *State {
	return &o.State
}

// TrackBounds returns the key range of the track, if it has keys.
func (o *One) TrackBounds() []Bounds {
	if b, ok := splineBounds(o.Spline); ok {
		return []Bounds{b}
	}
	return nil
}

// Sample samples the track at t.
func (o *One) Sample(t float64) Sample {
	return sampleSpline(o.Spline, t)
}

// Current samples the track at the playback time.
func (o *One) Current() Sample {
	return Current[Sample](o)
}

func (o *One) Advance(deltaTime float64) Step { return Advance[Sample](o, deltaTime) }
func (o *One) IsEmpty() bool                  { return IsEmpty[Sample](o) }
func (o *One) StartTime() (float64, bool)     { return StartTime[Sample](o) }
func (o *One) EndTime() (float64, bool)       { return EndTime[Sample](o) }
func (o *One) Duration() (float64, bool)      { return Duration[Sample](o) }
func (o *One) TrackCount() int                { return 1 }

// Labeled returns the sample of the single track, labelled "value".
func (o *One) Labeled(t float64) []LabeledSample {
	return []LabeledSample{{Track: "value", Sample: o.Sample(t)}}
}

// LabeledClamped is Labeled with t clamped into the key range.
func (o *One) LabeledClamped(t float64) []LabeledSample {
	return []LabeledSample{{Track: "value", Sample: sampleSplineClamped(o.Spline, t)}}
}
