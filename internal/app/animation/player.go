package animation

import "github.com/osa030/animbox/internal/domain/spline"

// Sample is the value of one track at one time.
// OK is false when the track has no data at that time.
type Sample struct {
	Value float64
	OK    bool
}

// LabeledSample is a sample tagged with the track it came from.
type LabeledSample struct {
	Track string
	Sample
}

// Player is the type-independent surface of a group, used by hosts that hold
// groups of different shapes side by side.
type Player interface {
	PlaybackState() *State
	Advance(deltaTime float64) Step
	Pause()
	Play()
	TogglePause()
	IsEmpty() bool
	StartTime() (float64, bool)
	EndTime() (float64, bool)
	Duration() (float64, bool)
	// TrackCount returns the number of tracks, empty ones included.
	TrackCount() int
	// Labeled samples every track at t, absent samples included.
	Labeled(t float64) []LabeledSample
	// LabeledClamped is like Labeled but clamps t into each track's key
	// range, so every non-empty track has a value.
	LabeledClamped(t float64) []LabeledSample
}

func sampleSpline(s *spline.Spline, t float64) Sample {
	if s == nil {
		return Sample{}
	}
	v, ok := s.Sample(t)
	return Sample{Value: v, OK: ok}
}

func sampleSplineClamped(s *spline.Spline, t float64) Sample {
	if s == nil {
		return Sample{}
	}
	v, ok := s.SampleClamped(t)
	return Sample{Value: v, OK: ok}
}

func splineBounds(s *spline.Spline) (Bounds, bool) {
	if s == nil {
		return Bounds{}, false
	}
	first, last, ok := s.Bounds()
	return Bounds{First: first, Last: last}, ok
}
