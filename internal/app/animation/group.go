package animation

import "math"

// Bounds is the key-time range of one non-empty track.
type Bounds struct {
	First float64 // Time of the earliest key
	Last  float64 // Time of the latest key
}

// Group is a set of tracks sharing one playback state.
type Group[S any] interface {
	// PlaybackState returns the mutable playback state of the group.
	PlaybackState() *State
	// TrackBounds returns the key-time range of every non-empty track.
	TrackBounds() []Bounds
	// Sample samples all tracks at time t. What an absent sample looks like
	// is up to the group.
	Sample(t float64) S
}

// Step reports what a call to Advance did.
type Step int

const (
	StepSkipped   Step = iota // Group empty or paused; nothing changed
	StepAdvanced              // Cursor moved
	StepHeld                  // Once: cursor past the boundary and left in place
	StepRestarted             // Loop: cursor snapped to the restart point
	StepBounced               // PingPong: direction flipped and cursor snapped
)

// String returns the string representation of the step.
func (s Step) String() string {
	switch s {
	case StepSkipped:
		return "skipped"
	case StepAdvanced:
		return "advanced"
	case StepHeld:
		return "held"
	case StepRestarted:
		return "restarted"
	case StepBounced:
		return "bounced"
	default:
		return "unknown"
	}
}

// IsEmpty returns true if no track of the group has a key.
func IsEmpty[S any](g Group[S]) bool {
	return len(g.TrackBounds()) == 0
}

// StartTime returns the earliest first-key time over all tracks.
func StartTime[S any](g Group[S]) (float64, bool) {
	start, _, ok := timeRange(g.TrackBounds())
	return start, ok
}

// EndTime returns the latest last-key time over all tracks.
func EndTime[S any](g Group[S]) (float64, bool) {
	_, end, ok := timeRange(g.TrackBounds())
	return end, ok
}

// Duration returns the absolute distance between start and end time in
// seconds.
func Duration[S any](g Group[S]) (float64, bool) {
	start, end, ok := timeRange(g.TrackBounds())
	if !ok {
		return 0, false
	}
	return math.Abs(start - end), true
}

// Current samples the group at its playback time.
func Current[S any](g Group[S]) S {
	return g.Sample(g.PlaybackState().Time)
}

// Advance moves the playback cursor by deltaTime*speed and applies the loop
// style.
//
// The boundary test looks at the cursor before it moves, so a tick may carry
// the cursor past a boundary; the overshoot is only acted on by the next tick.
func Advance[S any](g Group[S], deltaTime float64) Step {
	st := g.PlaybackState()
	if st.Paused {
		return StepSkipped
	}
	start, end, ok := timeRange(g.TrackBounds())
	if !ok {
		return StepSkipped
	}

	// Zero speed counts as forward; negative zero as reversed.
	reversed := math.Signbit(st.Speed)

	var pastBoundary bool
	switch {
	case reversed && st.Pong:
		pastBoundary = end < st.Time
	case reversed && !st.Pong:
		pastBoundary = start > st.Time
	case !reversed && st.Pong:
		pastBoundary = start > st.Time
	default:
		pastBoundary = end < st.Time
	}

	restartAt := start
	if reversed {
		restartAt = end
	}
	pongSign := 1.0
	if st.Pong {
		pongSign = -1.0
	}

	switch st.LoopStyle {
	case Loop:
		if pastBoundary {
			st.Time = restartAt
			return StepRestarted
		}
		st.Time += deltaTime * st.Speed
	case PingPong:
		if pastBoundary {
			st.Pong = !st.Pong
			if st.Pong {
				st.Time = end
			} else {
				st.Time = start
			}
			return StepBounced
		}
		st.Time += deltaTime * st.Speed * pongSign
	default:
		if pastBoundary {
			return StepHeld
		}
		st.Time += deltaTime * st.Speed
	}
	return StepAdvanced
}

// timeRange folds the per-track bounds into the group's start and end.
func timeRange(bounds []Bounds) (start, end float64, ok bool) {
	if len(bounds) == 0 {
		return 0, 0, false
	}
	start, end = bounds[0].First, bounds[0].Last
	for _, b := range bounds[1:] {
		if b.First < start {
			start = b.First
		}
		if b.Last > end {
			end = b.Last
		}
	}
	return start, end, true
}
