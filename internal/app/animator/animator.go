package animator

import (
	"github.com/google/uuid"

	"github.com/osa030/animbox/internal/app/animation"
)

// Animator is a named group owned by the manager.
type Animator struct {
	ID     string
	Name   string
	Kind   string
	player animation.Player

	finished bool // a finished event was sent for the current hold
}

// newAnimator wraps a player with a fresh id.
func newAnimator(name, kind string, p animation.Player) *Animator {
	return &Animator{
		ID:     uuid.New().String(),
		Name:   name,
		Kind:   kind,
		player: p,
	}
}

// Snapshot is a copy of an animator's state safe to hand out.
type Snapshot struct {
	ID         string
	Name       string
	Kind       string
	LoopStyle  animation.LoopStyle
	Time       float64
	Speed      float64
	Paused     bool
	Pong       bool
	Empty      bool
	StartTime  *float64 // nil when empty
	EndTime    *float64 // nil when empty
	Duration   *float64 // nil when empty
	TrackCount int
	Finished   bool
}

func (a *Animator) snapshot() Snapshot {
	st := a.player.PlaybackState()
	s := Snapshot{
		ID:         a.ID,
		Name:       a.Name,
		Kind:       a.Kind,
		LoopStyle:  st.LoopStyle,
		Time:       st.Time,
		Speed:      st.Speed,
		Paused:     st.Paused,
		Pong:       st.Pong,
		Empty:      a.player.IsEmpty(),
		TrackCount: a.player.TrackCount(),
		Finished:   a.finished,
	}
	if v, ok := a.player.StartTime(); ok {
		s.StartTime = &v
	}
	if v, ok := a.player.EndTime(); ok {
		s.EndTime = &v
	}
	if v, ok := a.player.Duration(); ok {
		s.Duration = &v
	}
	return s
}

// SampleResult is the result of sampling an animator.
type SampleResult struct {
	ID      string
	Name    string
	Time    float64
	Clamped bool
	Tracks  []animation.LabeledSample
}
