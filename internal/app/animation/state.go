// Package animation provides the spline-group playback engine.
//
// A spline group is a set of curve tracks sharing one playback cursor. The
// engine advances the cursor per tick and applies the group's loop style when
// the cursor passes the combined key range of all tracks.
package animation

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// LoopStyle represents what happens when playback reaches a boundary.
type LoopStyle int

const (
	Once     LoopStyle = iota // Stop at the boundary
	Loop                      // Restart from the opposite boundary
	PingPong                  // Reverse direction at each boundary
)

// String returns the string representation of the loop style.
func (l LoopStyle) String() string {
	switch l {
	case Once:
		return "once"
	case Loop:
		return "loop"
	case PingPong:
		return "pingpong"
	default:
		return "unknown"
	}
}

// ParseLoopStyle parses a loop style name.
func ParseLoopStyle(s string) (LoopStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "once", "":
		return Once, nil
	case "loop":
		return Loop, nil
	case "pingpong", "ping_pong", "ping-pong":
		return PingPong, nil
	default:
		return Once, errors.Newf("unknown loop style: %s", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l LoopStyle) MarshalText() ([]byte, error) {
	if l < Once || l > PingPong {
		return nil, errors.Newf("invalid loop style: %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *LoopStyle) UnmarshalText(text []byte) error {
	v, err := ParseLoopStyle(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// State is the playback state shared by all tracks of a group.
type State struct {
	LoopStyle LoopStyle // Boundary policy
	Time      float64   // Playback cursor; not clamped to the key range
	Speed     float64   // Signed; the sign selects the direction
	Paused    bool      // Advance is a no-op while set
	Pong      bool      // PingPong direction flag
}

// NewState returns the default state: Once, time 0, speed 1, playing.
func NewState() State {
	return State{
		LoopStyle: Once,
		Speed:     1,
	}
}

// Pause pauses playback.
func (s *State) Pause() {
	s.Paused = true
}

// Play resumes playback.
func (s *State) Play() {
	s.Paused = false
}

// TogglePause inverts the paused flag.
func (s *State) TogglePause() {
	s.Paused = !s.Paused
}
