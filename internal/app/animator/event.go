package animator

import (
	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrNotFound      = errors.New("animator not found")
	ErrDuplicateName = errors.New("animator name already in use")
	ErrUnknownKind   = errors.New("unknown animator kind")
	ErrClosed        = errors.New("manager closed")
)

// EventType represents an animator event type.
type EventType int

const (
	EventRegistered   EventType = iota // Animator added
	EventRemoved                       // Animator removed
	EventStateChanged                  // Pause/play/seek/speed/loop style changed
	EventRestarted                     // Loop cursor snapped to its restart point
	EventBounced                       // PingPong direction flipped
	EventFinished                      // Once playback reached its boundary
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventRegistered:
		return "registered"
	case EventRemoved:
		return "removed"
	case EventStateChanged:
		return "state_changed"
	case EventRestarted:
		return "restarted"
	case EventBounced:
		return "bounced"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event represents an animator event.
type Event struct {
	Type     EventType
	Animator Snapshot // State right after the event
}
