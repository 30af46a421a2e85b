package connect

import (
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/animbox/internal/app/animator"
)

// Request messages. Requests travel as structpb.Struct and are decoded into
// these types.
type (
	// AnimatorRequest addresses one animator by id or name.
	AnimatorRequest struct {
		Animator string `mapstructure:"animator" validate:"required"`
	}

	// SeekRequest moves the playback cursor.
	SeekRequest struct {
		Animator string   `mapstructure:"animator" validate:"required"`
		Time     *float64 `mapstructure:"time" validate:"required"`
	}

	// SetSpeedRequest changes the signed playback speed.
	SetSpeedRequest struct {
		Animator string   `mapstructure:"animator" validate:"required"`
		Speed    *float64 `mapstructure:"speed" validate:"required"`
	}

	// SetLoopStyleRequest changes the loop style.
	SetLoopStyleRequest struct {
		Animator  string `mapstructure:"animator" validate:"required"`
		LoopStyle string `mapstructure:"loop_style" validate:"required"`
	}

	// SampleRequest samples an animator, at its playback time when Time is nil.
	// Clamp holds the end keys outside each track's key range.
	SampleRequest struct {
		Animator string   `mapstructure:"animator" validate:"required"`
		Time     *float64 `mapstructure:"time"`
		Clamp    bool     `mapstructure:"clamp"`
	}

	// StepRequest advances every animator once.
	StepRequest struct {
		DeltaTime *float64 `mapstructure:"delta_time" validate:"required"`
	}

	// WatchRequest subscribes to events, optionally for one animator only.
	WatchRequest struct {
		Animator string `mapstructure:"animator"`
	}
)

// Response messages, decoded by the client.
type (
	// AnimatorInfo describes one animator.
	AnimatorInfo struct {
		ID         string   `mapstructure:"id"`
		Name       string   `mapstructure:"name"`
		Kind       string   `mapstructure:"kind"`
		LoopStyle  string   `mapstructure:"loop_style"`
		Time       float64  `mapstructure:"time"`
		Speed      float64  `mapstructure:"speed"`
		Paused     bool     `mapstructure:"paused"`
		Pong       bool     `mapstructure:"pong"`
		Empty      bool     `mapstructure:"empty"`
		StartTime  *float64 `mapstructure:"start_time"`
		EndTime    *float64 `mapstructure:"end_time"`
		Duration   *float64 `mapstructure:"duration"`
		TrackCount int      `mapstructure:"track_count"`
		Finished   bool     `mapstructure:"finished"`
	}

	// TrackSample is the value of one track.
	TrackSample struct {
		Track string  `mapstructure:"track"`
		Value float64 `mapstructure:"value"`
		OK    bool    `mapstructure:"ok"`
	}

	// SampleInfo is the result of Sample.
	SampleInfo struct {
		ID      string        `mapstructure:"id"`
		Name    string        `mapstructure:"name"`
		Time    float64       `mapstructure:"time"`
		Clamped bool          `mapstructure:"clamped"`
		Tracks  []TrackSample `mapstructure:"tracks"`
	}

	// EventInfo is a message received from Watch.
	EventInfo struct {
		Type       string       `mapstructure:"type"`
		SequenceNo uint64       `mapstructure:"sequence_no"`
		Animator   AnimatorInfo `mapstructure:"animator"`
	}
)

// decodeMessage decodes and validates a request or response struct.
func decodeMessage(msg *structpb.Struct, out any) error {
	var fields map[string]any
	if msg != nil {
		fields = msg.AsMap()
	}
	if err := mapstructure.Decode(fields, out); err != nil {
		return errors.Wrap(err, "failed to decode message")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	return nil
}

func snapshotFields(s animator.Snapshot) map[string]any {
	m := map[string]any{
		"id":          s.ID,
		"name":        s.Name,
		"kind":        s.Kind,
		"loop_style":  s.LoopStyle.String(),
		"time":        s.Time,
		"speed":       s.Speed,
		"paused":      s.Paused,
		"pong":        s.Pong,
		"empty":       s.Empty,
		"track_count": s.TrackCount,
		"finished":    s.Finished,
	}
	if s.StartTime != nil {
		m["start_time"] = *s.StartTime
	}
	if s.EndTime != nil {
		m["end_time"] = *s.EndTime
	}
	if s.Duration != nil {
		m["duration"] = *s.Duration
	}
	return m
}

func snapshotStruct(s animator.Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(snapshotFields(s))
}

func listStruct(snaps []animator.Snapshot) (*structpb.Struct, error) {
	items := make([]any, len(snaps))
	for i, s := range snaps {
		items[i] = snapshotFields(s)
	}
	return structpb.NewStruct(map[string]any{"animators": items})
}

func sampleStruct(r animator.SampleResult) (*structpb.Struct, error) {
	tracks := make([]any, len(r.Tracks))
	for i, ts := range r.Tracks {
		tracks[i] = map[string]any{
			"track": ts.Track,
			"value": ts.Value,
			"ok":    ts.OK,
		}
	}
	return structpb.NewStruct(map[string]any{
		"id":      r.ID,
		"name":    r.Name,
		"time":    r.Time,
		"clamped": r.Clamped,
		"tracks":  tracks,
	})
}

// EncodeEvent converts a manager event into a Watch message.
func EncodeEvent(e animator.Event) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"type":     e.Type.String(),
		"animator": snapshotFields(e.Animator),
	})
}
