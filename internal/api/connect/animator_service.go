// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/animbox/internal/app/animation"
	"github.com/osa030/animbox/internal/app/animator"
	"github.com/osa030/animbox/internal/app/notification"
)

// ServiceName is the fully-qualified name of the animator service.
const ServiceName = "animbox.v1.AnimatorService"

// Procedure paths.
const (
	ListProcedure         = "/" + ServiceName + "/List"
	GetProcedure          = "/" + ServiceName + "/Get"
	PauseProcedure        = "/" + ServiceName + "/Pause"
	PlayProcedure         = "/" + ServiceName + "/Play"
	TogglePauseProcedure  = "/" + ServiceName + "/TogglePause"
	SeekProcedure         = "/" + ServiceName + "/Seek"
	SetSpeedProcedure     = "/" + ServiceName + "/SetSpeed"
	SetLoopStyleProcedure = "/" + ServiceName + "/SetLoopStyle"
	SampleProcedure       = "/" + ServiceName + "/Sample"
	StepProcedure         = "/" + ServiceName + "/Step"
	RemoveProcedure       = "/" + ServiceName + "/Remove"
	WatchProcedure        = "/" + ServiceName + "/Watch"
)

// readOnlyProcedures do not require the admin token.
var readOnlyProcedures = map[string]bool{
	ListProcedure:   true,
	GetProcedure:    true,
	SampleProcedure: true,
	WatchProcedure:  true,
}

type (
	request  = connect.Request[structpb.Struct]
	response = connect.Response[structpb.Struct]
)

// AnimatorService implements the AnimatorService RPC.
type AnimatorService struct {
	animators     *animator.Manager
	notifications *notification.Manager
}

// NewAnimatorService creates a new AnimatorService.
func NewAnimatorService(animators *animator.Manager, notifications *notification.Manager) *AnimatorService {
	return &AnimatorService{
		animators:     animators,
		notifications: notifications,
	}
}

// NewAnimatorServiceHandler builds an HTTP handler serving every procedure of
// the service. It returns the path prefix to mount it on.
func NewAnimatorServiceHandler(svc *AnimatorService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(ListProcedure, connect.NewUnaryHandler(ListProcedure, svc.List, opts...))
	mux.Handle(GetProcedure, connect.NewUnaryHandler(GetProcedure, svc.Get, opts...))
	mux.Handle(PauseProcedure, connect.NewUnaryHandler(PauseProcedure, svc.Pause, opts...))
	mux.Handle(PlayProcedure, connect.NewUnaryHandler(PlayProcedure, svc.Play, opts...))
	mux.Handle(TogglePauseProcedure, connect.NewUnaryHandler(TogglePauseProcedure, svc.TogglePause, opts...))
	mux.Handle(SeekProcedure, connect.NewUnaryHandler(SeekProcedure, svc.Seek, opts...))
	mux.Handle(SetSpeedProcedure, connect.NewUnaryHandler(SetSpeedProcedure, svc.SetSpeed, opts...))
	mux.Handle(SetLoopStyleProcedure, connect.NewUnaryHandler(SetLoopStyleProcedure, svc.SetLoopStyle, opts...))
	mux.Handle(SampleProcedure, connect.NewUnaryHandler(SampleProcedure, svc.Sample, opts...))
	mux.Handle(StepProcedure, connect.NewUnaryHandler(StepProcedure, svc.Step, opts...))
	mux.Handle(RemoveProcedure, connect.NewUnaryHandler(RemoveProcedure, svc.Remove, opts...))
	mux.Handle(WatchProcedure, connect.NewServerStreamHandler(WatchProcedure, svc.Watch, opts...))
	return "/" + ServiceName + "/", mux
}

// List returns every animator.
func (s *AnimatorService) List(ctx context.Context, req *request) (*response, error) {
	return respond(listStruct(s.animators.List()))
}

// Get returns one animator.
func (s *AnimatorService) Get(ctx context.Context, req *request) (*response, error) {
	var in AnimatorRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return respondSnapshot(s.animators.Get(in.Animator))
}

// Pause pauses an animator.
func (s *AnimatorService) Pause(ctx context.Context, req *request) (*response, error) {
	var in AnimatorRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return respondSnapshot(s.animators.Pause(in.Animator))
}

// Play resumes an animator.
func (s *AnimatorService) Play(ctx context.Context, req *request) (*response, error) {
	var in AnimatorRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return respondSnapshot(s.animators.Play(in.Animator))
}

// TogglePause flips the paused flag of an animator.
func (s *AnimatorService) TogglePause(ctx context.Context, req *request) (*response, error) {
	var in AnimatorRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return respondSnapshot(s.animators.TogglePause(in.Animator))
}

// Seek moves the playback cursor of an animator.
func (s *AnimatorService) Seek(ctx context.Context, req *request) (*response, error) {
	var in SeekRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return respondSnapshot(s.animators.Seek(in.Animator, *in.Time))
}

// SetSpeed changes the playback speed of an animator.
func (s *AnimatorService) SetSpeed(ctx context.Context, req *request) (*response, error) {
	var in SetSpeedRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return respondSnapshot(s.animators.SetSpeed(in.Animator, *in.Speed))
}

// SetLoopStyle changes the loop style of an animator.
func (s *AnimatorService) SetLoopStyle(ctx context.Context, req *request) (*response, error) {
	var in SetLoopStyleRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	style, err := animation.ParseLoopStyle(in.LoopStyle)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return respondSnapshot(s.animators.SetLoopStyle(in.Animator, style))
}

// Sample samples every track of an animator.
func (s *AnimatorService) Sample(ctx context.Context, req *request) (*response, error) {
	var in SampleRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	res, err := s.animators.Sample(in.Animator, in.Time, in.Clamp)
	if err != nil {
		return nil, toConnectError(err)
	}
	return respond(sampleStruct(res))
}

// Step advances every animator by delta_time and returns the new states.
func (s *AnimatorService) Step(ctx context.Context, req *request) (*response, error) {
	var in StepRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := s.animators.Step(*in.DeltaTime); err != nil {
		return nil, toConnectError(err)
	}
	return respond(listStruct(s.animators.List()))
}

// Remove unregisters an animator and returns its final state.
func (s *AnimatorService) Remove(ctx context.Context, req *request) (*response, error) {
	var in AnimatorRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return respondSnapshot(s.animators.Remove(in.Animator))
}

// Watch streams animator events until the client disconnects or the server
// shuts down.
func (s *AnimatorService) Watch(ctx context.Context, req *request, stream *connect.ServerStream[structpb.Struct]) error {
	var in WatchRequest
	if err := decodeMessage(req.Msg, &in); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	if in.Animator != "" {
		if _, err := s.animators.Get(in.Animator); err != nil {
			return toConnectError(err)
		}
	}

	id := s.notifications.Subscribe(&eventStreamAdapter{stream: stream, animator: in.Animator})
	defer s.notifications.Unsubscribe(id)

	select {
	case <-ctx.Done():
	case <-s.notifications.Done():
	}
	return nil
}

// eventStreamAdapter adapts connect.ServerStream to notification.Stream,
// optionally passing only events of one animator.
type eventStreamAdapter struct {
	stream   *connect.ServerStream[structpb.Struct]
	animator string
}

func (a *eventStreamAdapter) Send(msg *structpb.Struct) error {
	if a.animator != "" {
		target := msg.GetFields()["animator"].GetStructValue().GetFields()
		if target["id"].GetStringValue() != a.animator && target["name"].GetStringValue() != a.animator {
			return nil
		}
	}
	return a.stream.Send(msg)
}

func respond(msg *structpb.Struct, err error) (*response, error) {
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func respondSnapshot(snap animator.Snapshot, err error) (*response, error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	return respond(snapshotStruct(snap))
}

// toConnectError maps manager errors onto RPC codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, animator.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, animator.ErrDuplicateName):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, animator.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
