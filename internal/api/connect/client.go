package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

type rpc = connect.Client[structpb.Struct, structpb.Struct]

// Client calls the animator service.
type Client struct {
	token string

	list         *rpc
	get          *rpc
	pause        *rpc
	play         *rpc
	togglePause  *rpc
	seek         *rpc
	setSpeed     *rpc
	setLoopStyle *rpc
	sample       *rpc
	step         *rpc
	remove       *rpc
	watch        *rpc
}

// NewClient creates a client for the server at baseURL. The admin token is
// sent with every call; it may be empty for read-only use.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	newRPC := func(procedure string) *rpc {
		return connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+procedure, opts...)
	}
	return &Client{
		token:        token,
		list:         newRPC(ListProcedure),
		get:          newRPC(GetProcedure),
		pause:        newRPC(PauseProcedure),
		play:         newRPC(PlayProcedure),
		togglePause:  newRPC(TogglePauseProcedure),
		seek:         newRPC(SeekProcedure),
		setSpeed:     newRPC(SetSpeedProcedure),
		setLoopStyle: newRPC(SetLoopStyleProcedure),
		sample:       newRPC(SampleProcedure),
		step:         newRPC(StepProcedure),
		remove:       newRPC(RemoveProcedure),
		watch:        newRPC(WatchProcedure),
	}
}

// List returns every animator.
func (c *Client) List(ctx context.Context) ([]AnimatorInfo, error) {
	var out struct {
		Animators []AnimatorInfo `mapstructure:"animators"`
	}
	if err := c.call(ctx, c.list, nil, &out); err != nil {
		return nil, err
	}
	return out.Animators, nil
}

// Get returns one animator by id or name.
func (c *Client) Get(ctx context.Context, ref string) (AnimatorInfo, error) {
	return c.callAnimator(ctx, c.get, map[string]any{"animator": ref})
}

// Pause pauses an animator.
func (c *Client) Pause(ctx context.Context, ref string) (AnimatorInfo, error) {
	return c.callAnimator(ctx, c.pause, map[string]any{"animator": ref})
}

// Play resumes an animator.
func (c *Client) Play(ctx context.Context, ref string) (AnimatorInfo, error) {
	return c.callAnimator(ctx, c.play, map[string]any{"animator": ref})
}

// TogglePause flips the paused flag of an animator.
func (c *Client) TogglePause(ctx context.Context, ref string) (AnimatorInfo, error) {
	return c.callAnimator(ctx, c.togglePause, map[string]any{"animator": ref})
}

// Seek moves the playback cursor of an animator.
func (c *Client) Seek(ctx context.Context, ref string, t float64) (AnimatorInfo, error) {
	return c.callAnimator(ctx, c.seek, map[string]any{"animator": ref, "time": t})
}

// SetSpeed changes the playback speed of an animator.
func (c *Client) SetSpeed(ctx context.Context, ref string, speed float64) (AnimatorInfo, error) {
	return c.callAnimator(ctx, c.setSpeed, map[string]any{"animator": ref, "speed": speed})
}

// SetLoopStyle changes the loop style of an animator.
func (c *Client) SetLoopStyle(ctx context.Context, ref, style string) (AnimatorInfo, error) {
	return c.callAnimator(ctx, c.setLoopStyle, map[string]any{"animator": ref, "loop_style": style})
}

// Sample samples an animator at t, or at its playback time when t is nil.
// With clamp set, tracks hold their end values outside their key range.
func (c *Client) Sample(ctx context.Context, ref string, t *float64, clamp bool) (SampleInfo, error) {
	fields := map[string]any{"animator": ref, "clamp": clamp}
	if t != nil {
		fields["time"] = *t
	}
	var out SampleInfo
	err := c.call(ctx, c.sample, fields, &out)
	return out, err
}

// Remove unregisters an animator and returns its final state.
func (c *Client) Remove(ctx context.Context, ref string) (AnimatorInfo, error) {
	return c.callAnimator(ctx, c.remove, map[string]any{"animator": ref})
}

// Step advances every animator by deltaTime seconds.
func (c *Client) Step(ctx context.Context, deltaTime float64) ([]AnimatorInfo, error) {
	var out struct {
		Animators []AnimatorInfo `mapstructure:"animators"`
	}
	if err := c.call(ctx, c.step, map[string]any{"delta_time": deltaTime}, &out); err != nil {
		return nil, err
	}
	return out.Animators, nil
}

// Watch streams events to fn until ctx is done, the server closes the
// stream or fn returns an error. An empty ref watches every animator.
func (c *Client) Watch(ctx context.Context, ref string, fn func(EventInfo) error) error {
	fields := map[string]any{}
	if ref != "" {
		fields["animator"] = ref
	}
	req, err := c.newRequest(fields)
	if err != nil {
		return err
	}

	stream, err := c.watch.CallServerStream(ctx, req)
	if err != nil {
		return errors.Wrap(err, "failed to open watch stream")
	}
	defer stream.Close()

	for stream.Receive() {
		var ev EventInfo
		if err := decodeMessage(stream.Msg(), &ev); err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "watch stream failed")
	}
	return nil
}

func (c *Client) callAnimator(ctx context.Context, r *rpc, fields map[string]any) (AnimatorInfo, error) {
	var out AnimatorInfo
	err := c.call(ctx, r, fields, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, r *rpc, fields map[string]any, out any) error {
	req, err := c.newRequest(fields)
	if err != nil {
		return err
	}
	resp, err := r.CallUnary(ctx, req)
	if err != nil {
		return err
	}
	return decodeMessage(resp.Msg, out)
}

func (c *Client) newRequest(fields map[string]any) (*connect.Request[structpb.Struct], error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}
	req := connect.NewRequest(msg)
	if c.token != "" {
		req.Header().Set(AdminTokenHeader, c.token)
	}
	return req, nil
}
