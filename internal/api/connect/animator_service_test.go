package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/animbox/internal/app/animation"
	"github.com/osa030/animbox/internal/app/animator"
	"github.com/osa030/animbox/internal/app/notification"
	"github.com/osa030/animbox/internal/domain/spline"
	"github.com/osa030/animbox/internal/infra/config"
)

const testToken = "secret"

type testEnv struct {
	srv       *httptest.Server
	animators *animator.Manager
	client    *Client
	anonymous *Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mgr := animator.NewManager(animator.Config{EventBuffer: 32})
	notif := notification.NewManager()

	ctx, cancel := context.WithCancel(context.Background())
	go notification.Forward(ctx, notif, mgr.Events(), EncodeEvent)

	cfg := &config.Config{Admin: config.AdminConfig{Token: testToken}}
	path, handler := NewAnimatorServiceHandler(
		NewAnimatorService(mgr, notif),
		connect.WithInterceptors(NewAdminAuthInterceptor(cfg)),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		cancel()
		notif.Close()
		mgr.Close()
		srv.Close()
	})

	return &testEnv{
		srv:       srv,
		animators: mgr,
		client:    NewClient(srv.Client(), srv.URL, testToken),
		anonymous: NewClient(srv.Client(), srv.URL, ""),
	}
}

func (e *testEnv) withToken(token string) *Client {
	return NewClient(e.srv.Client(), e.srv.URL, token)
}

func (e *testEnv) addLine(t *testing.T, name string, style animation.LoopStyle, end float64) {
	t.Helper()
	s := spline.New(
		spline.NewKey(0, 0, spline.Linear()),
		spline.NewKey(end, end, spline.Linear()),
	)
	o := animation.NewOne(s)
	o.LoopStyle = style
	_, err := e.animators.Add(name, "one", o)
	require.NoError(t, err)
}

func TestAnimatorService_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	env.addLine(t, "a", animation.Loop, 2)
	env.addLine(t, "b", animation.Once, 4)

	list, err := env.anonymous.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "loop", list[0].LoopStyle)
	assert.Equal(t, 1, list[0].TrackCount)
	require.NotNil(t, list[1].Duration)
	assert.Equal(t, 4.0, *list[1].Duration)

	byID, err := env.anonymous.Get(context.Background(), list[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "b", byID.Name)

	_, err = env.anonymous.Get(context.Background(), "missing")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestAnimatorService_AuthRequiredForControls(t *testing.T) {
	env := newTestEnv(t)
	env.addLine(t, "a", animation.Once, 1)

	_, err := env.anonymous.Pause(context.Background(), "a")
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = env.withToken("nope").Pause(context.Background(), "a")
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	info, err := env.client.Pause(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, info.Paused)
}

func TestAnimatorService_Controls(t *testing.T) {
	env := newTestEnv(t)
	env.addLine(t, "a", animation.Once, 4)
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() (AnimatorInfo, error)
		check func(t *testing.T, info AnimatorInfo)
	}{
		{
			name: "toggle pause",
			call: func() (AnimatorInfo, error) { return env.client.TogglePause(ctx, "a") },
			check: func(t *testing.T, info AnimatorInfo) {
				assert.True(t, info.Paused)
			},
		},
		{
			name: "play",
			call: func() (AnimatorInfo, error) { return env.client.Play(ctx, "a") },
			check: func(t *testing.T, info AnimatorInfo) {
				assert.False(t, info.Paused)
			},
		},
		{
			name: "seek",
			call: func() (AnimatorInfo, error) { return env.client.Seek(ctx, "a", 3) },
			check: func(t *testing.T, info AnimatorInfo) {
				assert.Equal(t, 3.0, info.Time)
			},
		},
		{
			name: "reverse speed",
			call: func() (AnimatorInfo, error) { return env.client.SetSpeed(ctx, "a", -0.5) },
			check: func(t *testing.T, info AnimatorInfo) {
				assert.Equal(t, -0.5, info.Speed)
			},
		},
		{
			name: "zero speed",
			call: func() (AnimatorInfo, error) { return env.client.SetSpeed(ctx, "a", 0) },
			check: func(t *testing.T, info AnimatorInfo) {
				assert.Equal(t, 0.0, info.Speed)
			},
		},
		{
			name: "loop style",
			call: func() (AnimatorInfo, error) { return env.client.SetLoopStyle(ctx, "a", "ping-pong") },
			check: func(t *testing.T, info AnimatorInfo) {
				assert.Equal(t, "pingpong", info.LoopStyle)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := tt.call()
			require.NoError(t, err)
			assert.Equal(t, "a", info.Name)
			tt.check(t, info)
		})
	}
}

func TestAnimatorService_InvalidArguments(t *testing.T) {
	env := newTestEnv(t)
	env.addLine(t, "a", animation.Once, 1)
	ctx := context.Background()

	_, err := env.client.SetLoopStyle(ctx, "a", "sideways")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = env.client.Get(ctx, "")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = env.client.Seek(ctx, "missing", 1)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestAnimatorService_StepAndSample(t *testing.T) {
	env := newTestEnv(t)
	env.addLine(t, "a", animation.Once, 4)
	ctx := context.Background()

	list, err := env.client.Step(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1.0, list[0].Time)

	res, err := env.anonymous.Sample(ctx, "a", nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Time)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, "value", res.Tracks[0].Track)
	assert.True(t, res.Tracks[0].OK)
	assert.InDelta(t, 1.0, res.Tracks[0].Value, 1e-9)

	outside := 9.0
	res, err = env.anonymous.Sample(ctx, "a", &outside, false)
	require.NoError(t, err)
	assert.False(t, res.Clamped)
	assert.False(t, res.Tracks[0].OK)

	res, err = env.anonymous.Sample(ctx, "a", &outside, true)
	require.NoError(t, err)
	assert.True(t, res.Clamped)
	require.True(t, res.Tracks[0].OK)
	assert.Equal(t, 4.0, res.Tracks[0].Value)

	_, err = env.anonymous.Step(ctx, 1)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestAnimatorService_Remove(t *testing.T) {
	env := newTestEnv(t)
	env.addLine(t, "a", animation.Once, 1)
	env.addLine(t, "b", animation.Once, 1)
	ctx := context.Background()

	_, err := env.anonymous.Remove(ctx, "a")
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	removed, err := env.client.Remove(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", removed.Name)

	list, err := env.anonymous.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].Name)

	_, err = env.client.Remove(ctx, "a")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = env.client.Remove(ctx, "")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestAnimatorService_Watch(t *testing.T) {
	env := newTestEnv(t)
	env.addLine(t, "a", animation.Once, 1)
	env.addLine(t, "b", animation.Once, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stop := errors.New("stop")
	events := make(chan EventInfo, 4)
	done := make(chan error, 1)
	go func() {
		done <- env.anonymous.Watch(ctx, "b", func(ev EventInfo) error {
			events <- ev
			return stop
		})
	}()

	// Keep changing state until the subscription is live and an event
	// for "b" arrives. Events for "a" are filtered out.
	var got EventInfo
	require.Eventually(t, func() bool {
		if _, err := env.client.TogglePause(ctx, "a"); err != nil {
			return false
		}
		if _, err := env.client.TogglePause(ctx, "b"); err != nil {
			return false
		}
		select {
		case got = <-events:
			return true
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)

	assert.Contains(t, []string{"registered", "state_changed"}, got.Type)
	assert.Equal(t, "b", got.Animator.Name)
	assert.NotZero(t, got.SequenceNo)

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, stop))
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return")
	}
}

func TestAnimatorService_WatchUnknownAnimator(t *testing.T) {
	env := newTestEnv(t)

	err := env.anonymous.Watch(context.Background(), "ghost", func(EventInfo) error { return nil })
	require.Error(t, err)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}
