package animator

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/osa030/animbox/internal/app/animation"
	"github.com/osa030/animbox/internal/infra/config"
	"github.com/osa030/animbox/internal/infra/logger"
)

// Config holds manager configuration.
type Config struct {
	TickRateHz  int     // Ticks per second of the Run loop
	TimeScale   float64 // Multiplier applied to wall-clock deltas
	EventBuffer int     // Capacity of the event channel
}

// Manager owns a set of animators and advances them once per tick.
// All access to a group goes through the manager's lock, so every group has
// a single writer.
type Manager struct {
	mu sync.Mutex

	animators []*Animator // Registration order
	byID      map[string]*Animator
	byName    map[string]*Animator

	config Config
	now    func() time.Time

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	log zerolog.Logger
}

// MaxTickRateHz is the highest tick rate Run supports.
const MaxTickRateHz = 1000

// NewManager creates a new manager. Tick rates outside 1..MaxTickRateHz are
// replaced by the default or clamped to the maximum.
func NewManager(cfg Config) *Manager {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 60
	}
	if cfg.TickRateHz > MaxTickRateHz {
		cfg.TickRateHz = MaxTickRateHz
	}
	if cfg.TimeScale <= 0 {
		cfg.TimeScale = 1
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		byID:    make(map[string]*Animator),
		byName:  make(map[string]*Animator),
		config:  cfg,
		now:     time.Now,
		eventCh: make(chan Event, cfg.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
		log:     logger.For("animator"),
	}
}

// NewManagerFromConfig creates a manager and registers the configured
// animations.
func NewManagerFromConfig(cfg *config.Config) (*Manager, error) {
	m := NewManager(Config{
		TickRateHz:  cfg.Engine.TickRateHz,
		TimeScale:   cfg.Engine.TimeScale,
		EventBuffer: cfg.Engine.EventBuffer,
	})
	for i, ac := range cfg.Animations {
		if _, err := m.AddFromConfig(ac); err != nil {
			m.Close()
			return nil, errors.Wrapf(err, "animation %d (%s)", i, ac.Name)
		}
	}
	return m, nil
}

// Events returns the event channel. It is closed by Close.
func (m *Manager) Events() <-chan Event {
	return m.eventCh
}

// Add registers a player under a unique name.
func (m *Manager) Add(name, kind string, p animation.Player) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Snapshot{}, ErrClosed
	}
	if _, exists := m.byName[name]; exists {
		return Snapshot{}, errors.Wrapf(ErrDuplicateName, "name %q", name)
	}

	a := newAnimator(name, kind, p)
	m.animators = append(m.animators, a)
	m.byID[a.ID] = a
	m.byName[a.Name] = a

	snap := a.snapshot()
	m.log.Info().Msgf("registered animator: name=%s kind=%s id=%s tracks=%d", a.Name, a.Kind, a.ID, snap.TrackCount)
	m.sendEventLocked(Event{Type: EventRegistered, Animator: snap})
	return snap, nil
}

// AddFromConfig builds a group from an animation definition and registers it.
func (m *Manager) AddFromConfig(ac config.AnimationConfig) (Snapshot, error) {
	p, err := Build(ac.Kind, ac.Settings)
	if err != nil {
		return Snapshot{}, err
	}
	style, err := animation.ParseLoopStyle(ac.LoopStyle)
	if err != nil {
		return Snapshot{}, err
	}

	st := p.PlaybackState()
	st.LoopStyle = style
	st.Speed = ac.SpeedOrDefault()
	st.Time = ac.Time
	st.Paused = ac.Paused

	kind := ac.Kind
	if kind == "" {
		kind = "one"
	}
	return m.Add(ac.Name, kind, p)
}

// Remove unregisters an animator and returns its final state.
func (m *Manager) Remove(ref string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Snapshot{}, ErrClosed
	}
	a, err := m.lookupLocked(ref)
	if err != nil {
		return Snapshot{}, err
	}

	delete(m.byID, a.ID)
	delete(m.byName, a.Name)
	for i, x := range m.animators {
		if x == a {
			m.animators = append(m.animators[:i], m.animators[i+1:]...)
			break
		}
	}

	snap := a.snapshot()
	m.log.Info().Msgf("removed animator: name=%s id=%s", a.Name, a.ID)
	m.sendEventLocked(Event{Type: EventRemoved, Animator: snap})
	return snap, nil
}

// List returns snapshots of all animators in registration order.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot, 0, len(m.animators))
	for _, a := range m.animators {
		out = append(out, a.snapshot())
	}
	return out
}

// Get returns the snapshot of an animator addressed by id or name.
func (m *Manager) Get(ref string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.lookupLocked(ref)
	if err != nil {
		return Snapshot{}, err
	}
	return a.snapshot(), nil
}

// Pause pauses an animator.
func (m *Manager) Pause(ref string) (Snapshot, error) {
	return m.mutate(ref, func(a *Animator) { a.player.Pause() })
}

// Play resumes an animator.
func (m *Manager) Play(ref string) (Snapshot, error) {
	return m.mutate(ref, func(a *Animator) { a.player.Play() })
}

// TogglePause flips the paused flag of an animator.
func (m *Manager) TogglePause(ref string) (Snapshot, error) {
	return m.mutate(ref, func(a *Animator) { a.player.TogglePause() })
}

// Seek moves the playback cursor. The pong flag is left as is.
func (m *Manager) Seek(ref string, t float64) (Snapshot, error) {
	return m.mutate(ref, func(a *Animator) {
		a.player.PlaybackState().Time = t
		a.finished = false
	})
}

// SetSpeed changes the signed playback speed.
func (m *Manager) SetSpeed(ref string, speed float64) (Snapshot, error) {
	return m.mutate(ref, func(a *Animator) {
		a.player.PlaybackState().Speed = speed
		a.finished = false
	})
}

// SetLoopStyle changes the loop style.
func (m *Manager) SetLoopStyle(ref string, style animation.LoopStyle) (Snapshot, error) {
	return m.mutate(ref, func(a *Animator) {
		a.player.PlaybackState().LoopStyle = style
		a.finished = false
	})
}

// Sample samples every track of an animator. A nil time samples at the
// current playback time. With clamp set, times outside a track's key range
// yield the nearest end key instead of no value.
func (m *Manager) Sample(ref string, at *float64, clamp bool) (SampleResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.lookupLocked(ref)
	if err != nil {
		return SampleResult{}, err
	}
	t := a.player.PlaybackState().Time
	if at != nil {
		t = *at
	}
	tracks := a.player.Labeled(t)
	if clamp {
		tracks = a.player.LabeledClamped(t)
	}
	return SampleResult{
		ID:      a.ID,
		Name:    a.Name,
		Time:    t,
		Clamped: clamp,
		Tracks:  tracks,
	}, nil
}

// Step advances every animator by deltaTime and emits boundary events.
func (m *Manager) Step(deltaTime float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	for _, a := range m.animators {
		m.advanceLocked(a, deltaTime)
	}
	return nil
}

// Run advances all animators at the configured tick rate until the context
// is cancelled or the manager is closed.
func (m *Manager) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(m.config.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Info().Msgf("tick loop started: rate=%dHz scale=%.3f", m.config.TickRateHz, m.config.TimeScale)

	last := m.now()
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("tick loop stopped")
			return ctx.Err()
		case <-m.ctx.Done():
			m.log.Info().Msg("tick loop stopped: manager closed")
			return nil
		case <-ticker.C:
			now := m.now()
			dt := now.Sub(last).Seconds() * m.config.TimeScale
			last = now
			if err := m.Step(dt); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				return err
			}
		}
	}
}

// Close stops the tick loop and closes the event channel.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.cancel()
	close(m.eventCh)
}

// advanceLocked advances one animator.
// Must be called with lock held.
func (m *Manager) advanceLocked(a *Animator, deltaTime float64) {
	switch a.player.Advance(deltaTime) {
	case animation.StepAdvanced:
		a.finished = false
	case animation.StepRestarted:
		m.log.Debug().Msgf("animator restarted: name=%s", a.Name)
		m.sendEventLocked(Event{Type: EventRestarted, Animator: a.snapshot()})
	case animation.StepBounced:
		m.log.Debug().Msgf("animator bounced: name=%s pong=%v", a.Name, a.player.PlaybackState().Pong)
		m.sendEventLocked(Event{Type: EventBounced, Animator: a.snapshot()})
	case animation.StepHeld:
		if !a.finished {
			a.finished = true
			m.log.Debug().Msgf("animator finished: name=%s", a.Name)
			m.sendEventLocked(Event{Type: EventFinished, Animator: a.snapshot()})
		}
	}
}

// mutate applies fn to an animator and emits a state change event.
func (m *Manager) mutate(ref string, fn func(a *Animator)) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.lookupLocked(ref)
	if err != nil {
		return Snapshot{}, err
	}
	fn(a)
	snap := a.snapshot()
	m.sendEventLocked(Event{Type: EventStateChanged, Animator: snap})
	return snap, nil
}

// lookupLocked finds an animator by id, then by name.
// Must be called with lock held.
func (m *Manager) lookupLocked(ref string) (*Animator, error) {
	if a, ok := m.byID[ref]; ok {
		return a, nil
	}
	if a, ok := m.byName[ref]; ok {
		return a, nil
	}
	return nil, errors.Wrapf(ErrNotFound, "animator %q", ref)
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (m *Manager) sendEventLocked(e Event) {
	if m.closed {
		return
	}
	select {
	case m.eventCh <- e:
	default:
		m.log.Warn().Msgf("event channel full, dropping %s event for %s", e.Type, e.Animator.Name)
	}
}
