// Package spline provides time-keyed 1-D curves sampled by time.
package spline

import (
	"math"
	"sort"
)

// Key is a single control point of a spline.
type Key struct {
	T             float64       // Key time
	Value         float64       // Value at T
	Interpolation Interpolation // How the segment starting at this key is sampled
}

// NewKey creates a key.
func NewKey(t, value float64, interpolation Interpolation) Key {
	return Key{T: t, Value: value, Interpolation: interpolation}
}

// Spline is a sequence of keys ordered by ascending time.
// The order is not enforced: callers must supply sorted keys.
type Spline struct {
	keys []Key
}

// New creates a spline from keys that are already sorted by time.
func New(keys ...Key) *Spline {
	return &Spline{keys: append([]Key(nil), keys...)}
}

// Keys returns the keys of the spline. The slice must not be modified.
func (s *Spline) Keys() []Key {
	return s.keys
}

// Len returns the number of keys.
func (s *Spline) Len() int {
	return len(s.keys)
}

// IsEmpty returns true if the spline has no keys.
func (s *Spline) IsEmpty() bool {
	return len(s.keys) == 0
}

// Add appends a key. It must not be earlier than the current last key.
func (s *Spline) Add(k Key) {
	s.keys = append(s.keys, k)
}

// Bounds returns the times of the first and last keys.
// ok is false if the spline is empty.
func (s *Spline) Bounds() (first, last float64, ok bool) {
	if len(s.keys) == 0 {
		return 0, 0, false
	}
	return s.keys[0].T, s.keys[len(s.keys)-1].T, true
}

// Sample returns the value at time t.
// ok is false when there are fewer than two keys, when t is outside the key
// range, or when a Catmull-Rom segment lacks a neighbour on either side.
//
// The range is closed: t equal to the last key time samples the final
// segment at its end and yields the last key's value. Libraries that treat
// the range as half-open return no value there instead.
func (s *Spline) Sample(t float64) (float64, bool) {
	n := len(s.keys)
	if n < 2 || math.IsNaN(t) {
		return 0, false
	}
	if t < s.keys[0].T || t > s.keys[n-1].T {
		return 0, false
	}

	// Last key whose time is <= t, limited so that i+1 is valid.
	i := sort.Search(n, func(j int) bool { return s.keys[j].T > t }) - 1
	if i > n-2 {
		i = n - 2
	}
	if i < 0 {
		return 0, false
	}

	cp0 := s.keys[i]
	cp1 := s.keys[i+1]
	nt := normalize(t, cp0.T, cp1.T)

	switch cp0.Interpolation.Mode {
	case ModeStep:
		if nt < cp0.Interpolation.Threshold {
			return cp0.Value, true
		}
		return cp1.Value, true
	case ModeLinear:
		return lerp(cp0.Value, cp1.Value, nt), true
	case ModeCosine:
		cnt := (1 - math.Cos(nt*math.Pi)) * 0.5
		return lerp(cp0.Value, cp1.Value, cnt), true
	case ModeCatmullRom:
		if i == 0 || i+2 >= n {
			return 0, false
		}
		return catmullRom(s.keys[i-1].Value, cp0.Value, cp1.Value, s.keys[i+2].Value, nt), true
	default:
		return 0, false
	}
}

// SampleClamped is like Sample but clamps t into the key range first.
// A spline with a single key always yields that key's value.
func (s *Spline) SampleClamped(t float64) (float64, bool) {
	n := len(s.keys)
	switch {
	case n == 0:
		return 0, false
	case n == 1:
		return s.keys[0].Value, true
	}

	first, last := s.keys[0], s.keys[n-1]
	if t <= first.T {
		return first.Value, true
	}
	if t >= last.T {
		return last.Value, true
	}
	if v, ok := s.Sample(t); ok {
		return v, true
	}

	// Catmull-Rom edge segments fall back to linear.
	i := sort.Search(n, func(j int) bool { return s.keys[j].T > t }) - 1
	if i < 0 || i > n-2 {
		return 0, false
	}
	cp0, cp1 := s.keys[i], s.keys[i+1]
	return lerp(cp0.Value, cp1.Value, normalize(t, cp0.T, cp1.T)), true
}

// normalize maps t into [0, 1] over [t0, t1]. Zero-length segments map to 1.
func normalize(t, t0, t1 float64) float64 {
	if t1 == t0 {
		return 1
	}
	return (t - t0) / (t1 - t0)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * (2*p1 +
		(p2-p0)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(3*p1-p0-3*p2+p3)*t3)
}
