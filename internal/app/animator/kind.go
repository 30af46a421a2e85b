// Package animator hosts spline groups and drives them from a tick loop.
package animator

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/animbox/internal/app/animation"
	"github.com/osa030/animbox/internal/domain/spline"
)

// Factory builds a group from kind-specific settings.
type Factory func(settings map[string]any) (animation.Player, error)

// Kind is a registered group shape.
type Kind struct {
	Name        string
	Description string
	Factory     Factory
}

// kinds holds registered kinds.
var kinds = make(map[string]Kind)

// RegisterKind registers a group kind.
func RegisterKind(name, description string, factory Factory) {
	kinds[name] = Kind{Name: name, Description: description, Factory: factory}
}

// Kinds returns all registered kinds sorted by name.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Build creates a group of the given kind. An empty kind means "one".
func Build(kind string, settings map[string]any) (animation.Player, error) {
	if kind == "" {
		kind = "one"
	}
	k, ok := kinds[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "kind %q", kind)
	}
	p, err := k.Factory(settings)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s group", kind)
	}
	return p, nil
}

func init() {
	RegisterKind("one", "Single track", newOneFromSettings)
	RegisterKind("many", "Indexed list of tracks", newManyFromSettings)
	RegisterKind("named", "Tracks addressed by name (e.g. x, y, z)", newNamedFromSettings)
}

// KeyConfig is a control point as written in settings.
type KeyConfig struct {
	T             float64  `mapstructure:"t"`
	Value         float64  `mapstructure:"value"`
	Interpolation string   `mapstructure:"interpolation" default:"linear"`
	Threshold     *float64 `mapstructure:"threshold" default:"0.5"`
}

// TrackConfig is a track as written in settings.
type TrackConfig struct {
	Keys []KeyConfig `mapstructure:"keys"`
}

type oneSettings struct {
	Keys []KeyConfig `mapstructure:"keys"`
}

type manySettings struct {
	Tracks []TrackConfig `mapstructure:"tracks"`
}

type namedSettings struct {
	Tracks map[string]TrackConfig `mapstructure:"tracks" validate:"required"`
}

func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func newOneFromSettings(settings map[string]any) (animation.Player, error) {
	var cfg oneSettings
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	s, err := buildSpline(cfg.Keys)
	if err != nil {
		return nil, err
	}
	return animation.NewOne(s), nil
}

func newManyFromSettings(settings map[string]any) (animation.Player, error) {
	var cfg manySettings
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	splines := make([]*spline.Spline, 0, len(cfg.Tracks))
	for i, tc := range cfg.Tracks {
		s, err := buildSpline(tc.Keys)
		if err != nil {
			return nil, errors.Wrapf(err, "track %d", i)
		}
		splines = append(splines, s)
	}
	return animation.NewMany(splines...), nil
}

func newNamedFromSettings(settings map[string]any) (animation.Player, error) {
	var cfg namedSettings
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	splines := make(map[string]*spline.Spline, len(cfg.Tracks))
	for name, tc := range cfg.Tracks {
		s, err := buildSpline(tc.Keys)
		if err != nil {
			return nil, errors.Wrapf(err, "track %s", name)
		}
		splines[name] = s
	}
	return animation.NewNamed(splines), nil
}

// buildSpline converts configured keys. Keys must be sorted by time.
func buildSpline(keys []KeyConfig) (*spline.Spline, error) {
	s := spline.New()
	for i, k := range keys {
		threshold := 0.5
		if k.Threshold != nil {
			threshold = *k.Threshold
		}
		interp, err := spline.ParseInterpolation(k.Interpolation, threshold)
		if err != nil {
			return nil, errors.Wrapf(err, "key %d", i)
		}
		if i > 0 && k.T < keys[i-1].T {
			return nil, errors.Newf("key %d: time %v is before previous key time %v", i, k.T, keys[i-1].T)
		}
		s.Add(spline.NewKey(k.T, k.Value, interp))
	}
	return s, nil
}
