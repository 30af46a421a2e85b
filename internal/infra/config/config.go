// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Admin      AdminConfig       `yaml:"admin"`
	Engine     EngineConfig      `yaml:"engine"`
	Animations []AnimationConfig `yaml:"animations" validate:"dive"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// EngineConfig represents tick loop configuration.
type EngineConfig struct {
	TickRateHz  int     `yaml:"tick_rate_hz" default:"60" validate:"gte=1,lte=1000"`
	TimeScale   float64 `yaml:"time_scale" default:"1" validate:"gt=0"`
	EventBuffer int     `yaml:"event_buffer" default:"64" validate:"gte=1"`
}

// AnimationConfig represents a single animation definition.
type AnimationConfig struct {
	Name      string         `yaml:"name" validate:"required"`
	Kind      string         `yaml:"kind" default:"one"`
	LoopStyle string         `yaml:"loop_style" default:"once" validate:"omitempty,oneof=once loop pingpong ping_pong ping-pong"`
	Speed     *float64       `yaml:"speed" default:"1"`
	Time      float64        `yaml:"time"`
	Paused    bool           `yaml:"paused"`
	Settings  map[string]any `yaml:"settings" validate:"required"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("ANIMBOX_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ANIMBOX_TICK_RATE_HZ"); v != "" {
		hz, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid ANIMBOX_TICK_RATE_HZ %q", v)
		}
		c.Engine.TickRateHz = hz
	}
	return nil
}

// Validate validates the configuration. Loop style names are matched
// case-insensitively and stored in lower case.
func (c *Config) Validate() error {
	for i := range c.Animations {
		c.Animations[i].LoopStyle = strings.ToLower(strings.TrimSpace(c.Animations[i].LoopStyle))
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Names are used to address animations, so they must be unique
	seen := make(map[string]bool, len(c.Animations))
	for _, a := range c.Animations {
		if seen[a.Name] {
			return errors.Newf("duplicate animation name: %s", a.Name)
		}
		seen[a.Name] = true
	}

	return nil
}

// SpeedOrDefault returns the configured speed, or 1 when unset.
func (a *AnimationConfig) SpeedOrDefault() float64 {
	if a.Speed == nil {
		return 1
	}
	return *a.Speed
}
