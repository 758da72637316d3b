// Package config loads holefind settings from defaults, an optional TOML
// file, HOLEFIND_* environment variables and command line flags, in
// increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/holefind/pkg/classify"
	"github.com/chazu/holefind/pkg/kernel"
	"github.com/chazu/holefind/pkg/threads"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = "holefind.toml"

// EnvPrefix prefixes environment overrides, e.g. HOLEFIND_LINEAR_TOL=0.01.
const EnvPrefix = "HOLEFIND_"

// Config holds all configuration for the application. Keys match the
// command line flag names.
type Config struct {
	LinearTol    float64 `koanf:"linear-tol"`
	AngularTol   float64 `koanf:"angular-tol"`
	CoaxialTol   float64 `koanf:"coaxial-tol"`
	ChamferRatio float64 `koanf:"chamfer-ratio"`
	FilletRatio  float64 `koanf:"fillet-ratio"`
	ThreadSlack  float64 `koanf:"thread-slack"`
	Workers      int     `koanf:"workers"`

	Direction  string `koanf:"direction"`
	Convention string `koanf:"convention"`
	Output     string `koanf:"output"`
	Write      bool   `koanf:"write"`
	Tools      bool   `koanf:"tools"`
	Preview    string `koanf:"preview"`
	Watch      bool   `koanf:"watch"`

	LogLevel string `koanf:"log-level"`
	LogJSON  bool   `koanf:"log-json"`
}

// Defaults returns the built in settings.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"linear-tol":    kernel.DefaultTolerance.Linear,
		"angular-tol":   kernel.DefaultTolerance.Angular,
		"coaxial-tol":   kernel.DefaultTolerance.Coaxial,
		"chamfer-ratio": classify.DefaultOptions.ChamferRatio,
		"fillet-ratio":  classify.DefaultOptions.FilletRatio,
		"thread-slack":  threads.DefaultOptions.RadiusSlack,
		"workers":       0,
		"direction":     "",
		"convention":    "hypermill",
		"output":        "holes.json",
		"write":         false,
		"tools":         false,
		"preview":       "",
		"watch":         false,
		"log-level":     "info",
		"log-json":      false,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
// An empty path reads DefaultFile when it exists; a named file must exist.
func Load(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	required := path != ""
	if !required {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	} else if required || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config file: %w", err)
	}

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.LinearTol <= 0 || c.AngularTol <= 0 || c.CoaxialTol <= 0 {
		return fmt.Errorf("tolerances must be positive")
	}
	if c.ChamferRatio < 0 || c.FilletRatio < 0 || c.ThreadSlack < 0 {
		return fmt.Errorf("ratios must not be negative")
	}
	switch c.Convention {
	case "hypermill", "nx":
	default:
		return fmt.Errorf("unknown convention %q (want hypermill or nx)", c.Convention)
	}
	if _, _, err := c.ApproachDirection(); err != nil {
		return err
	}
	return nil
}

// Tolerance returns the geometric tolerances.
func (c *Config) Tolerance() kernel.Tolerance {
	return kernel.Tolerance{Linear: c.LinearTol, Angular: c.AngularTol, Coaxial: c.CoaxialTol}
}

// ClassifyOptions returns the classification settings.
func (c *Config) ClassifyOptions() classify.Options {
	return classify.Options{
		Tolerance:    c.Tolerance(),
		ChamferRatio: c.ChamferRatio,
		FilletRatio:  c.FilletRatio,
		Workers:      c.Workers,
	}
}

// ThreadOptions returns the thread matching settings.
func (c *Config) ThreadOptions() threads.Options {
	return threads.Options{Tolerance: c.Tolerance(), RadiusSlack: c.ThreadSlack}
}

// ApproachDirection parses the "x,y,z" tool approach direction. ok is false
// when none is set.
func (c *Config) ApproachDirection() (v3.Vec, bool, error) {
	s := strings.TrimSpace(c.Direction)
	if s == "" {
		return v3.Vec{}, false, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v3.Vec{}, false, fmt.Errorf("direction %q: want x,y,z", c.Direction)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v3.Vec{}, false, fmt.Errorf("direction %q: %w", c.Direction, err)
		}
		xyz[i] = v
	}
	d := v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	if d.Length() == 0 {
		return v3.Vec{}, false, fmt.Errorf("direction %q is the zero vector", c.Direction)
	}
	return d.Normalize(), true, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
