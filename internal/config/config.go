package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/winmirror/internal/protocol"
)

const (
	DefaultEndpoint          = "default"
	DefaultLogLevel          = "info"
	DefaultMaxChunkPixels    = 512 * 512
	DefaultReconcileInterval = 10 * time.Second
	DefaultFillColor         = "#ffffff"
)

// Duration is a time.Duration that reads and writes as a Go duration
// string ("10s", "1m30s").
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDuration accepts a Go duration string or a bare number of seconds.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Duration(time.Duration(n) * time.Second), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return Duration(d), nil
}

// Config holds the application configuration.
type Config struct {
	Endpoint          string   `yaml:"endpoint"`
	Display           string   `yaml:"display,omitempty"`
	LogLevel          string   `yaml:"log_level"`
	Capabilities      []string `yaml:"capabilities"`
	MaxChunkPixels    int      `yaml:"max_chunk_pixels"`
	ReconcileInterval Duration `yaml:"reconcile_interval"`
	FillColor         string   `yaml:"fill_color"`
	Checksum          bool     `yaml:"checksum"`
	StatusSocket      bool     `yaml:"status_socket"`
}

func DefaultConfig() *Config {
	return &Config{
		Endpoint:          DefaultEndpoint,
		LogLevel:          DefaultLogLevel,
		Capabilities:      append([]string(nil), protocol.KnownCapabilities...),
		MaxChunkPixels:    DefaultMaxChunkPixels,
		ReconcileInterval: Duration(DefaultReconcileInterval),
		FillColor:         DefaultFillColor,
		Checksum:          true,
		StatusSocket:      true,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return &ValidationError{Path: "endpoint", Err: fmt.Errorf("must not be empty")}
	}
	if strings.ContainsAny(c.Endpoint, `/\`) {
		return &ValidationError{Path: "endpoint", Err: fmt.Errorf("must be a name, not a path: %q", c.Endpoint)}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("unknown level %q", c.LogLevel)}
	}
	for _, name := range c.Capabilities {
		if !protocol.IsKnownCapability(name) {
			return &ValidationError{Path: "capabilities", Err: fmt.Errorf("unknown capability %q", name)}
		}
	}
	if c.MaxChunkPixels <= 0 {
		return &ValidationError{Path: "max_chunk_pixels", Err: fmt.Errorf("must be positive, got %d", c.MaxChunkPixels)}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("must not be negative")}
	}
	if _, err := ParseColor(c.FillColor); err != nil {
		return &ValidationError{Path: "fill_color", Err: err}
	}
	return nil
}

// Fill returns the parsed fill colour. Call after Validate.
func (c *Config) Fill() [3]byte {
	rgb, err := ParseColor(c.FillColor)
	if err != nil {
		return [3]byte{0xff, 0xff, 0xff}
	}
	return rgb
}

// ParseColor parses "#rrggbb" or "#rgb".
func ParseColor(s string) ([3]byte, error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return [3]byte{}, fmt.Errorf("colour %q must start with #", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return [3]byte{}, fmt.Errorf("colour %q must have 3 or 6 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return [3]byte{}, fmt.Errorf("colour %q is not hexadecimal", s)
	}
	return [3]byte{byte(v >> 16), byte(v >> 8), byte(v)}, nil
}

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
