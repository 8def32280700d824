package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	case e.Source.Kind == SourceEnv:
		return fmt.Sprintf("%s (from %s): %v", e.Path, e.Source.Name, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw on top of the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Endpoint != nil {
		cfg.Endpoint = strings.TrimSpace(*raw.Endpoint)
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.Capabilities != nil {
		caps := make([]string, 0, len(*raw.Capabilities))
		for _, c := range *raw.Capabilities {
			if c = strings.TrimSpace(c); c != "" {
				caps = append(caps, c)
			}
		}
		cfg.Capabilities = caps
	}
	if raw.MaxChunkPixels != nil {
		cfg.MaxChunkPixels = *raw.MaxChunkPixels
	}
	if raw.ReconcileInterval != nil {
		cfg.ReconcileInterval = *raw.ReconcileInterval
	}
	if raw.FillColor != nil {
		cfg.FillColor = strings.TrimSpace(*raw.FillColor)
	}
	if raw.Checksum != nil {
		cfg.Checksum = *raw.Checksum
	}
	if raw.StatusSocket != nil {
		cfg.StatusSocket = *raw.StatusSocket
	}
	return cfg, nil
}
