package config

import (
	"fmt"
)

// Explain returns the effective value at a top-level key and where it came
// from: the config file, an environment variable or the defaults.
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}
	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// Keys lists the keys Explain understands, in file order.
func Keys() []string {
	keys := make([]string, len(envKeys))
	for i, k := range envKeys {
		keys[i] = k.path
	}
	return keys
}

func lookupValue(cfg *Config, path string) (any, error) {
	switch path {
	case "endpoint":
		return cfg.Endpoint, nil
	case "display":
		return cfg.Display, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "capabilities":
		return cfg.Capabilities, nil
	case "max_chunk_pixels":
		return cfg.MaxChunkPixels, nil
	case "reconcile_interval":
		return cfg.ReconcileInterval.String(), nil
	case "fill_color":
		return cfg.FillColor, nil
	case "checksum":
		return cfg.Checksum, nil
	case "status_socket":
		return cfg.StatusSocket, nil
	}
	return nil, fmt.Errorf("unknown config key %q", path)
}
