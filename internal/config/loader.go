package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
	SourceEnv     SourceKind = "env"
)

type Source struct {
	Kind   SourceKind
	Name   string // env variable, or "defaults"
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // YAML path -> last writer
	File    string            // config file, empty when none was read
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WINMIRROR_"

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "winmirror", "config.yaml"), nil
}

// Load reads the configuration from the standard location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads config and returns per-key sources for
// introspection.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads path (a missing file means defaults), then applies
// WINMIRROR_* environment overrides. Variables from a .env file next to
// the config and in the working directory are loaded first; neither
// overrides variables already set.
func LoadFromPath(path string) (*LoadResult, error) {
	LoadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env")

	raw := RawConfig{}
	sources := map[string]Source{}
	file := ""

	if exists, err := pathExists(path); err != nil {
		return nil, err
	} else if exists {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := decodeStrictYAML(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err == nil {
			sources = collectSources(&doc, path)
		}
		file = path
	}

	envRaw, envSources, err := rawFromEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	raw = raw.merge(envRaw)
	for key, src := range envSources {
		sources[key] = src
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err != nil {
		return nil, attachSourceContext(err, sources)
	}
	if err := cfg.Validate(); err != nil {
		return nil, attachSourceContext(err, sources)
	}
	return &LoadResult{Config: cfg, Sources: sources, File: file}, nil
}

// LoadDotEnv loads each existing file with godotenv.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if ok, _ := pathExists(p); ok {
			_ = godotenv.Load(p)
		}
	}
}

type envKey struct {
	path  string
	apply func(raw *RawConfig, value string) error
}

var envKeys = []envKey{
	{"endpoint", func(r *RawConfig, v string) error { r.Endpoint = &v; return nil }},
	{"display", func(r *RawConfig, v string) error { r.Display = &v; return nil }},
	{"log_level", func(r *RawConfig, v string) error { r.LogLevel = &v; return nil }},
	{"capabilities", func(r *RawConfig, v string) error {
		caps := []string{}
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				caps = append(caps, c)
			}
		}
		r.Capabilities = &caps
		return nil
	}},
	{"max_chunk_pixels", func(r *RawConfig, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		r.MaxChunkPixels = &n
		return nil
	}},
	{"reconcile_interval", func(r *RawConfig, v string) error {
		d, err := ParseDuration(v)
		if err != nil {
			return err
		}
		r.ReconcileInterval = &d
		return nil
	}},
	{"fill_color", func(r *RawConfig, v string) error { r.FillColor = &v; return nil }},
	{"checksum", func(r *RawConfig, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("not a boolean: %q", v)
		}
		r.Checksum = &b
		return nil
	}},
	{"status_socket", func(r *RawConfig, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("not a boolean: %q", v)
		}
		r.StatusSocket = &b
		return nil
	}},
}

// EnvName returns the environment variable overriding a config key.
func EnvName(path string) string {
	return EnvPrefix + strings.ToUpper(path)
}

func rawFromEnv(lookup func(string) (string, bool)) (RawConfig, map[string]Source, error) {
	raw := RawConfig{}
	sources := map[string]Source{}
	for _, k := range envKeys {
		name := EnvName(k.path)
		v, ok := lookup(name)
		if !ok {
			continue
		}
		src := Source{Kind: SourceEnv, Name: name}
		if err := k.apply(&raw, v); err != nil {
			return RawConfig{}, nil, &ValidationError{Path: k.path, Source: src, Err: err}
		}
		sources[k.path] = src
	}
	return raw, sources, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func collectSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	if doc == nil {
		return out
	}
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return out
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		out[key.Value] = Source{
			Kind:   SourceFile,
			File:   file,
			Line:   val.Line,
			Column: val.Column,
		}
	}
	return out
}

func attachSourceContext(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok && verr.Source.Kind == "" {
		verr.Source = src
	}
	return verr
}
