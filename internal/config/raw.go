package config

// RawConfig is the on-disk shape. Pointer fields distinguish "unset" from
// zero values so defaults survive partial files.
type RawConfig struct {
	Endpoint          *string   `yaml:"endpoint"`
	Display           *string   `yaml:"display"`
	LogLevel          *string   `yaml:"log_level"`
	Capabilities      *[]string `yaml:"capabilities"`
	MaxChunkPixels    *int      `yaml:"max_chunk_pixels"`
	ReconcileInterval *Duration `yaml:"reconcile_interval"`
	FillColor         *string   `yaml:"fill_color"`
	Checksum          *bool     `yaml:"checksum"`
	StatusSocket      *bool     `yaml:"status_socket"`
}

// merge returns c with every field set in overlay replaced.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c
	if overlay.Endpoint != nil {
		out.Endpoint = overlay.Endpoint
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Capabilities != nil {
		out.Capabilities = overlay.Capabilities
	}
	if overlay.MaxChunkPixels != nil {
		out.MaxChunkPixels = overlay.MaxChunkPixels
	}
	if overlay.ReconcileInterval != nil {
		out.ReconcileInterval = overlay.ReconcileInterval
	}
	if overlay.FillColor != nil {
		out.FillColor = overlay.FillColor
	}
	if overlay.Checksum != nil {
		out.Checksum = overlay.Checksum
	}
	if overlay.StatusSocket != nil {
		out.StatusSocket = overlay.StatusSocket
	}
	return out
}
