package mcp

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Endpoint           string   `json:"endpoint"`
	Connected          bool     `json:"connected"`
	ActiveConnection   string   `json:"active_connection,omitempty"`
	PendingConnections int      `json:"pending_connections"`
	Capabilities       []string `json:"capabilities"`
	Windows            int      `json:"windows"`
	ShownWindows       int      `json:"shown_windows"`
	DamagedWindows     int      `json:"damaged_windows"`
	UptimeSeconds      int64    `json:"uptime_seconds"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	ShownOnly bool   `json:"shown_only,omitempty" jsonschema:"When true, only list windows currently shown by the viewer"`
	Title     string `json:"title,omitempty" jsonschema:"Optional case-insensitive substring the window title must contain"`
}

// WindowInfo describes one mirrored window.
type WindowInfo struct {
	ID            uint32 `json:"id"`
	Handle        uint32 `json:"handle"`
	Title         string `json:"title"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Shown         bool   `json:"shown"`
	Owner         string `json:"owner"`
	DamagedPixels int    `json:"damaged_pixels"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}
