package session

import (
	"context"
	"time"

	"github.com/1broseidon/winmirror/internal/platform"
)

// Status summarises the server for the status socket.
type Status struct {
	ActiveConnection string   `json:"active_connection,omitempty"`
	PendingConns     int      `json:"pending_connections"`
	AcceptedConns    uint64   `json:"accepted_connections"`
	Capabilities     []string `json:"capabilities,omitempty"`
	Windows          int      `json:"windows"`
	ShownWindows     int      `json:"shown_windows"`
	PendingControl   int      `json:"pending_control"`
	DamagedWindows   int      `json:"damaged_windows"`
	UptimeSeconds    int64    `json:"uptime_seconds"`
}

// WindowInfo describes one tracked window.
type WindowInfo struct {
	ID      platform.WindowID `json:"id"`
	Handle  platform.Handle   `json:"handle"`
	X       int               `json:"x"`
	Y       int               `json:"y"`
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Shown   bool              `json:"shown"`
	Owner   string            `json:"owner"`
	Title   string            `json:"title"`
	Damaged int               `json:"damaged_pixels"`
}

// Status returns a snapshot taken on the event loop.
func (s *Server) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.loop.Call(ctx, func() { st = s.status() })
	return st, err
}

// Windows returns every tracked window, taken on the event loop.
func (s *Server) Windows(ctx context.Context) ([]WindowInfo, error) {
	var out []WindowInfo
	err := s.loop.Call(ctx, func() { out = s.windows() })
	return out, err
}

func (s *Server) status() Status {
	st := Status{
		PendingConns:  len(s.pending),
		AcceptedConns: s.accepted,
		Windows:       s.desktop.Len(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	for _, id := range s.desktop.IDs() {
		if s.desktop.Visible(id) {
			st.ShownWindows++
		}
	}
	if s.active != nil {
		st.ActiveConnection = s.active.ID()
		st.Capabilities = s.negotiated
	}
	if s.source != nil {
		st.PendingControl = s.source.PendingControl()
		st.DamagedWindows = len(s.source.DamagedWindows())
	}
	return st
}

func (s *Server) windows() []WindowInfo {
	ids := s.desktop.IDs()
	out := make([]WindowInfo, 0, len(ids))
	for _, id := range ids {
		rec, ok := s.desktop.Record(id)
		if !ok {
			continue
		}
		info := WindowInfo{
			ID:     id,
			Handle: rec.Handle,
			X:      rec.Geometry.X,
			Y:      rec.Geometry.Y,
			Width:  rec.Geometry.Width,
			Height: rec.Geometry.Height,
			Shown:  rec.Shown,
			Owner:  rec.Owner,
		}
		if rec.Metadata.Title != nil {
			info.Title = *rec.Metadata.Title
		}
		if s.source != nil {
			info.Damaged = s.source.PendingDamage(id).Area()
		}
		out = append(out, info)
	}
	return out
}
