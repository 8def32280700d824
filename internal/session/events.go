package session

import (
	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
)

// HandleEvent applies one native event.
func (s *Server) HandleEvent(ev platform.Event) {
	switch e := ev.(type) {
	case platform.Created:
		s.windowCreated(e.Handle)
	case platform.RedrawNeeded:
		s.redrawNeeded(e.Handle, e.Area)
	case platform.PropertyChanged:
		s.propertyChanged(e.Handle, e.Name)
	case platform.GeometryChanged:
		s.geometryChanged(e.Handle, e.Bounds)
	case platform.Unmanaged:
		s.windowUnmanaged(e.Handle)
	default:
		s.log.Debug("ignoring native event", "event", ev)
	}
}

func (s *Server) windowCreated(h platform.Handle) {
	if _, known := s.arena.ID(h); known {
		return
	}
	geom, err := s.backend.Geometry(h)
	if err != nil {
		// The window vanished before we got to it.
		s.log.Debug("skipping window without geometry", "handle", h, "error", err)
		return
	}

	id := s.arena.Alloc(h)
	if err := s.desktop.Track(id, h, geom); err != nil {
		s.arena.Free(id)
		s.log.Warn("failed to track window", "window", id, "error", err)
		return
	}
	s.desktop.SetMetadata(id, s.titleMetadata(h))
	s.desktop.SetMetadata(id, s.hintsMetadata(h))
	s.log.Debug("window tracked", "window", id, "handle", h, "geometry", geom)

	if s.source != nil {
		s.source.EnqueueControl(s.newWindowPacket(id))
	}
}

func (s *Server) redrawNeeded(h platform.Handle, area platform.Rect) {
	id, ok := s.arena.ID(h)
	if !ok || s.source == nil {
		return
	}
	// Hidden windows get a full repaint when shown again.
	if !s.desktop.Visible(id) {
		return
	}
	s.source.MarkDamaged(id, area)
}

func (s *Server) geometryChanged(h platform.Handle, r platform.Rect) {
	id, ok := s.arena.ID(h)
	if !ok {
		return
	}
	old, _ := s.desktop.Geometry(id)
	if old == r {
		return
	}
	s.desktop.SetGeometry(id, r)
	s.log.Debug("window geometry changed", "window", id, "from", old, "to", r)
	// A move leaves the contents alone.
	if old.Size() == r.Size() || s.source == nil {
		return
	}
	s.source.CancelDamage(id)
	if !s.desktop.Visible(id) {
		return
	}
	// The viewer sizes its replica from new-window, so announce the window
	// again before repainting it at the new size.
	s.source.EnqueueControl(s.newWindowPacket(id))
	s.source.MarkDamaged(id, platform.Rect{Width: r.Width, Height: r.Height})
}

func (s *Server) propertyChanged(h platform.Handle, name string) {
	id, ok := s.arena.ID(h)
	if !ok {
		return
	}
	var md protocol.Metadata
	switch name {
	case platform.PropertyTitle:
		md = s.titleMetadata(h)
	case platform.PropertySizeHints:
		md = s.hintsMetadata(h)
	default:
		return
	}
	if md.IsEmpty() {
		return
	}
	s.desktop.SetMetadata(id, md)
	if s.source != nil {
		s.source.EnqueueControl(protocol.WindowMetadata{ID: id, Metadata: md})
	}
}

func (s *Server) windowUnmanaged(h platform.Handle) {
	id, ok := s.arena.ID(h)
	if !ok {
		return
	}
	if s.source != nil {
		s.source.EnqueueControl(protocol.LostWindow{ID: id})
		s.source.CancelDamage(id)
		s.source.Forget(id)
	}
	s.desktop.Untrack(id)
	s.arena.Free(id)
	s.log.Debug("window lost", "window", id, "handle", h)
}

func (s *Server) titleMetadata(h platform.Handle) protocol.Metadata {
	title, ok := s.backend.Title(h)
	if !ok {
		return protocol.Metadata{}
	}
	return protocol.TitleMetadata(title)
}

func (s *Server) hintsMetadata(h platform.Handle) protocol.Metadata {
	hints, err := s.backend.SizeHints(h)
	if err != nil {
		return protocol.Metadata{}
	}
	return protocol.HintsMetadata(hints)
}

func (s *Server) newWindowPacket(id platform.WindowID) protocol.NewWindow {
	rec, _ := s.desktop.Record(id)
	return protocol.NewWindow{
		ID:       id,
		X:        rec.Geometry.X,
		Y:        rec.Geometry.Y,
		Width:    rec.Geometry.Width,
		Height:   rec.Geometry.Height,
		Metadata: rec.Metadata,
	}
}
