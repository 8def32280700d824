package session

import (
	"errors"

	"github.com/1broseidon/winmirror/internal/damage"
	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
)

// HandlePacket dispatches one inbound packet from p.
//
// A pending connection may only say hello. Anything else from it, and any
// malformed packet from the active connection, closes that connection.
// Packets from connections that are neither pending nor active were in
// flight when the connection was displaced and are dropped.
func (s *Server) HandlePacket(p Peer, pkt protocol.Packet) {
	if lost, ok := pkt.(protocol.ConnectionLost); ok {
		s.connectionLost(p, lost)
		return
	}

	if hello, ok := pkt.(protocol.Hello); ok {
		if _, pending := s.pending[p]; pending || p == s.active {
			s.handshake(p, hello)
		}
		return
	}

	if _, pending := s.pending[p]; pending {
		p.Logger().Warn("packet before hello", "type", pkt.Type())
		delete(s.pending, p)
		p.Close()
		return
	}
	if p != s.active {
		return
	}

	if err := s.dispatch(pkt); err != nil {
		if errors.Is(err, protocol.ErrUnknownWindow) {
			p.Logger().Debug("packet for unknown window", "type", pkt.Type())
			return
		}
		if errors.Is(err, protocol.ErrProtocolViolation) {
			p.Logger().Warn("closing connection", "error", err)
			s.dropActive()
			p.Close()
			return
		}
		p.Logger().Warn("packet handler failed", "type", pkt.Type(), "error", err)
	}
}

// handshake promotes p to the active connection and replays every tracked
// window to it.
func (s *Server) handshake(p Peer, hello protocol.Hello) {
	delete(s.pending, p)
	if s.active != nil && s.active != p {
		old := s.active
		s.dropActive()
		old.Logger().Info("displaced by new connection", "by", p.ID())
		old.Close()
	}

	caps := protocol.IntersectCapabilities(s.caps, hello.Capabilities)
	s.active = p
	s.negotiated = caps
	s.source = damage.New(s, s.chunk, p.SourceHasMore, p.Logger())

	p.Send(protocol.Hello{Capabilities: caps})
	if protocol.HasCapability(caps, protocol.CapabilityDeflate) {
		p.EnableCompression()
	}
	p.SetSource(s.source)

	// The viewer starts from nothing: every window is hidden until it maps
	// its replica, and announced in id order.
	for _, id := range s.desktop.IDs() {
		if err := s.desktop.Hide(id); err != nil {
			s.log.Debug("failed to hide window", "window", id, "error", err)
		}
		s.source.EnqueueControl(s.newWindowPacket(id))
	}
	p.Logger().Info("connection active", "capabilities", caps, "windows", s.desktop.Len())
}

func (s *Server) connectionLost(p Peer, lost protocol.ConnectionLost) {
	if _, pending := s.pending[p]; pending {
		delete(s.pending, p)
		return
	}
	if p == s.active {
		s.dropActive()
		p.Logger().Info("active connection lost", "error", lost.Err)
	}
}

// dropActive discards the active connection's queues.
func (s *Server) dropActive() {
	if s.active != nil {
		s.active.SetSource(nil)
	}
	s.active = nil
	s.source = nil
	s.negotiated = nil
}

func (s *Server) dispatch(pkt protocol.Packet) error {
	switch v := pkt.(type) {
	case protocol.MapWindow:
		return s.mapWindow(v)
	case protocol.UnmapWindow:
		return s.unmapWindow(v)
	case protocol.MoveWindow:
		return s.moveWindow(v)
	case protocol.ResizeWindow:
		return s.resizeWindow(v)
	case protocol.WindowOrder:
		return s.desktop.Reorder(v.IDs)
	case protocol.CloseWindow:
		return s.closeWindow(v)
	default:
		return protocol.Violationf(pkt.Type(), "not accepted by the server")
	}
}

func (s *Server) mapWindow(m protocol.MapWindow) error {
	r := platform.Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}
	return s.show(m.ID, r, true)
}

func (s *Server) unmapWindow(u protocol.UnmapWindow) error {
	if err := s.desktop.Hide(u.ID); err != nil {
		return err
	}
	s.source.CancelDamage(u.ID)
	return nil
}

func (s *Server) moveWindow(m protocol.MoveWindow) error {
	g, ok := s.desktop.Geometry(m.ID)
	if !ok {
		return protocol.ErrUnknownWindow
	}
	// A move of a shown window keeps its pixels; only a newly shown window
	// needs repainting.
	repaint := !s.desktop.Visible(m.ID)
	return s.show(m.ID, platform.Rect{X: m.X, Y: m.Y, Width: g.Width, Height: g.Height}, repaint)
}

func (s *Server) resizeWindow(r protocol.ResizeWindow) error {
	g, ok := s.desktop.Geometry(r.ID)
	if !ok {
		return protocol.ErrUnknownWindow
	}
	return s.show(r.ID, platform.Rect{X: g.X, Y: g.Y, Width: r.Width, Height: r.Height}, true)
}

// show places the window and, when repaint is set, replaces its pending
// damage with the whole of its new bounds.
func (s *Server) show(id platform.WindowID, r platform.Rect, repaint bool) error {
	if repaint {
		s.source.CancelDamage(id)
	}
	geom, err := s.desktop.Show(id, r)
	if errors.Is(err, protocol.ErrUnknownWindow) {
		return err
	}
	if err != nil {
		// Geometry conflicts are already logged; the native size stands.
		s.log.Debug("show", "window", id, "error", err)
	}
	if repaint {
		s.source.MarkDamaged(id, platform.Rect{Width: geom.Width, Height: geom.Height})
	}
	return nil
}

func (s *Server) closeWindow(c protocol.CloseWindow) error {
	h, ok := s.arena.Handle(c.ID)
	if !ok {
		return protocol.ErrUnknownWindow
	}
	return s.backend.RequestClose(h)
}
