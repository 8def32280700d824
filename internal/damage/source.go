// Package damage schedules the outgoing packets of one active connection:
// control packets in strict FIFO order, then pixel updates for damaged
// windows, one rectangle per call.
package damage

import (
	"log/slog"

	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
	"github.com/1broseidon/winmirror/internal/region"
)

// Windows is the live window table the source reads pixels from. Bounds are
// window-local: the origin is always 0,0.
type Windows interface {
	Bounds(id platform.WindowID) (platform.Rect, bool)
	Snapshot(id platform.WindowID, r platform.Rect) (platform.Rect, []byte, bool)
}

// Source is a transport.Source. It is not safe for concurrent use; it lives
// on the event loop like everything else it touches.
type Source struct {
	windows Windows
	tracker *region.Tracker
	wake    func()
	log     *slog.Logger

	control []protocol.Packet

	// Round-robin order of windows that may have pending damage.
	ring   []platform.WindowID
	inRing map[platform.WindowID]bool
}

// New returns a source that chunks damage to maxChunkPixels and calls wake
// whenever new work arrives.
func New(windows Windows, maxChunkPixels int, wake func(), logger *slog.Logger) *Source {
	if wake == nil {
		wake = func() {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		windows: windows,
		tracker: region.NewTracker(maxChunkPixels),
		wake:    wake,
		log:     logger,
		inRing:  make(map[platform.WindowID]bool),
	}
}

// EnqueueControl appends p to the control FIFO.
func (s *Source) EnqueueControl(p protocol.Packet) {
	s.control = append(s.control, p)
	s.wake()
}

// MarkDamaged records r, in window coordinates, as changed. Damage outside
// the window's current bounds is discarded.
func (s *Source) MarkDamaged(id platform.WindowID, r platform.Rect) {
	bounds, ok := s.windows.Bounds(id)
	if !ok {
		return
	}
	r = r.Intersect(bounds)
	if r.Empty() {
		return
	}
	s.tracker.Accrue(id, r)
	if !s.inRing[id] {
		s.inRing[id] = true
		s.ring = append(s.ring, id)
	}
	s.wake()
}

// CancelDamage forgets the pending damage of id.
func (s *Source) CancelDamage(id platform.WindowID) {
	s.tracker.Invalidate(id)
}

// Forget drops every trace of id.
func (s *Source) Forget(id platform.WindowID) {
	s.tracker.Drop(id)
}

// Next returns the next packet to send, or nil if this call produced none,
// and whether more work remains.
func (s *Source) Next() (protocol.Packet, bool) {
	if len(s.control) > 0 {
		p := s.control[0]
		s.control[0] = nil
		s.control = s.control[1:]
		return p, s.HasMore()
	}

	for len(s.ring) > 0 {
		id := s.ring[0]
		s.ring = s.ring[1:]
		delete(s.inRing, id)

		if !s.tracker.HasPending(id) {
			continue
		}
		if _, ok := s.windows.Bounds(id); !ok {
			s.tracker.Drop(id)
			continue
		}

		r, _ := s.tracker.TakeOne(id)
		if s.tracker.HasPending(id) {
			s.inRing[id] = true
			s.ring = append(s.ring, id)
		}

		got, data, ok := s.windows.Snapshot(id, r)
		if !ok || got.Empty() {
			s.log.Debug("damage clipped away", "window", id, "rect", r)
			return nil, s.HasMore()
		}
		return protocol.Draw{
			ID:       id,
			X:        got.X,
			Y:        got.Y,
			Width:    got.Width,
			Height:   got.Height,
			Encoding: protocol.EncodingRGB24,
			Data:     data,
		}, s.HasMore()
	}
	return nil, false
}

// HasMore reports whether Next has anything left to return.
func (s *Source) HasMore() bool {
	if len(s.control) > 0 {
		return true
	}
	for _, id := range s.ring {
		if s.tracker.HasPending(id) {
			return true
		}
	}
	return false
}

// PendingControl returns the number of queued control packets.
func (s *Source) PendingControl() int {
	return len(s.control)
}

// DamagedWindows returns the ids with pending damage, in ascending order.
func (s *Source) DamagedWindows() []platform.WindowID {
	return s.tracker.Pending()
}

// PendingDamage returns a copy of the pending region of id.
func (s *Source) PendingDamage(id platform.WindowID) *region.Region {
	return s.tracker.Region(id)
}
