package viewer

import (
	"github.com/1broseidon/winmirror/internal/eventloop"
	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/replica"
)

// HeadlessFactory creates surfaces that never reach a display. Each one
// behaves like a window manager that maps every window at the size it was
// asked for, so the server streams pixels into the backing stores.
type HeadlessFactory struct {
	Loop     *eventloop.Loop
	Surfaces map[platform.WindowID]*replica.HeadlessSurface
}

func NewHeadlessFactory(loop *eventloop.Loop) *HeadlessFactory {
	return &HeadlessFactory{Loop: loop, Surfaces: make(map[platform.WindowID]*replica.HeadlessSurface)}
}

func (f *HeadlessFactory) NewSurface(id platform.WindowID, events LocalEvents) replica.Surface {
	s := &replica.HeadlessSurface{}
	f.Surfaces[id] = s
	return &autoMapSurface{HeadlessSurface: s, events: events, loop: f.Loop}
}

type autoMapSurface struct {
	*replica.HeadlessSurface
	events LocalEvents
	loop   *eventloop.Loop
}

func (s *autoMapSurface) Present(width, height int) {
	first := s.Presented == 0
	s.HeadlessSurface.Present(width, height)
	s.loop.Post(func() {
		g := s.events.Geometry()
		s.events.HandleConfigure(g.X, g.Y, width, height)
		if first {
			s.events.HandleMap()
		}
	})
}
