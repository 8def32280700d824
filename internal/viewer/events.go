package viewer

import (
	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/replica"
)

// windowEvents routes surface callbacks to one replica through the loop.
// Events for a replica that is gone, or that a resync replaced under the
// same id, are dropped.
type windowEvents struct {
	viewer *Viewer
	id     platform.WindowID
	target *replica.Window
}

// current returns the replica these events belong to while it is still the
// one registered under id.
func (e *windowEvents) current() *replica.Window {
	if w, ok := e.viewer.windows[e.id]; ok && w == e.target {
		return w
	}
	return nil
}

func (e *windowEvents) post(fn func(w *replica.Window)) {
	e.viewer.cfg.Loop.Post(func() {
		if w := e.current(); w != nil {
			fn(w)
		}
	})
}

// Geometry reads the replica's geometry. Like Backing it must run on the
// loop.
func (e *windowEvents) Geometry() platform.Rect {
	if w := e.current(); w != nil {
		return w.Geometry()
	}
	return platform.Rect{}
}

func (e *windowEvents) HandleMap() {
	e.post(func(w *replica.Window) { w.HandleMap() })
}

func (e *windowEvents) HandleConfigure(x, y, width, height int) {
	e.post(func(w *replica.Window) { w.HandleConfigure(x, y, width, height) })
}

func (e *windowEvents) HandleUnmap() {
	e.post(func(w *replica.Window) { w.HandleUnmap() })
}

func (e *windowEvents) HandleCloseRequest() {
	e.post(func(w *replica.Window) { w.HandleCloseRequest() })
}

func (e *windowEvents) Backing() *replica.Backing {
	if w := e.current(); w != nil {
		return w.Backing()
	}
	return nil
}
