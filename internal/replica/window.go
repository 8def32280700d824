// Package replica is the viewer-side model of a mirrored window: a pixel
// backing store kept in step with draw packets, and the translation of local
// window-manager events into intent packets for the server.
package replica

import (
	"fmt"

	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
)

const (
	titleFormat         = "%s (via winmirror)"
	untitledPlaceholder = "<untitled window>"
)

// Sender queues intent packets for the server.
type Sender interface {
	Send(p protocol.Packet)
}

// Window is one replica. It is used from the event loop only.
type Window struct {
	ID platform.WindowID

	x, y          int
	width, height int

	backing  *Backing
	metadata protocol.Metadata
	surface  Surface
	sender   Sender

	mapped bool
	// Geometry the server was last told about.
	sentX, sentY int
	sentW, sentH int
}

// New creates the replica for a new-window packet and asks the surface to
// appear at the announced size.
func New(p protocol.NewWindow, surface Surface, sender Sender, fill Color) *Window {
	w := &Window{
		ID:      p.ID,
		x:       p.X,
		y:       p.Y,
		width:   p.Width,
		height:  p.Height,
		backing: NewBacking(1, 1, fill),
		surface: surface,
		sender:  sender,
		sentX:   p.X,
		sentY:   p.Y,
		sentW:   p.Width,
		sentH:   p.Height,
	}
	w.UpdateMetadata(p.Metadata)
	surface.Present(max(p.Width, 1), max(p.Height, 1))
	return w
}

// UpdateMetadata merges md into the stored metadata and refreshes the title
// and size hints.
func (w *Window) UpdateMetadata(md protocol.Metadata) {
	w.metadata.Merge(md)
	w.surface.SetTitle(DisplayTitle(w.metadata))
	w.surface.SetHints(w.metadata.Hints())
}

// DisplayTitle is the title a replica shows for md.
func DisplayTitle(md protocol.Metadata) string {
	title := untitledPlaceholder
	if md.Title != nil {
		title = *md.Title
	}
	return fmt.Sprintf(titleFormat, title)
}

// ApplyPixels writes a draw into the backing store. A payload of the wrong
// length is a *protocol.ProtocolViolation and leaves the store untouched.
func (w *Window) ApplyPixels(r platform.Rect, data []byte) error {
	if w.backing == nil {
		return protocol.ErrUnknownWindow
	}
	written, err := w.backing.Write(r, data)
	if err != nil {
		return err
	}
	if !written.Empty() {
		w.surface.Invalidate(written)
	}
	return nil
}

// ResizeBacking resizes the backing store, keeping the top-left content.
func (w *Window) ResizeBacking(width, height int) {
	w.backing.Resize(width, height)
}

// HandleMap reports the window as mapped with its current geometry.
func (w *Window) HandleMap() {
	if w.mapped {
		return
	}
	w.mapped = true
	w.sentX, w.sentY, w.sentW, w.sentH = w.x, w.y, w.width, w.height
	w.sender.Send(protocol.MapWindow{ID: w.ID, X: w.x, Y: w.y, Width: w.width, Height: w.height})
}

// HandleConfigure applies a local geometry change. Moves and resizes are
// reported only when they differ from what the server was last told, and
// only while mapped; the map intent carries the geometry otherwise.
func (w *Window) HandleConfigure(x, y, width, height int) {
	w.x, w.y, w.width, w.height = x, y, width, height
	if w.backing != nil && (width != w.backing.Width || height != w.backing.Height) {
		w.ResizeBacking(width, height)
	}
	if !w.mapped {
		return
	}
	if x != w.sentX || y != w.sentY {
		w.sentX, w.sentY = x, y
		w.sender.Send(protocol.MoveWindow{ID: w.ID, X: x, Y: y})
	}
	if width != w.sentW || height != w.sentH {
		w.sentW, w.sentH = width, height
		w.sender.Send(protocol.ResizeWindow{ID: w.ID, Width: width, Height: height})
	}
}

// HandleUnmap reports the window as unmapped.
func (w *Window) HandleUnmap() {
	if !w.mapped {
		return
	}
	w.mapped = false
	w.sender.Send(protocol.UnmapWindow{ID: w.ID})
}

// HandleCloseRequest forwards a local close request to the server.
func (w *Window) HandleCloseRequest() {
	w.sender.Send(protocol.CloseWindow{ID: w.ID})
}

// Destroy releases the backing store and the native surface.
func (w *Window) Destroy() {
	w.backing = nil
	w.surface.Destroy()
}

func (w *Window) Geometry() platform.Rect {
	return platform.Rect{X: w.x, Y: w.y, Width: w.width, Height: w.height}
}

func (w *Window) Mapped() bool { return w.mapped }

func (w *Window) Metadata() protocol.Metadata { return w.metadata }

// Backing returns the backing store; nil after Destroy.
func (w *Window) Backing() *Backing { return w.backing }
