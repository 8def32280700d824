package platform

// PropertyTitle and PropertySizeHints name the native window properties
// that are exported as window metadata.
const (
	PropertyTitle     = "title"
	PropertySizeHints = "size-hints"
)

// Event is a notification raised by the native window system.
type Event interface {
	Window() Handle
}

// Created reports a new top-level window under management.
type Created struct {
	Handle Handle
}

// RedrawNeeded reports a changed rectangle in window coordinates.
type RedrawNeeded struct {
	Handle Handle
	Area   Rect
}

// Unmanaged reports that a window is gone or no longer managed.
type Unmanaged struct {
	Handle Handle
}

// PropertyChanged reports a change to an exported property. Name is one of
// PropertyTitle or PropertySizeHints.
type PropertyChanged struct {
	Handle Handle
	Name   string
}

// GeometryChanged reports that the native layer moved or resized a window.
// Bounds is in the coordinates Geometry returns.
type GeometryChanged struct {
	Handle Handle
	Bounds Rect
}

func (e Created) Window() Handle         { return e.Handle }
func (e RedrawNeeded) Window() Handle    { return e.Handle }
func (e Unmanaged) Window() Handle       { return e.Handle }
func (e PropertyChanged) Window() Handle { return e.Handle }
func (e GeometryChanged) Window() Handle { return e.Handle }

// Backend abstracts the native window system hosting the mirrored windows.
type Backend interface {
	// Windows enumerates the currently managed top-level windows.
	Windows() ([]Handle, error)
	// Geometry returns the current root-relative geometry of a window.
	Geometry(h Handle) (Rect, error)
	// Snapshot returns RGB24 pixels for r (window coordinates) clipped to
	// the window's current bounds, together with the clipped rectangle.
	Snapshot(h Handle, r Rect) (Rect, []byte, error)
	Title(h Handle) (string, bool)
	SizeHints(h Handle) (SizeHints, error)
	MoveResize(h Handle, bounds Rect) error
	SetIconic(h Handle, iconic bool) error
	// Reparent moves the window into the mirrored desktop's coordinate
	// space (toDesktop) or back under the native window manager.
	Reparent(h Handle, toDesktop bool) error
	// Restack raises the given windows in order, bottom to top.
	Restack(bottomToTop []Handle) error
	RequestClose(h Handle) error
	Events() <-chan Event
}
