package x11

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/winmirror/internal/platform"
)

// Desktop is the mirrored desktop: an override-redirect container parked
// beside the visible screen. Windows reparented into it leave the window
// manager's control, and Composite keeps their contents in off-screen
// pixmaps so they can be read back while nothing local shows them.
type Desktop struct {
	conn   *Connection
	win    *xwindow.Window
	bounds platform.Rect

	mu       sync.Mutex
	children map[xproto.Window]struct{}
}

// NewDesktop creates and maps the container window.
func (c *Connection) NewDesktop() (*Desktop, error) {
	screen := c.ScreenBounds()
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("allocate desktop window: %w", err)
	}
	err = win.CreateChecked(c.Root, screen.Right(), 0, screen.Width, screen.Height,
		xproto.CwOverrideRedirect, 1)
	if err != nil {
		return nil, fmt.Errorf("create desktop window: %w", err)
	}
	err = composite.RedirectSubwindowsChecked(c.XUtil.Conn(), win.Id, composite.RedirectAutomatic).Check()
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("redirect desktop children: %w", err)
	}
	win.Map()
	return &Desktop{
		conn:     c,
		win:      win,
		bounds:   platform.Rect{Width: screen.Width, Height: screen.Height},
		children: make(map[xproto.Window]struct{}),
	}, nil
}

// Bounds returns the desktop size. Child coordinates are relative to it.
func (d *Desktop) Bounds() platform.Rect { return d.bounds }

// Contains reports whether win is currently reparented into the desktop.
func (d *Desktop) Contains(win xproto.Window) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.children[win]
	return ok
}

// Adopt reparents win into the desktop, keeping its size and placing it at
// its current screen position.
func (d *Desktop) Adopt(win xproto.Window) error {
	r, err := d.conn.WindowRect(win)
	if err != nil {
		return err
	}
	err = xproto.ReparentWindowChecked(d.conn.XUtil.Conn(), win, d.win.Id, int16(r.X), int16(r.Y)).Check()
	if err != nil {
		return fmt.Errorf("reparent 0x%x into desktop: %w", win, err)
	}
	d.mu.Lock()
	d.children[win] = struct{}{}
	d.mu.Unlock()
	return nil
}

// Release hands win back to the root window at the same position.
func (d *Desktop) Release(win xproto.Window) error {
	r, err := d.Rect(win)
	if err != nil {
		return err
	}
	err = xproto.ReparentWindowChecked(d.conn.XUtil.Conn(), win, d.conn.Root, int16(r.X), int16(r.Y)).Check()
	if err != nil {
		return fmt.Errorf("reparent 0x%x to root: %w", win, err)
	}
	d.Forget(win)
	return nil
}

// Forget drops win from the child set without touching the server.
func (d *Desktop) Forget(win xproto.Window) {
	d.mu.Lock()
	delete(d.children, win)
	d.mu.Unlock()
}

// Rect returns the geometry of a child relative to the desktop.
func (d *Desktop) Rect(win xproto.Window) (platform.Rect, error) {
	geom, err := xproto.GetGeometry(d.conn.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("get geometry of 0x%x: %w", win, err)
	}
	return platform.Rect{
		X:      int(geom.X),
		Y:      int(geom.Y),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// Destroy releases every child and removes the container.
func (d *Desktop) Destroy() {
	d.mu.Lock()
	children := make([]xproto.Window, 0, len(d.children))
	for win := range d.children {
		children = append(children, win)
	}
	d.mu.Unlock()
	for _, win := range children {
		d.Release(win)
	}
	d.win.Destroy()
}
