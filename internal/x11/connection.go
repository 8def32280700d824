package x11

import (
	"context"
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection connects to display, or $DISPLAY when display is empty.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to X display %q: %w", display, err)
	}
	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// InitCapture enables the extensions the mirroring server depends on:
// DAMAGE for change notification, Composite for off-screen rendering and
// XFIXES which DAMAGE requires.
func (c *Connection) InitCapture() error {
	xc := c.XUtil.Conn()
	if err := xfixes.Init(xc); err != nil {
		return fmt.Errorf("xfixes init: %w", err)
	}
	if _, err := xfixes.QueryVersion(xc, 5, 0).Reply(); err != nil {
		return fmt.Errorf("xfixes version: %w", err)
	}
	if err := damage.Init(xc); err != nil {
		return fmt.Errorf("damage init: %w", err)
	}
	if _, err := damage.QueryVersion(xc, 1, 1).Reply(); err != nil {
		return fmt.Errorf("damage version: %w", err)
	}
	if err := composite.Init(xc); err != nil {
		return fmt.Errorf("composite init: %w", err)
	}
	if _, err := composite.QueryVersion(xc, 0, 4).Reply(); err != nil {
		return fmt.Errorf("composite version: %w", err)
	}
	return nil
}

// EventLoop runs the X11 event loop until ctx is cancelled. The loop
// goroutine notices the quit flag on the next event it reads.
func (c *Connection) EventLoop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		xevent.Main(c.XUtil)
	}()
	select {
	case <-ctx.Done():
		xevent.Quit(c.XUtil)
		return ctx.Err()
	case <-done:
		return fmt.Errorf("X event loop exited")
	}
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
