package x11

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/winmirror/internal/platform"
)

// Backend exposes an X display as a platform.Backend. Every window it
// reports is watched for damage and property changes until it is
// destroyed or leaves the client list.
type Backend struct {
	conn    *Connection
	desktop *Desktop
	log     *slog.Logger
	events  chan platform.Event
	done    chan struct{}

	atomWMName      xproto.Atom
	atomNetWMName   xproto.Atom
	atomNormalHints xproto.Atom
	atomClientList  xproto.Atom

	mu      sync.Mutex
	watched map[xproto.Window]damage.Damage
	closed  bool
}

var _ platform.Backend = (*Backend)(nil)

// NewBackend enables capture on conn, creates the mirrored desktop and
// starts listening for client list changes.
func NewBackend(conn *Connection, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := conn.InitCapture(); err != nil {
		return nil, err
	}
	b := &Backend{
		conn:    conn,
		log:     logger.With("component", "x11"),
		events:  make(chan platform.Event, 256),
		done:    make(chan struct{}),
		watched: make(map[xproto.Window]damage.Damage),
	}
	for name, dst := range map[string]*xproto.Atom{
		"WM_NAME":          &b.atomWMName,
		"_NET_WM_NAME":     &b.atomNetWMName,
		"WM_NORMAL_HINTS":  &b.atomNormalHints,
		"_NET_CLIENT_LIST": &b.atomClientList,
	} {
		atom, err := xprop.Atm(conn.XUtil, name)
		if err != nil {
			return nil, fmt.Errorf("intern %s: %w", name, err)
		}
		*dst = atom
	}

	desktop, err := conn.NewDesktop()
	if err != nil {
		return nil, err
	}
	b.desktop = desktop

	xevent.ErrorHandlerSet(conn.XUtil, func(err xgb.Error) {
		b.log.Debug("X request failed", "error", err)
	})
	xevent.HookFun(b.damageHook).Connect(conn.XUtil)
	root := xwindow.New(conn.XUtil, conn.Root)
	if err := root.Listen(xproto.EventMaskPropertyChange); err != nil {
		desktop.Destroy()
		return nil, fmt.Errorf("listen on root window: %w", err)
	}
	xevent.PropertyNotifyFun(b.rootPropertyChanged).Connect(conn.XUtil, conn.Root)
	return b, nil
}

// Serve runs the X event loop until ctx is cancelled.
func (b *Backend) Serve(ctx context.Context) error {
	return b.conn.EventLoop(ctx)
}

// Close returns adopted windows to the root window and stops event
// delivery. The connection itself belongs to the caller.
func (b *Backend) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()
	b.desktop.Destroy()
}

func (b *Backend) Events() <-chan platform.Event {
	return b.events
}

func (b *Backend) emit(ev platform.Event) {
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// Windows lists managed normal windows plus windows held by the mirrored
// desktop, which the window manager no longer lists.
func (b *Backend) Windows() ([]platform.Handle, error) {
	clients, err := b.clients()
	if err != nil {
		return nil, err
	}
	out := make([]platform.Handle, 0, len(clients))
	for _, win := range clients {
		b.watch(win)
		out = append(out, platform.Handle(win))
	}
	return out, nil
}

func (b *Backend) clients() ([]xproto.Window, error) {
	list, err := ewmh.ClientListGet(b.conn.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	seen := make(map[xproto.Window]bool, len(list))
	var out []xproto.Window
	for _, win := range list {
		if b.conn.IsNormalWindow(win) {
			seen[win] = true
			out = append(out, win)
		}
	}
	b.desktop.mu.Lock()
	for win := range b.desktop.children {
		if !seen[win] {
			out = append(out, win)
		}
	}
	b.desktop.mu.Unlock()
	return out, nil
}

// watch subscribes to damage and property changes on win. It reports
// whether win was new.
func (b *Backend) watch(win xproto.Window) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watched[win]; ok || b.closed {
		return false
	}
	xc := b.conn.XUtil.Conn()
	d, err := damage.NewDamageId(xc)
	if err != nil {
		b.log.Warn("failed to allocate damage id", "window", win, "error", err)
		return false
	}
	if err := damage.CreateChecked(xc, d, xproto.Drawable(win), damage.ReportLevelRawRectangles).Check(); err != nil {
		b.log.Debug("failed to watch window", "window", win, "error", err)
		return false
	}
	w := xwindow.New(b.conn.XUtil, win)
	if err := w.Listen(xproto.EventMaskPropertyChange, xproto.EventMaskStructureNotify); err != nil {
		damage.Destroy(xc, d)
		b.log.Debug("failed to listen on window", "window", win, "error", err)
		return false
	}
	xevent.PropertyNotifyFun(b.propertyChanged).Connect(b.conn.XUtil, win)
	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		b.unmanage(ev.Window, false)
	}).Connect(b.conn.XUtil, win)
	xevent.ConfigureNotifyFun(b.configured).Connect(b.conn.XUtil, win)
	b.watched[win] = d
	return true
}

func (b *Backend) unmanage(win xproto.Window, alive bool) {
	b.mu.Lock()
	d, ok := b.watched[win]
	delete(b.watched, win)
	b.mu.Unlock()
	if !ok {
		return
	}
	if alive {
		damage.Destroy(b.conn.XUtil.Conn(), d)
	}
	xevent.Detach(b.conn.XUtil, win)
	b.desktop.Forget(win)
	b.emit(platform.Unmanaged{Handle: platform.Handle(win)})
}

func (b *Backend) damageHook(xu *xgbutil.XUtil, event interface{}) bool {
	ev, ok := event.(damage.NotifyEvent)
	if !ok {
		return true
	}
	damage.Subtract(xu.Conn(), ev.Damage, 0, 0)
	b.emit(platform.RedrawNeeded{
		Handle: platform.Handle(ev.Drawable),
		Area: platform.Rect{
			X:      int(ev.Area.X),
			Y:      int(ev.Area.Y),
			Width:  int(ev.Area.Width),
			Height: int(ev.Area.Height),
		},
	})
	return false
}

func (b *Backend) propertyChanged(_ *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
	h := platform.Handle(ev.Window)
	switch ev.Atom {
	case b.atomWMName, b.atomNetWMName:
		b.emit(platform.PropertyChanged{Handle: h, Name: platform.PropertyTitle})
	case b.atomNormalHints:
		b.emit(platform.PropertyChanged{Handle: h, Name: platform.PropertySizeHints})
	}
}

// configured reports size and position changes. Event coordinates are
// relative to the parent, which may be a window manager frame, so the
// geometry is read back the way Geometry reports it.
func (b *Backend) configured(_ *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
	h := platform.Handle(ev.Window)
	r, err := b.Geometry(h)
	if err != nil {
		b.log.Debug("geometry refresh failed", "window", ev.Window, "error", err)
		return
	}
	b.emit(platform.GeometryChanged{Handle: h, Bounds: r})
}

// rootPropertyChanged diffs the client list against the watched set.
func (b *Backend) rootPropertyChanged(_ *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
	if ev.Atom != b.atomClientList {
		return
	}
	clients, err := b.clients()
	if err != nil {
		b.log.Debug("client list refresh failed", "error", err)
		return
	}
	current := make(map[xproto.Window]bool, len(clients))
	for _, win := range clients {
		current[win] = true
		if b.watch(win) {
			b.emit(platform.Created{Handle: platform.Handle(win)})
		}
	}

	b.mu.Lock()
	var gone []xproto.Window
	for win := range b.watched {
		if !current[win] {
			gone = append(gone, win)
		}
	}
	b.mu.Unlock()
	for _, win := range gone {
		b.unmanage(win, true)
	}
}

func (b *Backend) Geometry(h platform.Handle) (platform.Rect, error) {
	win := xproto.Window(h)
	if b.desktop.Contains(win) {
		return b.desktop.Rect(win)
	}
	return b.conn.WindowRect(win)
}

func (b *Backend) Snapshot(h platform.Handle, r platform.Rect) (platform.Rect, []byte, error) {
	bounds, err := b.Geometry(h)
	if err != nil {
		return platform.Rect{}, nil, err
	}
	clip := r.Intersect(platform.Rect{Width: bounds.Width, Height: bounds.Height})
	if clip.Empty() {
		return platform.Rect{}, nil, nil
	}
	win := xproto.Window(h)
	data, err := b.conn.Capture(win, b.desktop.Contains(win), clip)
	if err != nil {
		return platform.Rect{}, nil, err
	}
	return clip, data, nil
}

func (b *Backend) Title(h platform.Handle) (string, bool) {
	return b.conn.WindowTitle(xproto.Window(h))
}

func (b *Backend) SizeHints(h platform.Handle) (platform.SizeHints, error) {
	return b.conn.WindowSizeHints(xproto.Window(h))
}

// MoveResize configures desktop windows directly. Anything else goes
// through the window manager.
func (b *Backend) MoveResize(h platform.Handle, r platform.Rect) error {
	win := xproto.Window(h)
	if b.desktop.Contains(win) {
		return xproto.ConfigureWindowChecked(b.conn.XUtil.Conn(), win,
			xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(int32(r.X)), uint32(int32(r.Y)), uint32(r.Width), uint32(r.Height)}).Check()
	}
	return b.conn.MoveResizeWindow(win, r.X, r.Y, r.Width, r.Height)
}

func (b *Backend) SetIconic(h platform.Handle, iconic bool) error {
	win := xproto.Window(h)
	if b.desktop.Contains(win) {
		xc := b.conn.XUtil.Conn()
		if iconic {
			return xproto.UnmapWindowChecked(xc, win).Check()
		}
		return xproto.MapWindowChecked(xc, win).Check()
	}
	return b.conn.SetIconic(win, iconic)
}

func (b *Backend) Reparent(h platform.Handle, toDesktop bool) error {
	win := xproto.Window(h)
	switch in := b.desktop.Contains(win); {
	case toDesktop && !in:
		return b.desktop.Adopt(win)
	case !toDesktop && in:
		return b.desktop.Release(win)
	}
	return nil
}

func (b *Backend) Restack(bottomToTop []platform.Handle) error {
	wins := make([]xproto.Window, len(bottomToTop))
	for i, h := range bottomToTop {
		wins[i] = xproto.Window(h)
	}
	return b.conn.Restack(wins)
}

func (b *Backend) RequestClose(h platform.Handle) error {
	return b.conn.CloseWindow(xproto.Window(h))
}
