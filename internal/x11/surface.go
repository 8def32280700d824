package x11

import (
	"image"
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xgraphics"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/replica"
	"github.com/1broseidon/winmirror/internal/viewer"
)

// SurfaceFactory presents replicas as top-level X windows managed by the
// local window manager.
type SurfaceFactory struct {
	conn *Connection
	log  *slog.Logger
}

var _ viewer.SurfaceFactory = (*SurfaceFactory)(nil)

func NewSurfaceFactory(conn *Connection, logger *slog.Logger) *SurfaceFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &SurfaceFactory{conn: conn, log: logger.With("component", "x11-surface")}
}

func (f *SurfaceFactory) NewSurface(id platform.WindowID, events viewer.LocalEvents) replica.Surface {
	return &surface{
		conn:   f.conn,
		log:    f.log.With("window", id),
		events: events,
	}
}

// surface methods run on the viewer loop. X event callbacks only talk to
// events, which posts back to the loop.
type surface struct {
	conn   *Connection
	log    *slog.Logger
	events viewer.LocalEvents
	win    *xwindow.Window
	img    *xgraphics.Image
	title  string
	hints  platform.SizeHints
}

var _ replica.Surface = (*surface)(nil)

func (s *surface) SetTitle(title string) {
	s.title = title
	if s.win == nil {
		return
	}
	ewmh.WmNameSet(s.conn.XUtil, s.win.Id, title)
	icccm.WmNameSet(s.conn.XUtil, s.win.Id, title)
}

func (s *surface) SetHints(hints platform.SizeHints) {
	s.hints = hints
	if s.win == nil {
		return
	}
	icccm.WmNormalHintsSet(s.conn.XUtil, s.win.Id, normalFromHints(hints))
}

func (s *surface) Present(width, height int) {
	width, height = max(width, 1), max(height, 1)
	if s.win != nil {
		s.win.Resize(width, height)
		return
	}
	win, err := xwindow.Generate(s.conn.XUtil)
	if err != nil {
		s.log.Error("failed to allocate window", "error", err)
		return
	}
	g := s.events.Geometry()
	err = win.CreateChecked(s.conn.Root, g.X, g.Y, width, height,
		xproto.CwBackPixel, 0xffffff)
	if err != nil {
		s.log.Error("failed to create window", "error", err)
		return
	}
	s.win = win
	if err := win.Listen(xproto.EventMaskStructureNotify); err != nil {
		s.log.Warn("failed to listen on window", "error", err)
	}
	win.WMGracefulClose(func(*xwindow.Window) { s.events.HandleCloseRequest() })
	xevent.ConfigureNotifyFun(s.configured).Connect(s.conn.XUtil, win.Id)
	xevent.MapNotifyFun(func(*xgbutil.XUtil, xevent.MapNotifyEvent) {
		s.events.HandleMap()
	}).Connect(s.conn.XUtil, win.Id)
	xevent.UnmapNotifyFun(func(*xgbutil.XUtil, xevent.UnmapNotifyEvent) {
		s.events.HandleUnmap()
	}).Connect(s.conn.XUtil, win.Id)

	s.SetTitle(s.title)
	s.SetHints(s.hints)
	win.Map()
}

// configured reports root-relative geometry. The window manager's frame
// makes the event's own coordinates parent-relative.
func (s *surface) configured(_ *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
	r, err := s.conn.WindowRect(ev.Window)
	if err != nil {
		r = platform.Rect{X: int(ev.X), Y: int(ev.Y), Width: int(ev.Width), Height: int(ev.Height)}
	}
	s.events.HandleConfigure(r.X, r.Y, r.Width, r.Height)
}

// Invalidate copies r from the backing store into the window's background
// pixmap and repaints.
func (s *surface) Invalidate(r platform.Rect) {
	if s.win == nil {
		return
	}
	backing := s.events.Backing()
	if backing == nil {
		return
	}
	full := image.Rect(0, 0, backing.Width, backing.Height)
	if s.img == nil || s.img.Rect != full {
		s.resetImage(full)
		r = backing.Bounds()
	}
	if s.img == nil {
		return
	}
	r = r.Intersect(backing.Bounds())
	if r.Empty() {
		return
	}
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			c := backing.At(x, y)
			s.img.SetBGRA(x, y, xgraphics.BGRA{B: c[2], G: c[1], R: c[0], A: 0xff})
		}
	}
	s.img.XPaintRects(s.win.Id, image.Rect(r.X, r.Y, r.Right(), r.Bottom()))
}

func (s *surface) resetImage(bounds image.Rectangle) {
	if s.img != nil {
		s.img.Destroy()
		s.img = nil
	}
	img := xgraphics.New(s.conn.XUtil, bounds)
	if err := img.XSurfaceSet(s.win.Id); err != nil {
		s.log.Warn("failed to attach window surface", "error", err)
		img.Destroy()
		return
	}
	s.img = img
}

func (s *surface) Destroy() {
	if s.img != nil {
		s.img.Destroy()
		s.img = nil
	}
	if s.win != nil {
		s.win.Destroy()
		s.win = nil
	}
}
