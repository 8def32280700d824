// Package viewer is the client side of window mirroring: it keeps one
// replica per window the server announces and sends the user's window
// management back as intents.
package viewer

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/1broseidon/winmirror/internal/eventloop"
	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
	"github.com/1broseidon/winmirror/internal/replica"
)

// Conn is the viewer's connection to the server. *transport.Conn
// implements it.
type Conn interface {
	Send(p protocol.Packet)
	EnableCompression()
	Close()
	Logger() *slog.Logger
}

// LocalEvents is how a native surface reports what the local window manager
// did to it. Calls may come from any goroutine.
type LocalEvents interface {
	Geometry() platform.Rect
	HandleMap()
	HandleConfigure(x, y, width, height int)
	HandleUnmap()
	HandleCloseRequest()
	// Backing returns the replica's pixels, or nil once destroyed. It must
	// be called on the event loop.
	Backing() *replica.Backing
}

// SurfaceFactory creates the native presentation for a new window.
type SurfaceFactory interface {
	NewSurface(id platform.WindowID, events LocalEvents) replica.Surface
}

type Config struct {
	Loop         *eventloop.Loop
	Logger       *slog.Logger
	Capabilities []string
	Fill         replica.Color
	Surfaces     SurfaceFactory
	// OnLost runs on the loop once the connection is gone.
	OnLost func(err error)
}

// Viewer is used from its event loop only.
type Viewer struct {
	cfg     Config
	log     *slog.Logger
	conn    Conn
	windows map[platform.WindowID]*replica.Window
	caps    []string
}

func New(cfg Config) *Viewer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Capabilities == nil {
		cfg.Capabilities = protocol.KnownCapabilities
	}
	return &Viewer{
		cfg:     cfg,
		log:     cfg.Logger,
		windows: make(map[platform.WindowID]*replica.Window),
	}
}

// Attach starts the handshake on c.
func (v *Viewer) Attach(c Conn) {
	v.conn = c
	c.Send(protocol.Hello{Capabilities: v.cfg.Capabilities})
}

// Send implements replica.Sender.
func (v *Viewer) Send(p protocol.Packet) {
	if v.conn != nil {
		v.conn.Send(p)
	}
}

// HandlePacket applies one packet from the server.
func (v *Viewer) HandlePacket(pkt protocol.Packet) {
	var err error
	switch p := pkt.(type) {
	case protocol.Hello:
		v.hello(p)
	case protocol.NewWindow:
		v.newWindow(p)
	case protocol.WindowMetadata:
		err = v.withWindow(p.ID, func(w *replica.Window) error {
			w.UpdateMetadata(p.Metadata)
			return nil
		})
	case protocol.Draw:
		err = v.draw(p)
	case protocol.LostWindow:
		err = v.withWindow(p.ID, func(w *replica.Window) error {
			w.Destroy()
			delete(v.windows, p.ID)
			return nil
		})
	case protocol.ConnectionLost:
		v.connectionLost(p.Err)
	default:
		err = protocol.Violationf(pkt.Type(), "not accepted by the viewer")
	}

	switch {
	case err == nil:
	case errors.Is(err, protocol.ErrUnknownWindow):
		v.log.Debug("packet for unknown window", "type", pkt.Type())
	default:
		v.log.Warn("dropping packet", "type", pkt.Type(), "error", err)
	}
}

func (v *Viewer) hello(p protocol.Hello) {
	v.caps = p.Capabilities
	if protocol.HasCapability(p.Capabilities, protocol.CapabilityDeflate) && v.conn != nil {
		v.conn.EnableCompression()
	}
	v.log.Info("connected", "capabilities", p.Capabilities)
}

func (v *Viewer) newWindow(p protocol.NewWindow) {
	if old, ok := v.windows[p.ID]; ok {
		old.Destroy()
	}
	events := &windowEvents{viewer: v, id: p.ID}
	surface := v.cfg.Surfaces.NewSurface(p.ID, events)
	w := replica.New(p, surface, v, v.cfg.Fill)
	events.target = w
	v.windows[p.ID] = w
}

func (v *Viewer) draw(p protocol.Draw) error {
	if p.Encoding != protocol.EncodingRGB24 {
		return protocol.Violationf(p.Type(), "unsupported encoding %q", p.Encoding)
	}
	return v.withWindow(p.ID, func(w *replica.Window) error {
		return w.ApplyPixels(p.Rect(), p.Data)
	})
}

func (v *Viewer) withWindow(id platform.WindowID, fn func(w *replica.Window) error) error {
	w, ok := v.windows[id]
	if !ok {
		return protocol.ErrUnknownWindow
	}
	return fn(w)
}

// connectionLost tears down every replica: the viewer exits with its
// connection and the next session starts from a full resync.
func (v *Viewer) connectionLost(err error) {
	for id, w := range v.windows {
		w.Destroy()
		delete(v.windows, id)
	}
	v.conn = nil
	if v.cfg.OnLost != nil {
		v.cfg.OnLost(err)
	}
}

// Window returns the replica for id.
func (v *Viewer) Window(id platform.WindowID) (*replica.Window, bool) {
	w, ok := v.windows[id]
	return w, ok
}

// IDs returns the ids of every replica in ascending order.
func (v *Viewer) IDs() []platform.WindowID {
	ids := make([]platform.WindowID, 0, len(v.windows))
	for id := range v.windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Capabilities returns what the server agreed to.
func (v *Viewer) Capabilities() []string { return v.caps }
