package viewer

import (
	"context"
	"log/slog"
	"reflect"
	"testing"

	"github.com/1broseidon/winmirror/internal/eventloop"
	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
	"github.com/1broseidon/winmirror/internal/replica"
)

type fakeConn struct {
	sent       []protocol.Packet
	compressed bool
	closed     bool
}

func (c *fakeConn) Send(p protocol.Packet) { c.sent = append(c.sent, p) }
func (c *fakeConn) EnableCompression()     { c.compressed = true }
func (c *fakeConn) Close()                 { c.closed = true }
func (c *fakeConn) Logger() *slog.Logger   { return slog.Default() }

type harness struct {
	t       *testing.T
	ctx     context.Context
	loop    *eventloop.Loop
	conn    *fakeConn
	viewer  *Viewer
	factory *HeadlessFactory
	lost    []error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	loop := eventloop.New()
	go loop.Run(ctx)

	h := &harness{t: t, ctx: ctx, loop: loop, conn: &fakeConn{}}
	h.factory = NewHeadlessFactory(loop)
	h.viewer = New(Config{
		Loop:     loop,
		Fill:     replica.White,
		Surfaces: h.factory,
		OnLost:   func(err error) { h.lost = append(h.lost, err) },
	})
	h.call(func() { h.viewer.Attach(h.conn) })
	return h
}

func (h *harness) call(fn func()) {
	h.t.Helper()
	if err := h.loop.Call(h.ctx, fn); err != nil {
		h.t.Fatalf("Call() error: %v", err)
	}
}

// deliver hands p to the viewer and lets posted surface events settle.
func (h *harness) deliver(p protocol.Packet) {
	h.t.Helper()
	h.call(func() { h.viewer.HandlePacket(p) })
	for i := 0; i < 3; i++ {
		h.call(func() {})
	}
}

func (h *harness) takeSent() []protocol.Packet {
	var out []protocol.Packet
	h.call(func() {
		out = h.conn.sent
		h.conn.sent = nil
	})
	return out
}

func TestViewer_HandshakeAndWindowLifecycle(t *testing.T) {
	h := newHarness(t)

	sent := h.takeSent()
	if len(sent) != 1 || !reflect.DeepEqual(sent[0], protocol.Hello{Capabilities: []string{"deflate"}}) {
		t.Fatalf("sent = %#v, want hello", sent)
	}

	h.deliver(protocol.Hello{Capabilities: []string{"deflate"}})
	if !h.conn.compressed {
		t.Fatal("deflate agreed but compression not enabled")
	}

	h.deliver(protocol.NewWindow{ID: 1, X: 5, Y: 6, Width: 4, Height: 2, Metadata: protocol.TitleMetadata("clock")})
	sent = h.takeSent()
	want := []protocol.Packet{protocol.MapWindow{ID: 1, X: 5, Y: 6, Width: 4, Height: 2}}
	if !reflect.DeepEqual(sent, want) {
		t.Fatalf("sent = %#v, want %#v", sent, want)
	}
	surface := h.factory.Surfaces[1]
	if surface.Title != "clock (via winmirror)" {
		t.Fatalf("title = %q", surface.Title)
	}

	data := make([]byte, 4*2*3)
	for i := range data {
		data[i] = byte(i)
	}
	h.deliver(protocol.Draw{ID: 1, Width: 4, Height: 2, Encoding: protocol.EncodingRGB24, Data: data})
	h.call(func() {
		w, _ := h.viewer.Window(1)
		if got := w.Backing().At(3, 1); got != (replica.Color{21, 22, 23}) {
			t.Errorf("At(3,1) = %v", got)
		}
	})

	h.deliver(protocol.WindowMetadata{ID: 1, Metadata: protocol.TitleMetadata("clock 2")})
	if surface.Title != "clock 2 (via winmirror)" {
		t.Fatalf("title after metadata = %q", surface.Title)
	}

	h.deliver(protocol.LostWindow{ID: 1})
	if !surface.Destroyed {
		t.Fatal("lost window surface not destroyed")
	}
	h.call(func() {
		if ids := h.viewer.IDs(); len(ids) != 0 {
			t.Errorf("IDs() = %v after loss", ids)
		}
	})
}

func TestViewer_BadPacketsDropped(t *testing.T) {
	h := newHarness(t)
	h.deliver(protocol.NewWindow{ID: 1, Width: 2, Height: 2})
	h.takeSent()

	good := []byte{1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4, 4}
	h.deliver(protocol.Draw{ID: 1, Width: 2, Height: 2, Encoding: protocol.EncodingRGB24, Data: good})

	h.deliver(protocol.Draw{ID: 1, Width: 2, Height: 2, Encoding: "png", Data: make([]byte, 12)})
	h.deliver(protocol.Draw{ID: 1, Width: 2, Height: 2, Encoding: protocol.EncodingRGB24, Data: make([]byte, 5)})
	h.deliver(protocol.Draw{ID: 9, Width: 1, Height: 1, Encoding: protocol.EncodingRGB24, Data: make([]byte, 3)})
	h.deliver(protocol.MapWindow{ID: 1})

	h.call(func() {
		w, _ := h.viewer.Window(1)
		if got := w.Backing().At(1, 1); got != (replica.Color{4, 4, 4}) {
			t.Errorf("bad draws mutated the store: At(1,1) = %v", got)
		}
	})
	if h.conn.closed {
		t.Fatal("viewer closed the connection over a bad packet")
	}
}

func TestViewer_ConnectionLostReleasesReplicas(t *testing.T) {
	h := newHarness(t)
	h.deliver(protocol.NewWindow{ID: 1, Width: 2, Height: 2})
	h.deliver(protocol.NewWindow{ID: 2, Width: 2, Height: 2})

	h.deliver(protocol.ConnectionLost{})
	if len(h.lost) != 1 {
		t.Fatalf("OnLost called %d times", len(h.lost))
	}
	for id, s := range h.factory.Surfaces {
		if !s.Destroyed {
			t.Fatalf("surface %d survived connection loss", id)
		}
	}
}

func TestViewer_LocalEventsBecomeIntents(t *testing.T) {
	h := newHarness(t)
	h.deliver(protocol.NewWindow{ID: 3, X: 0, Y: 0, Width: 10, Height: 10})
	h.takeSent()

	var events LocalEvents
	h.call(func() { events = &windowEvents{viewer: h.viewer, id: 3, target: h.viewer.windows[3]} })
	events.HandleConfigure(4, 4, 10, 10)
	events.HandleConfigure(4, 4, 12, 10)
	events.HandleCloseRequest()
	h.call(func() {})

	want := []protocol.Packet{
		protocol.MoveWindow{ID: 3, X: 4, Y: 4},
		protocol.ResizeWindow{ID: 3, Width: 12, Height: 10},
		protocol.CloseWindow{ID: 3},
	}
	if got := h.takeSent(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sent = %#v, want %#v", got, want)
	}
}

func TestViewer_ReplacedReplicaIgnoresLateSurfaceEvents(t *testing.T) {
	h := newHarness(t)
	h.deliver(protocol.NewWindow{ID: 3, X: 0, Y: 0, Width: 10, Height: 10})
	h.takeSent()

	var stale LocalEvents
	h.call(func() { stale = &windowEvents{viewer: h.viewer, id: 3, target: h.viewer.windows[3]} })

	h.deliver(protocol.NewWindow{ID: 3, X: 5, Y: 5, Width: 20, Height: 20})
	h.takeSent()

	stale.HandleConfigure(40, 40, 30, 30)
	stale.HandleUnmap()
	stale.HandleCloseRequest()
	h.call(func() {})

	if got := h.takeSent(); len(got) != 0 {
		t.Fatalf("replaced replica's events produced %#v", got)
	}
	h.call(func() {
		if b := stale.Backing(); b != nil {
			t.Errorf("replaced replica still exposes a backing store")
		}
		w := h.viewer.windows[3]
		if g := w.Geometry(); g != (platform.Rect{X: 5, Y: 5, Width: 20, Height: 20}) {
			t.Errorf("new replica geometry = %+v", g)
		}
		if !w.Mapped() {
			t.Errorf("new replica was unmapped by the old surface")
		}
	})
}
