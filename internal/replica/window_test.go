package replica

import (
	"errors"
	"reflect"
	"testing"

	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
)

type sentPackets []protocol.Packet

func (s *sentPackets) Send(p protocol.Packet) { *s = append(*s, p) }

func newWindow(t *testing.T) (*Window, *HeadlessSurface, *sentPackets) {
	t.Helper()
	surface := &HeadlessSurface{}
	sent := &sentPackets{}
	w := New(protocol.NewWindow{ID: 5, X: 10, Y: 20, Width: 30, Height: 40}, surface, sent, White)
	return w, surface, sent
}

func TestWindow_CreatePresentsWithPlaceholderTitle(t *testing.T) {
	w, surface, sent := newWindow(t)

	if surface.Title != "<untitled window> (via winmirror)" {
		t.Fatalf("title = %q", surface.Title)
	}
	if surface.Width != 30 || surface.Height != 40 || surface.Presented != 1 {
		t.Fatalf("surface = %+v", surface)
	}
	if b := w.Backing(); b.Width != 1 || b.Height != 1 {
		t.Fatalf("backing = %dx%d, want 1x1 until configured", b.Width, b.Height)
	}
	if len(*sent) != 0 {
		t.Fatalf("create sent %v", *sent)
	}
}

func TestWindow_UpdateMetadataMerges(t *testing.T) {
	w, surface, _ := newWindow(t)

	w.UpdateMetadata(protocol.TitleMetadata("xterm"))
	w.UpdateMetadata(protocol.Metadata{MinSize: &platform.Size{Width: 5, Height: 6}})

	if surface.Title != "xterm (via winmirror)" {
		t.Fatalf("title = %q", surface.Title)
	}
	if surface.Hints.MinSize == nil || *surface.Hints.MinSize != (platform.Size{Width: 5, Height: 6}) {
		t.Fatalf("hints = %+v", surface.Hints)
	}
	if surface.Hints.MaxSize != nil {
		t.Fatal("absent key imposed a constraint")
	}
	if md := w.Metadata(); md.Title == nil || *md.Title != "xterm" {
		t.Fatalf("metadata lost title: %+v", md)
	}
}

func TestWindow_IntentsDeduplicated(t *testing.T) {
	w, _, sent := newWindow(t)

	w.HandleConfigure(10, 20, 30, 40) // before map: nothing sent
	w.HandleMap()
	w.HandleMap()
	w.HandleConfigure(10, 20, 30, 40) // no-op
	w.HandleConfigure(15, 20, 30, 40) // move
	w.HandleConfigure(15, 20, 30, 40) // no-op
	w.HandleConfigure(15, 20, 50, 60) // resize
	w.HandleUnmap()
	w.HandleUnmap()
	w.HandleCloseRequest()

	want := []protocol.Packet{
		protocol.MapWindow{ID: 5, X: 10, Y: 20, Width: 30, Height: 40},
		protocol.MoveWindow{ID: 5, X: 15, Y: 20},
		protocol.ResizeWindow{ID: 5, Width: 50, Height: 60},
		protocol.UnmapWindow{ID: 5},
		protocol.CloseWindow{ID: 5},
	}
	if !reflect.DeepEqual([]protocol.Packet(*sent), want) {
		t.Fatalf("sent = %#v\nwant %#v", *sent, want)
	}
	if b := w.Backing(); b.Width != 50 || b.Height != 60 {
		t.Fatalf("backing = %dx%d, want 50x60", b.Width, b.Height)
	}
}

func TestWindow_ApplyPixels(t *testing.T) {
	w, surface, _ := newWindow(t)
	w.HandleConfigure(10, 20, 30, 40)

	r := platform.Rect{X: 2, Y: 3, Width: 2, Height: 1}
	if err := w.ApplyPixels(r, []byte{9, 9, 9, 8, 8, 8}); err != nil {
		t.Fatalf("ApplyPixels() error: %v", err)
	}
	if got := w.Backing().At(3, 3); got != (Color{8, 8, 8}) {
		t.Fatalf("At(3,3) = %v", got)
	}
	if len(surface.Invalidated) != 1 || surface.Invalidated[0] != r {
		t.Fatalf("invalidated = %v", surface.Invalidated)
	}

	err := w.ApplyPixels(r, []byte{1, 2, 3})
	var pv *protocol.ProtocolViolation
	if !errors.As(err, &pv) {
		t.Fatalf("ApplyPixels(short) error = %v, want *ProtocolViolation", err)
	}
	if got := w.Backing().At(2, 3); got != (Color{9, 9, 9}) {
		t.Fatal("failed write mutated the store")
	}
	if len(surface.Invalidated) != 1 {
		t.Fatal("failed write invalidated the surface")
	}
}

func TestWindow_Destroy(t *testing.T) {
	w, surface, _ := newWindow(t)
	w.Destroy()
	if !surface.Destroyed || w.Backing() != nil {
		t.Fatal("Destroy did not release resources")
	}
	if err := w.ApplyPixels(platform.Rect{Width: 1, Height: 1}, []byte{0, 0, 0}); !errors.Is(err, protocol.ErrUnknownWindow) {
		t.Fatalf("ApplyPixels after destroy = %v", err)
	}
}
