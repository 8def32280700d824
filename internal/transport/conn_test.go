package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/1broseidon/winmirror/internal/eventloop"
	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
)

type recorder struct {
	packets chan protocol.Packet
}

func newRecorder() *recorder {
	return &recorder{packets: make(chan protocol.Packet, 64)}
}

func (r *recorder) handle(_ *Conn, p protocol.Packet) {
	r.packets <- p
}

func (r *recorder) next(t *testing.T) protocol.Packet {
	t.Helper()
	select {
	case p := <-r.packets:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for packet")
		return nil
	}
}

func startLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	l := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go l.Run(ctx)
	return l
}

func pair(t *testing.T, opts Options) (*Conn, *recorder, *Conn, *recorder, *eventloop.Loop) {
	t.Helper()
	loop := startLoop(t)
	a, b := net.Pipe()
	ra, rb := newRecorder(), newRecorder()
	ca := New(a, loop, ra.handle, opts)
	cb := New(b, loop, rb.handle, opts)
	ca.Start()
	cb.Start()
	return ca, ra, cb, rb, loop
}

// sliceSource hands out packets one at a time and counts polls.
type sliceSource struct {
	packets []protocol.Packet
	polls   int
}

func (s *sliceSource) Next() (protocol.Packet, bool) {
	s.polls++
	if len(s.packets) == 0 {
		return nil, false
	}
	p := s.packets[0]
	s.packets = s.packets[1:]
	return p, len(s.packets) > 0
}

func TestConn_SendPreservesOrder(t *testing.T) {
	ca, _, _, rb, loop := pair(t, Options{Checksum: true})

	loop.Post(func() {
		for i := 1; i <= 20; i++ {
			ca.Send(protocol.LostWindow{ID: platform.WindowID(i)})
		}
	})

	for i := 1; i <= 20; i++ {
		p := rb.next(t)
		lw, ok := p.(protocol.LostWindow)
		if !ok || int(lw.ID) != i {
			t.Fatalf("packet %d = %#v", i, p)
		}
	}
}

func TestConn_SourceDrainedAfterQueue(t *testing.T) {
	ca, _, _, rb, loop := pair(t, Options{})

	src := &sliceSource{packets: []protocol.Packet{
		protocol.CloseWindow{ID: 1},
		protocol.CloseWindow{ID: 2},
	}}
	loop.Post(func() {
		ca.Send(protocol.Hello{Capabilities: []string{"deflate"}})
		ca.SetSource(src)
	})

	if _, ok := rb.next(t).(protocol.Hello); !ok {
		t.Fatal("expected hello first")
	}
	for _, want := range []int{1, 2} {
		cw, ok := rb.next(t).(protocol.CloseWindow)
		if !ok || int(cw.ID) != want {
			t.Fatalf("expected close-window %d", want)
		}
	}

	// Once the source reported no more work it is not polled again until
	// signalled.
	var polls int
	if err := loop.Call(context.Background(), func() { polls = src.polls }); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	var after int
	if err := loop.Call(context.Background(), func() { after = src.polls }); err != nil {
		t.Fatal(err)
	}
	if after != polls {
		t.Fatalf("source polled %d more times without a signal", after-polls)
	}

	loop.Post(func() {
		src.packets = append(src.packets, protocol.CloseWindow{ID: 3})
		ca.SourceHasMore()
	})
	if cw, ok := rb.next(t).(protocol.CloseWindow); !ok || cw.ID != 3 {
		t.Fatal("expected close-window 3 after signal")
	}
}

func TestConn_CompressionNegotiatedMidStream(t *testing.T) {
	ca, _, _, rb, loop := pair(t, Options{Checksum: true})

	data := make([]byte, 3*64*64)
	loop.Post(func() {
		ca.Send(protocol.Hello{Capabilities: []string{"deflate"}})
		ca.EnableCompression()
		ca.Send(protocol.Draw{ID: 1, Width: 64, Height: 64, Encoding: protocol.EncodingRGB24, Data: data})
	})

	rb.next(t)
	d, ok := rb.next(t).(protocol.Draw)
	if !ok || len(d.Data) != len(data) {
		t.Fatalf("draw not received intact: %#v", d)
	}
}

func TestConn_CloseDeliversConnectionLostOnce(t *testing.T) {
	ca, ra, _, rb, loop := pair(t, Options{})

	loop.Post(func() {
		ca.Close()
		ca.Close()
	})

	if _, ok := ra.next(t).(protocol.ConnectionLost); !ok {
		t.Fatal("closing side did not see connection-lost")
	}
	if _, ok := rb.next(t).(protocol.ConnectionLost); !ok {
		t.Fatal("peer did not see connection-lost")
	}

	select {
	case p := <-ra.packets:
		t.Fatalf("unexpected extra packet %#v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConn_ViolationHandler(t *testing.T) {
	loop := startLoop(t)
	a, b := net.Pipe()
	violations := make(chan error, 1)
	rb := newRecorder()
	cb := New(b, loop, rb.handle, Options{OnViolation: func(_ *Conn, err error) { violations <- err }})
	cb.Start()

	ra := newRecorder()
	ca := New(a, loop, ra.handle, Options{})
	ca.Start()
	loop.Post(func() { ca.Send(protocol.CloseWindow{ID: 0}) })

	select {
	case err := <-violations:
		if err == nil {
			t.Fatal("nil violation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("violation not reported")
	}
}
