// Package transport carries protocol packets over a stream socket.
//
// A Conn belongs to an eventloop.Loop: every method except Start must be
// called on the loop goroutine, and every inbound packet is delivered there.
// The socket reader and writer run on their own goroutines and only ever
// post back to the loop.
package transport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/1broseidon/winmirror/internal/eventloop"
	"github.com/1broseidon/winmirror/internal/protocol"
	"github.com/1broseidon/winmirror/internal/wire"
)

// Source supplies outgoing packets on demand. Next returns the next packet,
// or nil when this call produced nothing, and whether more work remains.
type Source interface {
	Next() (protocol.Packet, bool)
}

// Handler receives every inbound packet, including the final
// protocol.ConnectionLost.
type Handler func(c *Conn, p protocol.Packet)

// ViolationHandler receives packets that failed to decode. The default
// closes the connection.
type ViolationHandler func(c *Conn, err error)

type Options struct {
	Logger      *slog.Logger
	Checksum    bool
	OnViolation ViolationHandler
}

type outgoing struct {
	packet protocol.Packet
	flags  uint8
}

// Conn is one end of a packet channel with at most one frame in flight.
type Conn struct {
	id  string
	log *slog.Logger

	nc      net.Conn
	loop    *eventloop.Loop
	handler Handler
	onBad   ViolationHandler

	// Loop-owned state.
	flags      uint8
	queue      []protocol.Packet
	source     Source
	sourceMore bool
	writing    bool
	closed     bool
	lost       bool
	sent       uint64
	received   uint64

	out chan outgoing
}

// New wraps nc. Nothing is read or written until Start.
func New(nc net.Conn, loop *eventloop.Loop, handler Handler, opts Options) *Conn {
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{
		id:      id,
		log:     logger.With("conn", id),
		nc:      nc,
		loop:    loop,
		handler: handler,
		onBad:   opts.OnViolation,
		out:     make(chan outgoing, 1),
	}
	if opts.Checksum {
		c.flags |= wire.FlagChecksum
	}
	if c.onBad == nil {
		c.onBad = func(c *Conn, err error) {
			c.log.Warn("dropping connection after protocol violation", "error", err)
			c.Close()
		}
	}
	return c
}

// Start launches the reader and writer goroutines.
func (c *Conn) Start() {
	go c.readLoop()
	go c.writeLoop()
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// Logger returns the connection-scoped logger.
func (c *Conn) Logger() *slog.Logger { return c.log }

// Closed reports whether Close was called or the peer went away.
func (c *Conn) Closed() bool { return c.closed }

// Stats returns the number of frames sent and received.
func (c *Conn) Stats() (sent, received uint64) { return c.sent, c.received }

// Send queues p ahead of anything the source has to offer.
func (c *Conn) Send(p protocol.Packet) {
	if c.closed {
		return
	}
	c.queue = append(c.queue, p)
	c.pump()
}

// SetSource installs the packet source polled when the connection can write.
// A nil source detaches the current one.
func (c *Conn) SetSource(src Source) {
	c.source = src
	c.sourceMore = src != nil
	c.pump()
}

// SourceHasMore tells the connection the source has fresh work.
func (c *Conn) SourceHasMore() {
	if c.source == nil {
		return
	}
	c.sourceMore = true
	c.pump()
}

// EnableCompression deflates every frame written from now on.
func (c *Conn) EnableCompression() {
	c.flags |= wire.FlagDeflate
}

// CompressionEnabled reports whether outgoing frames are deflated.
func (c *Conn) CompressionEnabled() bool {
	return c.flags&wire.FlagDeflate != 0
}

// Close shuts the socket. The handler still receives ConnectionLost, once.
func (c *Conn) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.queue = nil
	c.source = nil
	_ = c.nc.Close()
	close(c.out)
	c.loop.Post(func() { c.connectionLost(nil) })
}

// pump hands the next packet to the writer if none is in flight. The source
// is only polled while the writer is idle.
func (c *Conn) pump() {
	for !c.closed && !c.writing {
		p, more := c.next()
		if p == nil {
			if !more {
				return
			}
			continue
		}
		c.writing = true
		c.out <- outgoing{packet: p, flags: c.flags}
	}
}

func (c *Conn) next() (protocol.Packet, bool) {
	if len(c.queue) > 0 {
		p := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		return p, len(c.queue) > 0 || c.sourceMore
	}
	if c.source == nil || !c.sourceMore {
		return nil, false
	}
	p, more := c.source.Next()
	c.sourceMore = more
	return p, more
}

func (c *Conn) written() {
	c.sent++
	c.writing = false
	c.pump()
}

func (c *Conn) connectionLost(err error) {
	if c.lost {
		return
	}
	c.lost = true
	if !c.closed {
		c.closed = true
		c.queue = nil
		c.source = nil
		_ = c.nc.Close()
		close(c.out)
	}
	if err != nil {
		c.log.Info("connection lost", "error", err)
	} else {
		c.log.Debug("connection closed")
	}
	c.handler(c, protocol.ConnectionLost{Err: err})
}

func (c *Conn) readLoop() {
	for {
		payload, err := wire.ReadFrame(c.nc)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				err = nil
			}
			c.loop.Post(func() { c.connectionLost(err) })
			return
		}
		p, err := protocol.Decode(payload)
		c.loop.Post(func() {
			if c.closed {
				return
			}
			c.received++
			if err != nil {
				c.onBad(c, err)
				return
			}
			c.handler(c, p)
		})
	}
}

func (c *Conn) writeLoop() {
	for o := range c.out {
		payload, err := protocol.Encode(o.packet)
		if err == nil {
			err = wire.WriteFrame(c.nc, o.flags, payload)
		}
		if err != nil {
			err = fmt.Errorf("failed to write %s: %w", o.packet.Type(), err)
			c.loop.Post(func() { c.connectionLost(err) })
			// Drain so Close never blocks on a full channel.
			for range c.out {
			}
			return
		}
		c.loop.Post(c.written)
	}
}
