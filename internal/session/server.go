// Package session is the server side of window mirroring. It maps native
// windows to ids, feeds native events into the placement authority and the
// active connection's damage source, and runs the connection handshake.
package session

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/1broseidon/winmirror/internal/damage"
	"github.com/1broseidon/winmirror/internal/desktop"
	"github.com/1broseidon/winmirror/internal/eventloop"
	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
	"github.com/1broseidon/winmirror/internal/transport"
)

// DefaultMaxChunkPixels bounds the area of a single draw packet.
const DefaultMaxChunkPixels = 512 * 512

// Peer is the server's view of one connection. *transport.Conn implements
// it.
type Peer interface {
	ID() string
	Send(p protocol.Packet)
	SetSource(src transport.Source)
	SourceHasMore()
	EnableCompression()
	Close()
	Logger() *slog.Logger
}

type Config struct {
	Backend        platform.Backend
	Loop           *eventloop.Loop
	Logger         *slog.Logger
	Capabilities   []string
	MaxChunkPixels int
	Checksum       bool
}

// Server is used from its event loop only, except for Accept, Serve, Status
// and Windows.
type Server struct {
	backend platform.Backend
	loop    *eventloop.Loop
	log     *slog.Logger
	caps    []string
	chunk   int
	check   bool
	started time.Time

	arena   *Arena
	desktop *desktop.Manager

	pending    map[Peer]struct{}
	active     Peer
	source     *damage.Source
	negotiated []string
	accepted   uint64
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chunk := cfg.MaxChunkPixels
	if chunk <= 0 {
		chunk = DefaultMaxChunkPixels
	}
	caps := cfg.Capabilities
	if caps == nil {
		caps = protocol.KnownCapabilities
	}
	return &Server{
		backend: cfg.Backend,
		loop:    cfg.Loop,
		log:     logger,
		caps:    caps,
		chunk:   chunk,
		check:   cfg.Checksum,
		started: time.Now(),
		arena:   NewArena(),
		desktop: desktop.NewManager(cfg.Backend, logger.With("component", "desktop")),
		pending: make(map[Peer]struct{}),
	}
}

// Accept adopts a freshly accepted socket. It is safe to call from any
// goroutine.
func (s *Server) Accept(nc net.Conn) {
	s.loop.Post(func() {
		c := transport.New(nc, s.loop, func(c *transport.Conn, p protocol.Packet) {
			s.HandlePacket(c, p)
		}, transport.Options{Logger: s.log, Checksum: s.check})
		s.AddPeer(c)
		c.Start()
	})
}

// AddPeer registers a connection that has not completed the handshake yet.
func (s *Server) AddPeer(p Peer) {
	s.accepted++
	s.pending[p] = struct{}{}
	p.Logger().Info("connection accepted")
}

// Start tracks every window the backend already knows about.
func (s *Server) Start() error {
	handles, err := s.backend.Windows()
	if err != nil {
		return err
	}
	for _, h := range handles {
		s.HandleEvent(platform.Created{Handle: h})
	}
	return nil
}

func (s *Server) String() string { return "session server" }

// Serve forwards native events to the loop until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	events := s.backend.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.loop.Post(func() { s.HandleEvent(ev) })
		}
	}
}

// Bounds implements damage.Windows with window-local bounds.
func (s *Server) Bounds(id platform.WindowID) (platform.Rect, bool) {
	g, ok := s.desktop.Geometry(id)
	if !ok {
		return platform.Rect{}, false
	}
	return platform.Rect{Width: g.Width, Height: g.Height}, true
}

// Snapshot implements damage.Windows.
func (s *Server) Snapshot(id platform.WindowID, r platform.Rect) (platform.Rect, []byte, bool) {
	h, ok := s.arena.Handle(id)
	if !ok {
		return platform.Rect{}, nil, false
	}
	got, data, err := s.backend.Snapshot(h, r)
	if err != nil {
		s.log.Debug("snapshot failed", "window", id, "error", err)
		return platform.Rect{}, nil, false
	}
	return got, data, true
}

// Desktop exposes the placement authority.
func (s *Server) Desktop() *desktop.Manager { return s.desktop }

// TrackedHandles returns the native handle of every tracked window.
func (s *Server) TrackedHandles() []platform.Handle { return s.arena.Handles() }
