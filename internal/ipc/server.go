package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/1broseidon/winmirror/internal/session"
)

// Provider answers status queries. *session.Server implements it.
type Provider interface {
	Status(ctx context.Context) (session.Status, error)
	Windows(ctx context.Context) ([]session.WindowInfo, error)
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	endpoint   string
	provider   Provider
	log        *slog.Logger
	timeout    time.Duration
}

// NewServer serves provider on socketPath. endpoint names the mirroring
// endpoint the status belongs to.
func NewServer(socketPath, endpoint string, provider Provider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		endpoint:   endpoint,
		provider:   provider,
		log:        logger.With("component", "ipc"),
		timeout:    5 * time.Second,
	}
}

func (s *Server) String() string {
	return "ipc " + s.socketPath
}

// Serve listens until ctx is cancelled, then removes the socket.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	// Remove existing socket if present
	os.Remove(s.socketPath)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	defer os.Remove(s.socketPath)

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}
	s.log.Info("status socket listening", "path", s.socketPath)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Warn("IPC accept error", "error", err)
			continue
		}
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection answers one newline-terminated JSON request.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(s.timeout))

	data, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.log.Debug("IPC read error", "error", err)
		return
	}

	var resp *Response
	if req, err := ParseRequest(data); err != nil {
		resp = NewErrorResponse(fmt.Sprintf("Invalid request: %v", err))
	} else {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		resp = s.handleCommand(ctx, req)
		cancel()
	}

	respData, err := resp.Marshal()
	if err != nil {
		s.log.Warn("failed to marshal response", "error", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.log.Debug("failed to send response", "error", err)
	}
}

func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		st, err := s.provider.Status(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("status unavailable: %v", err))
		}
		return okResponse(StatusData{Status: st, Endpoint: s.endpoint})
	case CommandListWindows:
		windows, err := s.provider.Windows(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("window list unavailable: %v", err))
		}
		if windows == nil {
			windows = []session.WindowInfo{}
		}
		return okResponse(WindowsData{Windows: windows})
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func okResponse(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}
