package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
)

// Listener accepts stream connections on a unix socket endpoint.
type Listener struct {
	path   string
	log    *slog.Logger
	accept func(net.Conn)
}

// NewListener prepares a listener at path. accept runs on the accept
// goroutine and must hand the connection to the event loop itself.
func NewListener(path string, logger *slog.Logger, accept func(net.Conn)) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{path: path, log: logger, accept: accept}
}

func (l *Listener) String() string { return "listener " + l.path }

// Serve listens until ctx is cancelled.
func (l *Listener) Serve(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("failed to create endpoint directory: %w", err)
	}
	// Remove a stale socket left by a previous run.
	_ = os.Remove(l.path)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", l.path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.path, err)
	}
	if err := os.Chmod(l.path, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}
	l.log.Info("listening", "endpoint", l.path)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	defer os.Remove(l.path)

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			l.log.Warn("accept failed", "error", err)
			continue
		}
		l.accept(nc)
	}
}

// Dial connects to the endpoint at path.
func Dial(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	return nc, nil
}
