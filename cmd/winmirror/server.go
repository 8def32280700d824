package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/winmirror/internal/daemon"
	"github.com/1broseidon/winmirror/internal/eventloop"
	"github.com/1broseidon/winmirror/internal/ipc"
	"github.com/1broseidon/winmirror/internal/runtimepath"
	"github.com/1broseidon/winmirror/internal/session"
	"github.com/1broseidon/winmirror/internal/supervisor"
	"github.com/1broseidon/winmirror/internal/transport"
	"github.com/1broseidon/winmirror/internal/x11"
)

func runServer(args []string) int {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winmirror server [--config PATH] [--endpoint NAME]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Export this display's windows on a local endpoint until interrupted.")
		fs.PrintDefaults()
	}
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger := initLogging(cfg)

	endpoint, err := runtimepath.EndpointPath(cfg.Endpoint)
	if err != nil {
		logger.Error("failed to resolve endpoint", "error", err)
		return 1
	}

	conn, err := x11.NewConnection(cfg.Display)
	if err != nil {
		logger.Error("failed to connect to display", "error", err)
		return 1
	}
	defer conn.Close()
	backend, err := x11.NewBackend(conn, logger)
	if err != nil {
		logger.Error("failed to set up window capture", "error", err)
		return 1
	}
	defer backend.Close()

	loop := eventloop.New()
	srv := session.New(session.Config{
		Backend:        backend,
		Loop:           loop,
		Logger:         logger.With("component", "session"),
		Capabilities:   cfg.Capabilities,
		MaxChunkPixels: cfg.MaxChunkPixels,
		Checksum:       cfg.Checksum,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := supervisor.New("winmirror-server", logger)
	supervisor.Add(sup, supervisor.NewServiceFunc("event loop", func(ctx context.Context) error {
		return essential(ctx, loop.Run(ctx))
	}))
	supervisor.Add(sup, supervisor.NewServiceFunc("x11 events", func(ctx context.Context) error {
		return essential(ctx, backend.Serve(ctx))
	}))
	supervisor.Add(sup, srv)
	supervisor.Add(sup, transport.NewListener(endpoint, logger, srv.Accept))
	if cfg.StatusSocket {
		statusPath, err := runtimepath.StatusSocketPath(cfg.Endpoint)
		if err != nil {
			logger.Error("failed to resolve status socket", "error", err)
			return 1
		}
		supervisor.Add(sup, ipc.NewServer(statusPath, cfg.Endpoint, srv, logger))
	}
	supervisor.Add(sup, daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval: time.Duration(cfg.ReconcileInterval),
		Logger:   logger.With("component", "reconciler"),
	}, backend, loop, srv))

	errc := sup.ServeBackground(ctx)

	var startErr error
	if err := loop.Call(ctx, func() { startErr = srv.Start() }); err != nil {
		return exitCode(<-errc, logger)
	}
	if startErr != nil {
		logger.Error("failed to enumerate windows", "error", startErr)
		stop()
		<-errc
		return 1
	}
	logger.Info("server started", "endpoint", cfg.Endpoint, "display", cfg.Display)

	return exitCode(<-errc, logger)
}
