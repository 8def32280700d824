package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/winmirror/internal/eventloop"
	"github.com/1broseidon/winmirror/internal/protocol"
	"github.com/1broseidon/winmirror/internal/replica"
	"github.com/1broseidon/winmirror/internal/runtimepath"
	"github.com/1broseidon/winmirror/internal/supervisor"
	"github.com/1broseidon/winmirror/internal/transport"
	"github.com/1broseidon/winmirror/internal/viewer"
	"github.com/1broseidon/winmirror/internal/x11"
)

func runViewer(args []string) int {
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	headless := fs.Bool("headless", false, "Keep replicas in memory without creating windows")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winmirror viewer [--config PATH] [--endpoint NAME] [--headless]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Connect to a server and present its windows locally.")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := eventloop.New()
	sup := supervisor.New("winmirror-viewer", logger)
	supervisor.Add(sup, supervisor.NewServiceFunc("event loop", func(ctx context.Context) error {
		return essential(ctx, loop.Run(ctx))
	}))

	var surfaces viewer.SurfaceFactory
	if *headless {
		surfaces = viewer.NewHeadlessFactory(loop)
	} else {
		conn, err := x11.NewConnection(cfg.Display)
		if err != nil {
			logger.Error("failed to connect to display", "error", err)
			return 1
		}
		defer conn.Close()
		surfaces = x11.NewSurfaceFactory(conn, logger)
		supervisor.Add(sup, supervisor.NewServiceFunc("x11 events", func(ctx context.Context) error {
			return essential(ctx, conn.EventLoop(ctx))
		}))
	}

	nc, err := transport.Dial(ctx, endpoint)
	if err != nil {
		logger.Error("failed to connect to server", "error", err)
		return 1
	}

	var lost error
	v := viewer.New(viewer.Config{
		Loop:         loop,
		Logger:       logger.With("component", "viewer"),
		Capabilities: cfg.Capabilities,
		Fill:         replica.Color(cfg.Fill()),
		Surfaces:     surfaces,
		OnLost: func(err error) {
			lost = err
			stop()
		},
	})
	loop.Post(func() {
		c := transport.New(nc, loop, func(_ *transport.Conn, p protocol.Packet) {
			v.HandlePacket(p)
		}, transport.Options{
			Logger:   logger,
			Checksum: cfg.Checksum,
			OnViolation: func(c *transport.Conn, err error) {
				c.Logger().Warn("ignoring malformed packet", "error", err)
			},
		})
		v.Attach(c)
		c.Start()
	})

	code := exitCode(sup.Serve(ctx), logger)
	if lost != nil {
		logger.Error("connection lost", "error", lost)
		return 1
	}
	return code
}
