// Package daemon holds background maintenance for the mirroring server.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/1broseidon/winmirror/internal/eventloop"
	"github.com/1broseidon/winmirror/internal/platform"
)

// Lister enumerates the windows the native system currently manages.
type Lister interface {
	Windows() ([]platform.Handle, error)
}

// Tracker is the loop-owned side of reconciliation. *session.Server
// implements it.
type Tracker interface {
	TrackedHandles() []platform.Handle
	HandleEvent(ev platform.Event)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically compares native enumeration with the tracked
// window set and repairs drift caused by missed native events.
type Reconciler struct {
	interval time.Duration
	lister   Lister
	loop     *eventloop.Loop
	tracker  Tracker
	logger   *slog.Logger
}

// NewReconciler creates a reconciler. tracker is only touched on loop.
func NewReconciler(cfg ReconcilerConfig, lister Lister, loop *eventloop.Loop, tracker Tracker) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval: cfg.Interval,
		lister:   lister,
		loop:     loop,
		tracker:  tracker,
		logger:   logger,
	}
}

func (r *Reconciler) String() string { return "reconciler" }

// Serve runs reconciliation passes until ctx is cancelled. A non-positive
// interval disables the reconciler.
func (r *Reconciler) Serve(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.Debug("reconciler disabled")
		return suture.ErrDoNotRestart
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("reconcile failed", "error", err)
			}
		}
	}
}

// Reconcile performs a single pass. It synthesizes Created for windows the
// native side lists but the session lacks, and Unmanaged for the reverse,
// and reports how many of each it applied.
func (r *Reconciler) Reconcile(ctx context.Context) (created, removed int, err error) {
	actual, err := r.lister.Windows()
	if err != nil {
		return 0, 0, err
	}
	present := make(map[platform.Handle]bool, len(actual))
	for _, h := range actual {
		present[h] = true
	}

	err = r.loop.Call(ctx, func() {
		tracked := r.tracker.TrackedHandles()
		known := make(map[platform.Handle]bool, len(tracked))
		for _, h := range tracked {
			known[h] = true
			if !present[h] {
				r.logger.Info("reconciler: window vanished without notice", "handle", h)
				r.tracker.HandleEvent(platform.Unmanaged{Handle: h})
				removed++
			}
		}
		for _, h := range actual {
			if !known[h] {
				r.logger.Info("reconciler: untracked window found", "handle", h)
				r.tracker.HandleEvent(platform.Created{Handle: h})
				created++
			}
		}
	})
	return created, removed, err
}
