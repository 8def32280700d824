package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func TestSanitizeError(t *testing.T) {
	live := context.Background()
	done, cancel := context.WithCancel(context.Background())
	cancel()

	if err := SanitizeError(live, nil); err != nil {
		t.Fatalf("nil error became %v", err)
	}
	plain := errors.New("boom")
	if err := SanitizeError(live, plain); err != plain {
		t.Fatalf("plain error changed to %v", err)
	}
	if err := SanitizeError(done, plain); !errors.Is(err, context.Canceled) {
		t.Fatalf("error after shutdown = %v, want context.Canceled", err)
	}

	err := SanitizeError(live, context.DeadlineExceeded)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("inner deadline leaked as a context error: %v", err)
	}
	if err == nil || err.Error() != context.DeadlineExceeded.Error() {
		t.Fatalf("message lost: %v", err)
	}

	err = SanitizeError(live, errors.Join(context.Canceled, suture.ErrDoNotRestart))
	if !errors.Is(err, suture.ErrDoNotRestart) || errors.Is(err, context.Canceled) {
		t.Fatalf("do-not-restart not preserved cleanly: %v", err)
	}
}

func TestSupervisorRunsServiceFunc(t *testing.T) {
	ran := make(chan struct{})
	sup := New("test", nil)
	Add(sup, NewServiceFunc("once", func(ctx context.Context) error {
		close(ran)
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errc := sup.ServeBackground(ctx)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("service did not start")
	}
	cancel()
	select {
	case <-errc:
	case <-time.After(2 * time.Second):
		t.Fatalf("supervisor did not stop")
	}
}

func TestServiceFuncName(t *testing.T) {
	if got := NewServiceFunc("loop", nil).String(); got != "loop" {
		t.Fatalf("String() = %q", got)
	}
}
