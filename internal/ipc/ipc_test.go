package ipc

import (
	"bufio"
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/winmirror/internal/session"
)

type fakeProvider struct {
	status  session.Status
	windows []session.WindowInfo
	err     error
}

func (p *fakeProvider) Status(context.Context) (session.Status, error) {
	return p.status, p.err
}

func (p *fakeProvider) Windows(context.Context) ([]session.WindowInfo, error) {
	return p.windows, p.err
}

func startServer(t *testing.T, p Provider) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "status.sock")
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(path, "test", p, nil)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("unix", path)
		if err == nil {
			conn.Close()
			return path
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClientGetStatus(t *testing.T) {
	p := &fakeProvider{status: session.Status{
		ActiveConnection: "abc",
		Windows:          3,
		ShownWindows:     1,
		Capabilities:     []string{"deflate"},
	}}
	c := NewClient(startServer(t, p))

	st, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.Endpoint != "test" || st.ActiveConnection != "abc" || st.Windows != 3 || st.ShownWindows != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if len(st.Capabilities) != 1 || st.Capabilities[0] != "deflate" {
		t.Fatalf("Capabilities = %v", st.Capabilities)
	}
	if err := c.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestClientListWindows(t *testing.T) {
	p := &fakeProvider{windows: []session.WindowInfo{
		{ID: 1, Handle: 0x400001, Width: 640, Height: 480, Shown: true, Owner: "remote", Title: "editor"},
		{ID: 2, Handle: 0x400002, Owner: "native"},
	}}
	c := NewClient(startServer(t, p))

	got, err := c.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(got.Windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(got.Windows))
	}
	if w := got.Windows[0]; w.ID != 1 || w.Title != "editor" || !w.Shown || w.Width != 640 {
		t.Fatalf("unexpected window: %+v", w)
	}
}

func TestListWindowsEmptyIsNotNull(t *testing.T) {
	path := startServer(t, &fakeProvider{})
	resp := rawRequest(t, path, `{"command":"LIST_WINDOWS"}`)
	if !strings.Contains(resp, `"windows":[]`) {
		t.Fatalf("response %s should carry an empty list", resp)
	}
}

func TestProviderErrorIsReported(t *testing.T) {
	c := NewClient(startServer(t, &fakeProvider{err: errors.New("loop stopped")}))
	_, err := c.GetStatus()
	if err == nil || !strings.Contains(err.Error(), "loop stopped") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestUnknownAndMalformedRequests(t *testing.T) {
	path := startServer(t, &fakeProvider{})
	if resp := rawRequest(t, path, `{"command":"RELOAD"}`); !strings.Contains(resp, "Unknown command: RELOAD") {
		t.Fatalf("unexpected response %s", resp)
	}
	if resp := rawRequest(t, path, `not json`); !strings.Contains(resp, "Invalid request") {
		t.Fatalf("unexpected response %s", resp)
	}
}

func TestClientWithoutServer(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	if err := c.Ping(); err == nil {
		t.Fatalf("expected connection error")
	}
}

func rawRequest(t *testing.T, path, line string) string {
	t.Helper()
	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}
