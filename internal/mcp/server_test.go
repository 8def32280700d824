package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winmirror/internal/ipc"
	"github.com/1broseidon/winmirror/internal/session"
)

type fakeSource struct {
	status  ipc.StatusData
	windows []session.WindowInfo
	err     error
}

func (f *fakeSource) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.status, nil
}

func (f *fakeSource) ListWindows() (*ipc.WindowsData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ipc.WindowsData{Windows: f.windows}, nil
}

func connect(t *testing.T, src StatusSource) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	s := NewServer(src, nil)
	serverT, clientT := mcpsdk.NewInMemoryTransports()
	ss, err := s.mcpServer.Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool[T any](t *testing.T, cs *mcpsdk.ClientSession, name string, args any) (T, *mcpsdk.CallToolResult) {
	t.Helper()
	var out T
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError || res.StructuredContent == nil {
		return out, res
	}
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode structured content: %v", err)
	}
	return out, res
}

func TestToolsAreListed(t *testing.T) {
	cs := connect(t, &fakeSource{})
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"get_status", "list_windows"} {
		if !names[want] {
			t.Fatalf("tool %q not registered; have %v", want, names)
		}
	}
}

func TestGetStatus(t *testing.T) {
	src := &fakeSource{status: ipc.StatusData{
		Endpoint: "default",
		Status: session.Status{
			ActiveConnection: "c1",
			Windows:          4,
			ShownWindows:     2,
			Capabilities:     []string{"deflate"},
		},
	}}
	out, res := callTool[GetStatusOutput](t, connect(t, src), "get_status", map[string]any{})
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	if !out.Connected || out.Endpoint != "default" || out.Windows != 4 || out.ShownWindows != 2 {
		t.Fatalf("unexpected status: %+v", out)
	}
}

func TestGetStatusDisconnected(t *testing.T) {
	out, _ := callTool[GetStatusOutput](t, connect(t, &fakeSource{}), "get_status", map[string]any{})
	if out.Connected {
		t.Fatalf("expected no active connection: %+v", out)
	}
	if out.Capabilities == nil || len(out.Capabilities) != 0 {
		t.Fatalf("Capabilities = %v, want empty list", out.Capabilities)
	}
}

func TestListWindowsFilters(t *testing.T) {
	src := &fakeSource{windows: []session.WindowInfo{
		{ID: 1, Title: "Terminal", Shown: true, Owner: "remote"},
		{ID: 2, Title: "Browser", Owner: "native"},
		{ID: 3, Title: "second terminal", Owner: "native"},
	}}
	cs := connect(t, src)

	tests := []struct {
		name string
		args map[string]any
		want []uint32
	}{
		{"all", map[string]any{}, []uint32{1, 2, 3}},
		{"shown only", map[string]any{"shown_only": true}, []uint32{1}},
		{"title", map[string]any{"title": "TERMINAL"}, []uint32{1, 3}},
		{"no match", map[string]any{"title": "mail"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, res := callTool[ListWindowsOutput](t, cs, "list_windows", tt.args)
			if res.IsError {
				t.Fatalf("unexpected tool error: %+v", res.Content)
			}
			if len(out.Windows) != len(tt.want) {
				t.Fatalf("got %d windows, want %v", len(out.Windows), tt.want)
			}
			for i, w := range out.Windows {
				if w.ID != tt.want[i] {
					t.Fatalf("window %d id = %d, want %d", i, w.ID, tt.want[i])
				}
			}
		})
	}
}

func TestSourceErrorIsToolError(t *testing.T) {
	cs := connect(t, &fakeSource{err: errors.New("failed to connect to server")})
	_, res := callTool[GetStatusOutput](t, cs, "get_status", map[string]any{})
	if !res.IsError {
		t.Fatalf("expected tool error result")
	}
}
