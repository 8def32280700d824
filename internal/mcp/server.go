// Package mcp exposes a running winmirror server's status to MCP clients
// over stdio. It reads everything through the server's status socket.
package mcp

import (
	"context"
	"log/slog"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winmirror/internal/ipc"
)

const (
	ServerName    = "winmirror"
	ServerVersion = "0.1.0"
)

// StatusSource is what the tools query. *ipc.Client implements it.
type StatusSource interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() (*ipc.WindowsData, error)
}

// Server is the MCP server that exposes mirroring status tools.
type Server struct {
	source    StatusSource
	log       *slog.Logger
	mcpServer *mcpsdk.Server
}

// NewServer creates a new MCP server backed by source.
func NewServer(source StatusSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{source: source, log: logger.With("component", "mcp")}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report the state of the winmirror server: whether a viewer is connected, the negotiated capabilities, and how many windows are tracked, shown and waiting for repaint.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the windows the winmirror server tracks, with their id, native handle, title, geometry, whether the viewer shows them, and which side currently places them.",
	}, s.handleListWindows)
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	st, err := s.source.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	out := GetStatusOutput{
		Endpoint:           st.Endpoint,
		Connected:          st.ActiveConnection != "",
		ActiveConnection:   st.ActiveConnection,
		PendingConnections: st.PendingConns,
		Capabilities:       st.Capabilities,
		Windows:            st.Windows,
		ShownWindows:       st.ShownWindows,
		DamagedWindows:     st.DamagedWindows,
		UptimeSeconds:      st.UptimeSeconds,
	}
	if out.Capabilities == nil {
		out.Capabilities = []string{}
	}
	s.log.Debug("get_status", "connected", out.Connected, "windows", out.Windows)
	return nil, out, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	data, err := s.source.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	title := strings.ToLower(strings.TrimSpace(args.Title))
	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(data.Windows))}
	for _, w := range data.Windows {
		if args.ShownOnly && !w.Shown {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(w.Title), title) {
			continue
		}
		out.Windows = append(out.Windows, WindowInfo{
			ID:            uint32(w.ID),
			Handle:        uint32(w.Handle),
			Title:         w.Title,
			X:             w.X,
			Y:             w.Y,
			Width:         w.Width,
			Height:        w.Height,
			Shown:         w.Shown,
			Owner:         w.Owner,
			DamagedPixels: w.Damaged,
		})
	}
	s.log.Debug("list_windows", "count", len(out.Windows))
	return nil, out, nil
}
