// Package protocol defines the packets exchanged between a mirroring server
// and its viewer, and the JSON envelope they travel in.
package protocol

import (
	"github.com/1broseidon/winmirror/internal/platform"
)

// Packet type tags as they appear on the wire.
const (
	TypeHello          = "hello"
	TypeNewWindow      = "new-window"
	TypeWindowMetadata = "window-metadata"
	TypeLostWindow     = "lost-window"
	TypeDraw           = "draw"
	TypeMapWindow      = "map-window"
	TypeUnmapWindow    = "unmap-window"
	TypeMoveWindow     = "move-window"
	TypeResizeWindow   = "resize-window"
	TypeWindowOrder    = "window-order"
	TypeCloseWindow    = "close-window"
	TypeConnectionLost = "connection-lost"
)

// EncodingRGB24 is the only pixel encoding: 3 bytes per pixel, rows top to
// bottom, no padding.
const (
	EncodingRGB24 = "rgb24"
	BytesPerPixel = 3
)

// MaxDimension bounds every window size and draw coordinate on the wire.
// It is the largest size an X11 window can have.
const MaxDimension = 32767

// Packet is any message carried by a transport.
type Packet interface {
	Type() string
}

type Hello struct {
	Capabilities []string `json:"capabilities"`
}

type NewWindow struct {
	ID       platform.WindowID `json:"id"`
	X        int               `json:"x"`
	Y        int               `json:"y"`
	Width    int               `json:"w"`
	Height   int               `json:"h"`
	Metadata Metadata          `json:"metadata"`
}

type WindowMetadata struct {
	ID       platform.WindowID `json:"id"`
	Metadata Metadata          `json:"metadata"`
}

type LostWindow struct {
	ID platform.WindowID `json:"id"`
}

// Draw carries the current pixels for one rectangle of a window, in window
// coordinates.
type Draw struct {
	ID       platform.WindowID `json:"id"`
	X        int               `json:"x"`
	Y        int               `json:"y"`
	Width    int               `json:"w"`
	Height   int               `json:"h"`
	Encoding string            `json:"encoding"`
	Data     []byte            `json:"data"`
}

type MapWindow struct {
	ID     platform.WindowID `json:"id"`
	X      int               `json:"x"`
	Y      int               `json:"y"`
	Width  int               `json:"w"`
	Height int               `json:"h"`
}

type UnmapWindow struct {
	ID platform.WindowID `json:"id"`
}

type MoveWindow struct {
	ID platform.WindowID `json:"id"`
	X  int               `json:"x"`
	Y  int               `json:"y"`
}

type ResizeWindow struct {
	ID     platform.WindowID `json:"id"`
	Width  int               `json:"w"`
	Height int               `json:"h"`
}

// WindowOrder lists window ids from bottom to top.
type WindowOrder struct {
	IDs []platform.WindowID `json:"ids"`
}

type CloseWindow struct {
	ID platform.WindowID `json:"id"`
}

// ConnectionLost is delivered by a transport, in order with every other
// inbound packet, once the peer is gone. It is never encoded.
type ConnectionLost struct {
	Err error `json:"-"`
}

func (Hello) Type() string          { return TypeHello }
func (NewWindow) Type() string      { return TypeNewWindow }
func (WindowMetadata) Type() string { return TypeWindowMetadata }
func (LostWindow) Type() string     { return TypeLostWindow }
func (Draw) Type() string           { return TypeDraw }
func (MapWindow) Type() string      { return TypeMapWindow }
func (UnmapWindow) Type() string    { return TypeUnmapWindow }
func (MoveWindow) Type() string     { return TypeMoveWindow }
func (ResizeWindow) Type() string   { return TypeResizeWindow }
func (WindowOrder) Type() string    { return TypeWindowOrder }
func (CloseWindow) Type() string    { return TypeCloseWindow }
func (ConnectionLost) Type() string { return TypeConnectionLost }

// Rect returns the rectangle the draw covers.
func (d Draw) Rect() platform.Rect {
	return platform.Rect{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}
}
