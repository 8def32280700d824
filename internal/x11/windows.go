package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/winmirror/internal/platform"
)

const iconicState = 3

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// A maximized window ignores the request under most window managers.
	c.unmaximizeWindow(windowID)

	err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height)
	if err != nil {
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

func (c *Connection) unmaximizeWindow(windowID xproto.Window) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return
	}
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT":
			ewmh.WmStateReq(c.XUtil, windowID, 0, state)
		}
	}
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return true
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}
	return len(types) == 0
}

// WindowRect returns the root-relative geometry of a window.
func (c *Connection) WindowRect(windowID xproto.Window) (platform.Rect, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("get geometry of 0x%x: %w", windowID, err)
	}
	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return platform.Rect{}, fmt.Errorf("translate coordinates of 0x%x: %w", windowID, err)
	}
	return platform.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// WindowTitle prefers _NET_WM_NAME and falls back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) (string, bool) {
	if title, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title, true
		}
	}
	if title, err := icccm.WmNameGet(c.XUtil, windowID); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title, true
		}
	}
	return "", false
}

// WindowSizeHints reads WM_NORMAL_HINTS. A window without the property has
// no hints, which is not an error.
func (c *Connection) WindowSizeHints(windowID xproto.Window) (platform.SizeHints, error) {
	nh, err := icccm.WmNormalHintsGet(c.XUtil, windowID)
	if err != nil {
		return platform.SizeHints{}, nil
	}
	return hintsFromNormal(nh), nil
}

func hintsFromNormal(nh *icccm.NormalHints) platform.SizeHints {
	var h platform.SizeHints
	size := func(w, ht uint) *platform.Size {
		return &platform.Size{Width: int(w), Height: int(ht)}
	}
	if nh.Flags&icccm.SizeHintPMaxSize != 0 {
		h.MaxSize = size(nh.MaxWidth, nh.MaxHeight)
	}
	if nh.Flags&icccm.SizeHintPMinSize != 0 {
		h.MinSize = size(nh.MinWidth, nh.MinHeight)
	}
	if nh.Flags&icccm.SizeHintPBaseSize != 0 {
		h.BaseSize = size(nh.BaseWidth, nh.BaseHeight)
	}
	if nh.Flags&icccm.SizeHintPResizeInc != 0 {
		h.Increment = size(nh.WidthInc, nh.HeightInc)
	}
	if nh.Flags&icccm.SizeHintPAspect != 0 {
		h.MinAspect = &platform.Ratio{Num: int(nh.MinAspectNum), Den: int(nh.MinAspectDen)}
		h.MaxAspect = &platform.Ratio{Num: int(nh.MaxAspectNum), Den: int(nh.MaxAspectDen)}
	}
	return h
}

func normalFromHints(h platform.SizeHints) *icccm.NormalHints {
	nh := &icccm.NormalHints{}
	if s := h.MaxSize; s != nil {
		nh.Flags |= icccm.SizeHintPMaxSize
		nh.MaxWidth, nh.MaxHeight = uint(s.Width), uint(s.Height)
	}
	if s := h.MinSize; s != nil {
		nh.Flags |= icccm.SizeHintPMinSize
		nh.MinWidth, nh.MinHeight = uint(s.Width), uint(s.Height)
	}
	if s := h.BaseSize; s != nil {
		nh.Flags |= icccm.SizeHintPBaseSize
		nh.BaseWidth, nh.BaseHeight = uint(s.Width), uint(s.Height)
	}
	if s := h.Increment; s != nil {
		nh.Flags |= icccm.SizeHintPResizeInc
		nh.WidthInc, nh.HeightInc = uint(s.Width), uint(s.Height)
	}
	if h.MinAspect != nil || h.MaxAspect != nil {
		nh.Flags |= icccm.SizeHintPAspect
		if r := h.MinAspect; r != nil {
			nh.MinAspectNum, nh.MinAspectDen = uint(r.Num), uint(r.Den)
		}
		if r := h.MaxAspect; r != nil {
			nh.MaxAspectNum, nh.MaxAspectDen = uint(r.Num), uint(r.Den)
		}
	}
	return nh
}

// CloseWindow requests graceful window close via WM_DELETE_WINDOW.
func (c *Connection) CloseWindow(windowID xproto.Window) error {
	protocols, err := xprop.Atm(c.XUtil, "WM_PROTOCOLS")
	if err != nil {
		return err
	}
	del, err := xprop.Atm(c.XUtil, "WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   protocols,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(del), 0, 0, 0, 0}),
	}
	return xproto.SendEventChecked(c.XUtil.Conn(), false, windowID,
		xproto.EventMaskNoEvent, string(ev.Bytes())).Check()
}

// SetIconic iconifies a window via WM_CHANGE_STATE, or maps it again, which
// ICCCM defines as the way to leave the iconic state.
func (c *Connection) SetIconic(windowID xproto.Window, iconic bool) error {
	if !iconic {
		return xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check()
	}
	changeState, err := xprop.Atm(c.XUtil, "WM_CHANGE_STATE")
	if err != nil {
		return err
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   changeState,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{iconicState, 0, 0, 0, 0}),
	}
	return xproto.SendEventChecked(c.XUtil.Conn(), false, c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes())).Check()
}

// Restack raises each window in turn so the last one ends on top.
func (c *Connection) Restack(bottomToTop []xproto.Window) error {
	for _, win := range bottomToTop {
		err := xproto.ConfigureWindowChecked(c.XUtil.Conn(), win,
			xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check()
		if err != nil {
			return fmt.Errorf("raise 0x%x: %w", win, err)
		}
	}
	return nil
}
