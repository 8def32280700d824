package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"

	"github.com/1broseidon/winmirror/internal/platform"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	Bounds platform.Rect
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}
	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Disabled CRTC.
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}
		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}
		monitors = append(monitors, Monitor{
			ID:   i,
			Name: name,
			Bounds: platform.Rect{
				X:      int(info.X),
				Y:      int(info.Y),
				Width:  int(info.Width),
				Height: int(info.Height),
			},
		})
	}
	return monitors, nil
}

// ScreenBounds is the union of all monitors, or the root window size when
// RandR reports none.
func (c *Connection) ScreenBounds() platform.Rect {
	monitors, err := c.GetMonitors()
	if err == nil && len(monitors) > 0 {
		return unionBounds(monitors)
	}
	s := c.XUtil.Screen()
	return platform.Rect{Width: int(s.WidthInPixels), Height: int(s.HeightInPixels)}
}

func unionBounds(monitors []Monitor) platform.Rect {
	var r platform.Rect
	for _, m := range monitors {
		r = r.Union(m.Bounds)
	}
	return r
}
