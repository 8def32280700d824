package replica

import (
	"github.com/1broseidon/winmirror/internal/platform"
)

// Surface is the native presentation of one replica.
type Surface interface {
	SetTitle(title string)
	SetHints(hints platform.SizeHints)
	// Present creates or resizes the native surface.
	Present(width, height int)
	// Invalidate schedules r, in window coordinates, for repaint from the
	// backing store.
	Invalidate(r platform.Rect)
	Destroy()
}

// HeadlessSurface records what a replica asked of its surface.
type HeadlessSurface struct {
	Title       string
	Hints       platform.SizeHints
	Width       int
	Height      int
	Presented   int
	Invalidated []platform.Rect
	Destroyed   bool
}

var _ Surface = (*HeadlessSurface)(nil)

func (s *HeadlessSurface) SetTitle(title string) { s.Title = title }

func (s *HeadlessSurface) SetHints(hints platform.SizeHints) { s.Hints = hints }

func (s *HeadlessSurface) Present(width, height int) {
	s.Width, s.Height = width, height
	s.Presented++
}

func (s *HeadlessSurface) Invalidate(r platform.Rect) {
	s.Invalidated = append(s.Invalidated, r)
}

func (s *HeadlessSurface) Destroy() { s.Destroyed = true }
