package replica

import (
	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
)

// Color is an RGB24 pixel.
type Color [3]byte

// White is the default fill for newly exposed backing store.
var White = Color{0xff, 0xff, 0xff}

// Backing is an RGB24 pixel store, rows top to bottom without padding.
type Backing struct {
	Width  int
	Height int
	Pix    []byte
	Fill   Color
}

// NewBacking allocates a store filled with fill. Sizes are clamped to
// 1..protocol.MaxDimension.
func NewBacking(w, h int, fill Color) *Backing {
	w, h = clampDim(w), clampDim(h)
	b := &Backing{Width: w, Height: h, Pix: make([]byte, w*h*protocol.BytesPerPixel), Fill: fill}
	b.fillRect(platform.Rect{Width: w, Height: h})
	return b
}

// Bounds returns the store's rectangle.
func (b *Backing) Bounds() platform.Rect {
	return platform.Rect{Width: b.Width, Height: b.Height}
}

// At returns the pixel at x, y. Out of range reads return the fill colour.
func (b *Backing) At(x, y int) Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return b.Fill
	}
	i := (y*b.Width + x) * protocol.BytesPerPixel
	return Color{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}
}

// Resize reallocates the store. The overlapping top-left rectangle is kept
// and everything else is painted with the fill colour.
func (b *Backing) Resize(w, h int) {
	w, h = clampDim(w), clampDim(h)
	if w == b.Width && h == b.Height {
		return
	}
	old := *b
	b.Width, b.Height = w, h
	b.Pix = make([]byte, w*h*protocol.BytesPerPixel)

	keepW, keepH := min(old.Width, w), min(old.Height, h)
	rowBytes := keepW * protocol.BytesPerPixel
	for y := 0; y < keepH; y++ {
		src := y * old.Width * protocol.BytesPerPixel
		dst := y * w * protocol.BytesPerPixel
		copy(b.Pix[dst:dst+rowBytes], old.Pix[src:src+rowBytes])
	}

	// Right of the kept area, then below it.
	b.fillRect(platform.Rect{X: keepW, Width: w - keepW, Height: keepH})
	b.fillRect(platform.Rect{Y: keepH, Width: w, Height: h - keepH})
}

// Write copies an RGB24 rectangle into the store, clipped to its bounds. It
// returns the rectangle actually written.
func (b *Backing) Write(r platform.Rect, data []byte) (platform.Rect, error) {
	if r.Width < 0 || r.Height < 0 {
		return platform.Rect{}, protocol.Violationf(protocol.TypeDraw, "negative size %dx%d", r.Width, r.Height)
	}
	// Bounding the operands keeps the length product and the row offsets
	// below from overflowing.
	if r.Width > protocol.MaxDimension || r.Height > protocol.MaxDimension ||
		r.X < -protocol.MaxDimension || r.X > protocol.MaxDimension ||
		r.Y < -protocol.MaxDimension || r.Y > protocol.MaxDimension {
		return platform.Rect{}, protocol.Violationf(protocol.TypeDraw, "rectangle %dx%d+%d+%d out of range", r.Width, r.Height, r.X, r.Y)
	}
	if want := r.Width * r.Height * protocol.BytesPerPixel; len(data) != want {
		return platform.Rect{}, protocol.Violationf(protocol.TypeDraw,
			"pixel data is %d bytes, %dx%d rgb24 needs %d", len(data), r.Width, r.Height, want)
	}

	clip := r.Intersect(b.Bounds())
	if clip.Empty() {
		return platform.Rect{}, nil
	}
	rowBytes := clip.Width * protocol.BytesPerPixel
	for y := clip.Y; y < clip.Bottom(); y++ {
		src := ((y-r.Y)*r.Width + (clip.X - r.X)) * protocol.BytesPerPixel
		dst := (y*b.Width + clip.X) * protocol.BytesPerPixel
		copy(b.Pix[dst:dst+rowBytes], data[src:src+rowBytes])
	}
	return clip, nil
}

func clampDim(n int) int {
	return min(max(n, 1), protocol.MaxDimension)
}

func (b *Backing) fillRect(r platform.Rect) {
	r = r.Intersect(b.Bounds())
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			i := (y*b.Width + x) * protocol.BytesPerPixel
			b.Pix[i], b.Pix[i+1], b.Pix[i+2] = b.Fill[0], b.Fill[1], b.Fill[2]
		}
	}
}
