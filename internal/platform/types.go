package platform

// WindowID is the stable integer identifier a session assigns to a tracked
// window. Zero is reserved for "no window".
type WindowID uint32

// Handle is an opaque native window handle.
type Handle uint32

// Rect describes a rectangular region in screen or window coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Size is a width/height pair.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Ratio is an aspect ratio expressed as numerator/denominator.
type Ratio struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Area returns the pixel count covered by r.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Size returns the dimensions of r.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Intersect returns the largest rectangle contained in both r and o. The
// result is the zero Rect when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.Right(), o.Right())
	y2 := min(r.Bottom(), o.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Overlaps reports whether r and o share at least one pixel.
func (r Rect) Overlaps(o Rect) bool {
	return !r.Intersect(o).Empty()
}

// Contains reports whether o lies entirely inside r. An empty o is contained
// in every rectangle.
func (r Rect) Contains(o Rect) bool {
	if o.Empty() {
		return true
	}
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// ContainsPoint reports whether the pixel at (x, y) lies inside r.
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Union returns the bounding box of r and o, ignoring empty operands.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x1 := min(r.X, o.X)
	y1 := min(r.Y, o.Y)
	x2 := max(r.Right(), o.Right())
	y2 := max(r.Bottom(), o.Bottom())
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// SizeHints mirrors the ICCCM WM_NORMAL_HINTS subset that is exported to
// viewers. Nil fields are unset.
type SizeHints struct {
	MaxSize   *Size
	MinSize   *Size
	BaseSize  *Size
	Increment *Size
	MinAspect *Ratio
	MaxAspect *Ratio
}
