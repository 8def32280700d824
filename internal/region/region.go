// Package region tracks damaged screen area as a union of rectangles.
package region

import "github.com/1broseidon/winmirror/internal/platform"

// Region is a set of pixels stored as pairwise disjoint rectangles. The
// zero value is an empty region.
type Region struct {
	rects []platform.Rect
}

// FromRect returns a region covering r.
func FromRect(r platform.Rect) *Region {
	reg := &Region{}
	reg.Union(r)
	return reg
}

// IsEmpty reports whether the region covers no pixels.
func (g *Region) IsEmpty() bool {
	return len(g.rects) == 0
}

// Rects returns a copy of the disjoint rectangles making up the region.
func (g *Region) Rects() []platform.Rect {
	return append([]platform.Rect(nil), g.rects...)
}

// Area returns the number of pixels in the region.
func (g *Region) Area() int {
	total := 0
	for _, r := range g.rects {
		total += r.Area()
	}
	return total
}

// BoundingBox returns the smallest rectangle containing the region.
func (g *Region) BoundingBox() platform.Rect {
	var box platform.Rect
	for _, r := range g.rects {
		box = box.Union(r)
	}
	return box
}

// Contains reports whether the pixel at (x, y) is in the region.
func (g *Region) Contains(x, y int) bool {
	for _, r := range g.rects {
		if r.ContainsPoint(x, y) {
			return true
		}
	}
	return false
}

// Union adds r to the region. Only the parts of r not already covered are
// stored, so the rectangles stay disjoint.
func (g *Region) Union(r platform.Rect) {
	if r.Empty() {
		return
	}
	pieces := []platform.Rect{r}
	for _, existing := range g.rects {
		var next []platform.Rect
		for _, p := range pieces {
			next = append(next, subtract(p, existing)...)
		}
		pieces = next
		if len(pieces) == 0 {
			return
		}
	}
	g.rects = append(g.rects, pieces...)
}

// Subtract removes r from the region.
func (g *Region) Subtract(r platform.Rect) {
	if r.Empty() || len(g.rects) == 0 {
		return
	}
	out := g.rects[:0:0]
	for _, existing := range g.rects {
		out = append(out, subtract(existing, r)...)
	}
	g.rects = out
}

// subtract returns a minus b as up to four disjoint rectangles: full-width
// bands above and below the overlap, then the left and right slivers beside
// it.
func subtract(a, b platform.Rect) []platform.Rect {
	overlap := a.Intersect(b)
	if overlap.Empty() {
		return []platform.Rect{a}
	}
	var out []platform.Rect
	if overlap.Y > a.Y {
		out = append(out, platform.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: overlap.Y - a.Y})
	}
	if overlap.Bottom() < a.Bottom() {
		out = append(out, platform.Rect{X: a.X, Y: overlap.Bottom(), Width: a.Width, Height: a.Bottom() - overlap.Bottom()})
	}
	if overlap.X > a.X {
		out = append(out, platform.Rect{X: a.X, Y: overlap.Y, Width: overlap.X - a.X, Height: overlap.Height})
	}
	if overlap.Right() < a.Right() {
		out = append(out, platform.Rect{X: overlap.Right(), Y: overlap.Y, Width: a.Right() - overlap.Right(), Height: overlap.Height})
	}
	return out
}
